// Package config loads the reactor CLI configuration file.
package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the reactor.toml layout.
type Config struct {
	Log     LogConfig     `toml:"log"`
	Output  OutputConfig  `toml:"output"`
	Journal JournalConfig `toml:"journal"`
}

// LogConfig selects the stderr log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// OutputConfig selects the command output format.
type OutputConfig struct {
	Format string `toml:"format"`
}

// JournalConfig locates the sweep journal. An empty path keeps the journal
// in memory.
type JournalConfig struct {
	Path string `toml:"path"`
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
)

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info"},
		Output: OutputConfig{Format: "text"},
	}
}

// Load reads path over the defaults. Keys the Config does not know are
// rejected, as are invalid levels and formats.
func Load(path string) (Config, error) {
	cfg := Default()

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.Journal.Path = strings.TrimSpace(cfg.Journal.Path)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks level and format values.
func (c Config) Validate() error {
	if !slices.Contains(validLevels, c.Log.Level) {
		return fmt.Errorf("invalid log level %q: must be one of %v", c.Log.Level, validLevels)
	}
	if !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format %q: must be one of %v", c.Output.Format, validFormats)
	}
	return nil
}

// SlogLevel maps the configured level to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
