package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reactor/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Trace    bool
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Name   string               `json:"name"`
	Pass   bool                 `json:"pass"`
	Sweeps int                  `json:"sweeps"`
	Inits  map[string]int       `json:"inits"`
	Runs   map[string]int       `json:"runs"`
	Errors []string             `json:"errors,omitempty"`
	Trace  []harness.TraceEvent `json:"trace,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one scenario",
		Long: `Run a scenario file (.yaml, .yml or .cue) and report its result.

Sweeps are journaled to the SQLite database given by --db, or by
[journal] path in the config file. Without either the journal is kept
in memory and discarded.

Exit codes:
  0 - Scenario passed
  1 - Scenario failed (expectations or assertions did not hold)
  2 - Command error (unreadable or invalid scenario, database error)

Examples:
  reactor run ./scenarios/basic.yaml
  reactor run ./scenarios/spawn.cue --db ./reactor.db
  reactor run ./scenarios/basic.yaml --trace --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default from config)")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print every trace event")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := opts.logger()

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	database := opts.Database
	if database == "" {
		database = opts.Journal
	}
	runOpts := []harness.Option{harness.WithLogger(logger)}
	if database != "" {
		runOpts = append(runOpts, harness.WithJournalPath(database))
	}

	logger.Info("running scenario", "scenario", scenario.Name, "path", path, "journal", database)
	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	out := RunResult{
		Name:   scenario.Name,
		Pass:   result.Pass,
		Sweeps: countEvents(result.Trace, harness.EventSweep),
		Inits:  result.Inits,
		Runs:   result.Runs,
		Errors: result.Errors,
	}
	if opts.Trace {
		out.Trace = result.Trace
	}

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: out}
		if !out.Pass {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_SCENARIO_FAILED",
				Message: fmt.Sprintf("scenario %s failed", out.Name),
				Details: out.Errors,
			}
		}
		if err := writeJSON(cmd.OutOrStdout(), response); err != nil {
			return err
		}
	} else {
		writeRunText(cmd, out)
	}

	if !out.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", out.Name))
	}
	return nil
}

func writeRunText(cmd *cobra.Command, out RunResult) {
	w := cmd.OutOrStdout()

	total := 0
	for _, n := range out.Runs {
		total += n
	}
	fmt.Fprintf(w, "%s %s (%d sweeps, %d runs)\n", statusWord(out.Pass), out.Name, out.Sweeps, total)

	for _, event := range out.Trace {
		fmt.Fprintf(w, "  %s\n", formatTraceEvent(event))
	}
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func formatTraceEvent(e harness.TraceEvent) string {
	switch e.Type {
	case harness.EventInit:
		return fmt.Sprintf("init  %s", e.Reaction)
	case harness.EventRun:
		return fmt.Sprintf("run   %s on %s (sweep %d, step %s)", e.Reaction, e.Entity, e.Sweep, e.Step)
	default:
		return fmt.Sprintf("sweep %d checked=%d ran=%d (step %s)", e.Sweep, e.Checked, e.Ran, e.Step)
	}
}

func countEvents(trace []harness.TraceEvent, typ string) int {
	n := 0
	for _, e := range trace {
		if e.Type == typ {
			n++
		}
	}
	return n
}
