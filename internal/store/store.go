package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// journalVersion is stamped into PRAGMA user_version. A journal written by
// a newer layout is refused rather than misread.
const journalVersion = 1

// journalPragmas configure a journal connection. The driver appends one
// sweep per transaction while trace and replay may read the same file.
var journalPragmas = []string{
	"PRAGMA journal_mode = WAL",   // readers never block the recording run
	"PRAGMA synchronous = NORMAL", // a crash loses at most the last sweep
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON", // runs must belong to a recorded sweep
}

// Store is a durable sweep journal. It satisfies reactive.Journal.
type Store struct {
	db *sql.DB
}

// Open opens the journal at path, creating it if needed. ":memory:" gives
// a journal that lives as long as the Store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// One connection: sweeps are written by a single driver, and an
	// in-memory journal exists only on its own connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepareJournal(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func prepareJournal(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to journal: %w", err)
	}
	for _, pragma := range journalPragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read journal version: %w", err)
	}
	if version > journalVersion {
		return fmt.Errorf("journal version %d is newer than supported version %d", version, journalVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply journal schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", journalVersion)); err != nil {
		return fmt.Errorf("failed to stamp journal version: %w", err)
	}
	return nil
}

// Close closes the journal. Closing a zero Store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// pragma returns the current value of a journal pragma.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return value, nil
}
