package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/reactor/internal/ecs"
	"github.com/roach88/reactor/internal/reactive"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSweep builds a record whose window is (seq*10, seq*10+5].
func createTestSweep(id string, seq int64, reactions ...string) reactive.SweepRecord {
	runs := make([]reactive.RunRecord, len(reactions))
	for i, name := range reactions {
		runs[i] = reactive.RunRecord{Entity: ecs.Entity(i + 1), Reaction: name}
	}
	return reactive.SweepRecord{
		ID:      id,
		Seq:     seq,
		LastRun: seq * 10,
		ThisRun: seq*10 + 5,
		Checked: len(reactions) + 1,
		Runs:    runs,
	}
}
