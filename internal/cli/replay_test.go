package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactor/internal/reactive"
)

func TestReplayCommand_Deterministic(t *testing.T) {
	dir, dbPath := recordJournal(t)

	out, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath, filepath.Join(dir, "watch.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ watch: 2 recorded, 2 replayed")
	assert.Contains(t, out, "Replay is deterministic.")
}

func TestReplayCommand_Mismatch(t *testing.T) {
	dir, dbPath := recordJournal(t)
	other := writeScenario(t, dir, "broken.yaml", failingScenario)

	out, err := execute(NewReplayCommand(&RootOptions{Format: "json"}), "--db", dbPath, other)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "determinism verification failed")

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
		Error  *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_NONDETERMINISTIC", resp.Error.Code)
	assert.False(t, resp.Data.Deterministic)
	assert.Equal(t, 2, resp.Data.Recorded)
	assert.Equal(t, 1, resp.Data.Replayed)
	assert.NotEmpty(t, resp.Data.Mismatches)
}

func TestReplayCommand_RequiresDB(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "watch.yaml", passingScenario)

	_, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestReplayCommand_MissingDatabase(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "watch.yaml", passingScenario)

	_, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), "--db", filepath.Join(t.TempDir(), "nope.db"), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCompareJournals(t *testing.T) {
	a := []reactive.SweepRecord{
		{ID: "sweep-1", Seq: 1, LastRun: 0, ThisRun: 5, Checked: 1, Runs: []reactive.RunRecord{{Entity: 2, Reaction: "watch"}}},
		{ID: "sweep-2", Seq: 2, LastRun: 5, ThisRun: 6, Checked: 1},
	}

	same := compareJournals("watch", a, a)
	assert.True(t, same.Deterministic)
	assert.Empty(t, same.Mismatches)

	changed := []reactive.SweepRecord{a[0]}
	changed[0].Runs = nil
	diff := compareJournals("watch", a, changed)
	assert.False(t, diff.Deterministic)
	require.Len(t, diff.Mismatches, 2)
	assert.Equal(t, int64(1), diff.Mismatches[0].Seq)
	assert.Equal(t, int64(2), diff.Mismatches[1].Seq)
	assert.Nil(t, diff.Mismatches[1].Replayed)
}
