package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand_Valid(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "watch.yaml", passingScenario)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ watch ("+path+")")
}

func TestValidateCommand_Invalid(t *testing.T) {
	dir := t.TempDir()
	good := writeScenario(t, dir, "watch.yaml", passingScenario)
	bad := writeScenario(t, dir, "conflict.yaml", conflictScenario)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), good, bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, out, "✓ watch")
	assert.Contains(t, out, "✗ "+bad)
	assert.Contains(t, out, "CONFLICTING_ACCESS")
}

func TestValidateCommand_UnknownField(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "typo.yaml", passingScenario+"sweep: 2\n")

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Contains(t, out, "failed to parse YAML")
}

func TestValidateCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	good := writeScenario(t, dir, "watch.yaml", passingScenario)
	bad := writeScenario(t, dir, "conflict.yaml", conflictScenario)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), good, bad)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_INVALID_SCENARIO", resp.Error.Code)

	require.Len(t, resp.Data.Scenarios, 2)
	assert.True(t, resp.Data.Scenarios[0].Valid)
	assert.Equal(t, "watch", resp.Data.Scenarios[0].Name)
	assert.False(t, resp.Data.Scenarios[1].Valid)
	assert.NotEmpty(t, resp.Data.Scenarios[1].Error)
}

func TestValidateCommand_RequiresArgs(t *testing.T) {
	_, err := execute(NewValidateCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}
