package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

const passingScenario = `name: watch
description: one reaction watching one entity
entities:
  - name: e1
    position: {x: 0, y: 0}
reactions:
  - name: watch
    reads: [position]
steps:
  - name: move
    set:
      - entity: e1
        position: {x: 1, y: 0}
    expect_runs: [watch]
  - name: idle
    expect_runs: []
`

const failingScenario = `name: broken-expectation
description: expects a run that never happens
entities:
  - name: e1
    position: {x: 0, y: 0}
reactions:
  - name: watch
    reads: [position]
steps:
  - name: idle
    expect_runs: [watch]
`

const conflictScenario = `name: conflict
description: reads and writes position
reactions:
  - name: bad
    reads: [position]
    writes: [position]
steps:
  - name: never
`

func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// execute runs cmd with args and returns stdout and the command error.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
