package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/roach88/reactor/internal/harness"
	"github.com/roach88/reactor/internal/reactive"
	"github.com/roach88/reactor/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// SweepMismatch describes one sweep that differs between the journal and
// the replay.
type SweepMismatch struct {
	Seq      int64                 `json:"seq"`
	Recorded *reactive.SweepRecord `json:"recorded,omitempty"`
	Replayed *reactive.SweepRecord `json:"replayed,omitempty"`
}

// ReplayResult holds the replay outcome.
type ReplayResult struct {
	Scenario      string          `json:"scenario"`
	Recorded      int             `json:"recorded"`
	Replayed      int             `json:"replayed"`
	Deterministic bool            `json:"deterministic"`
	Mismatches    []SweepMismatch `json:"mismatches,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario>",
		Short: "Re-run a scenario and verify it reproduces its journal",
		Long: `Re-run a scenario into a scratch journal and compare every sweep with the
sweeps recorded in --db by an earlier "reactor run".

Sweeps are compared on id, sequence, change window, checked count and the
ordered list of runs.

Exit codes:
  0 - The replay reproduced the journal
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, invalid scenario, etc.)

Examples:
  reactor run ./scenarios/basic.yaml --db ./reactor.db
  reactor replay ./scenarios/basic.yaml --db ./reactor.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	ctx := context.Background()

	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	recorded, err := readJournal(ctx, opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	scratch, err := os.MkdirTemp("", "reactor-replay-")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create scratch directory", err)
	}
	defer os.RemoveAll(scratch)
	scratchDB := filepath.Join(scratch, "replay.db")

	if _, err := harness.Run(scenario,
		harness.WithJournalPath(scratchDB),
		harness.WithLogger(opts.logger()),
	); err != nil {
		return WrapExitError(ExitCommandError, "failed to replay scenario", err)
	}
	replayed, err := readJournal(ctx, scratchDB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read replay journal", err)
	}

	result := compareJournals(scenario.Name, recorded, replayed)

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Deterministic {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_NONDETERMINISTIC",
				Message: fmt.Sprintf("%d sweep(s) differ", len(result.Mismatches)),
			}
		}
		if err := writeJSON(cmd.OutOrStdout(), response); err != nil {
			return err
		}
	} else {
		outputReplayText(cmd, result, opts.Verbose)
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

func readJournal(ctx context.Context, path string) ([]reactive.SweepRecord, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.ReadSweeps(ctx)
}

// compareJournals pairs sweeps by position and reports every difference.
func compareJournals(name string, recorded, replayed []reactive.SweepRecord) ReplayResult {
	result := ReplayResult{
		Scenario:      name,
		Recorded:      len(recorded),
		Replayed:      len(replayed),
		Deterministic: true,
		Mismatches:    []SweepMismatch{},
	}

	n := max(len(recorded), len(replayed))
	for i := range n {
		var a, b *reactive.SweepRecord
		if i < len(recorded) {
			a = &recorded[i]
		}
		if i < len(replayed) {
			b = &replayed[i]
		}
		if a != nil && b != nil && reflect.DeepEqual(*a, *b) {
			continue
		}
		result.Deterministic = false
		result.Mismatches = append(result.Mismatches, SweepMismatch{
			Seq:      int64(i + 1),
			Recorded: a,
			Replayed: b,
		})
	}
	return result
}

func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "%s %s: %d recorded, %d replayed\n",
		statusMark(result.Deterministic), result.Scenario, result.Recorded, result.Replayed)

	for _, m := range result.Mismatches {
		fmt.Fprintf(w, "  sweep %d differs\n", m.Seq)
		if verbose {
			fmt.Fprintf(w, "    recorded: %s\n", describeSweep(m.Recorded))
			fmt.Fprintf(w, "    replayed: %s\n", describeSweep(m.Replayed))
		}
	}

	if result.Deterministic {
		fmt.Fprintln(w, "Replay is deterministic.")
	}
}

func describeSweep(rec *reactive.SweepRecord) string {
	if rec == nil {
		return "(missing)"
	}
	return fmt.Sprintf("%s window=(%d, %d] checked=%d runs=%v", rec.ID, rec.LastRun, rec.ThisRun, rec.Checked, rec.Runs)
}
