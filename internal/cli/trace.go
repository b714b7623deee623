package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/reactor/internal/reactive"
	"github.com/roach88/reactor/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Sweep    string // optional - one sweep only
	Reaction string // optional - runs of one reaction only
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Sweeps []reactive.SweepRecord `json:"sweeps"`
	Runs   []store.RunRow         `json:"runs,omitempty"`
	Stats  TraceStats             `json:"stats"`
}

// TraceStats holds summary statistics for the journal.
type TraceStats struct {
	Sweeps    int            `json:"sweeps"`
	Runs      int            `json:"runs"`
	Reactions map[string]int `json:"reactions"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect the sweep journal",
		Long: `Print the sweeps recorded in a journal database.

Each sweep shows its change window (last_run, this_run], how many reactions
it checked, and which ran. --reaction lists only the runs of one reaction;
--sweep shows a single sweep.

Examples:
  reactor trace --db ./reactor.db
  reactor trace --db ./reactor.db --reaction medic
  reactor trace --db ./reactor.db --sweep sweep-3 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default from config)")
	cmd.Flags().StringVar(&opts.Sweep, "sweep", "", "show a single sweep by id")
	cmd.Flags().StringVar(&opts.Reaction, "reaction", "", "list runs of one reaction")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	database := opts.Database
	if database == "" {
		database = opts.Journal
	}
	if database == "" {
		return NewExitError(ExitCommandError, "no journal database: pass --db or set [journal] path")
	}

	if _, err := os.Stat(database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result, err := buildTrace(ctx, st, opts)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{
			Status:  "ok",
			Data:    result,
			SweepID: opts.Sweep,
		})
	}
	outputTraceText(cmd, result, opts)
	return nil
}

func buildTrace(ctx context.Context, st *store.Store, opts *TraceOptions) (TraceResult, error) {
	var result TraceResult

	switch {
	case opts.Sweep != "":
		rec, err := st.ReadSweep(ctx, opts.Sweep)
		if errors.Is(err, sql.ErrNoRows) {
			return result, NewExitError(ExitCommandError, fmt.Sprintf("sweep not found: %s", opts.Sweep))
		}
		if err != nil {
			return result, WrapExitError(ExitCommandError, "failed to read sweep", err)
		}
		result.Sweeps = []reactive.SweepRecord{rec}
	default:
		sweeps, err := st.ReadSweeps(ctx)
		if err != nil {
			return result, WrapExitError(ExitCommandError, "failed to read sweeps", err)
		}
		result.Sweeps = sweeps
	}

	if opts.Reaction != "" {
		runs, err := st.ReadRuns(ctx, opts.Reaction)
		if err != nil {
			return result, WrapExitError(ExitCommandError, "failed to read runs", err)
		}
		result.Runs = runs
	}

	counts, err := st.CountRuns(ctx)
	if err != nil {
		return result, WrapExitError(ExitCommandError, "failed to count runs", err)
	}
	result.Stats = TraceStats{Sweeps: len(result.Sweeps), Reactions: counts}
	for _, n := range counts {
		result.Stats.Runs += n
	}
	return result, nil
}

func outputTraceText(cmd *cobra.Command, result TraceResult, opts *TraceOptions) {
	w := cmd.OutOrStdout()

	if len(result.Sweeps) == 0 {
		fmt.Fprintln(w, "No sweeps recorded.")
		return
	}

	if opts.Reaction != "" {
		fmt.Fprintf(w, "Runs of %s: %d\n", opts.Reaction, len(result.Runs))
		for _, run := range result.Runs {
			fmt.Fprintf(w, "  %s seq=%d %s\n", dimLabel.Sprint(run.SweepID), run.Seq, run.Entity)
		}
		return
	}

	for _, sweep := range result.Sweeps {
		fmt.Fprintf(w, "%s seq=%d window=(%d, %d] checked=%d ran=%d\n",
			dimLabel.Sprint(sweep.ID), sweep.Seq, sweep.LastRun, sweep.ThisRun, sweep.Checked, len(sweep.Runs))
		for _, run := range sweep.Runs {
			fmt.Fprintf(w, "  %s on %s\n", run.Reaction, run.Entity)
		}
	}

	if opts.Verbose {
		names := make([]string, 0, len(result.Stats.Reactions))
		for name := range result.Stats.Reactions {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "\nTotals: %d sweeps, %d runs\n", result.Stats.Sweeps, result.Stats.Runs)
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %d\n", name, result.Stats.Reactions[name])
		}
	}
}
