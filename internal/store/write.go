package store

import (
	"context"
	"fmt"

	"github.com/roach88/reactor/internal/reactive"
)

// RecordSweep writes a sweep and its runs in one transaction.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: recording the same sweep
// id twice leaves the first record and its runs untouched.
func (s *Store) RecordSweep(ctx context.Context, rec reactive.SweepRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record sweep: begin: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sweeps (id, seq, last_run, this_run, checked, ran)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Seq,
		rec.LastRun,
		rec.ThisRun,
		rec.Checked,
		len(rec.Runs),
	)
	if err != nil {
		return fmt.Errorf("record sweep %s: %w", rec.ID, err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record sweep %s: rows affected: %w", rec.ID, err)
	}
	if inserted == 0 {
		return nil
	}

	for i, run := range rec.Runs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reaction_runs (sweep_id, position, entity, reaction)
			VALUES (?, ?, ?, ?)
		`, rec.ID, i, int64(run.Entity), run.Reaction); err != nil {
			return fmt.Errorf("record run %d of sweep %s: %w", i, rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record sweep %s: commit: %w", rec.ID, err)
	}
	return nil
}
