package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/reactor/internal/ecs"
	"github.com/roach88/reactor/internal/reactive"
)

// RunRow is one reaction run joined with the sweep it belongs to.
type RunRow struct {
	SweepID  string     `json:"sweep_id"`
	Seq      int64      `json:"seq"`
	Entity   ecs.Entity `json:"entity"`
	Reaction string     `json:"reaction"`
}

// ReadSweeps returns every recorded sweep with its runs.
// Ordered by seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ReadSweeps(ctx context.Context) ([]reactive.SweepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, last_run, this_run, checked
		FROM sweeps
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sweeps: %w", err)
	}

	sweeps := []reactive.SweepRecord{}
	for rows.Next() {
		rec, err := scanSweep(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		sweeps = append(sweeps, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate sweeps: %w", err)
	}
	rows.Close()

	// Runs are loaded after the cursor closes; the pool holds one connection.
	for i := range sweeps {
		runs, err := s.readSweepRuns(ctx, sweeps[i].ID)
		if err != nil {
			return nil, err
		}
		sweeps[i].Runs = runs
	}
	return sweeps, nil
}

// ReadSweep retrieves one sweep by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSweep(ctx context.Context, id string) (reactive.SweepRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, last_run, this_run, checked
		FROM sweeps
		WHERE id = ?
	`, id)

	rec, err := scanSweep(row)
	if err != nil {
		return reactive.SweepRecord{}, err
	}
	rec.Runs, err = s.readSweepRuns(ctx, id)
	if err != nil {
		return reactive.SweepRecord{}, err
	}
	return rec, nil
}

// ReadRuns returns reaction runs across all sweeps, in sweep order then
// visit order. An empty reaction name returns every run.
func (s *Store) ReadRuns(ctx context.Context, reaction string) ([]RunRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.seq, r.entity, r.reaction
		FROM reaction_runs r
		JOIN sweeps s ON r.sweep_id = s.id
		WHERE ? = '' OR r.reaction = ?
		ORDER BY s.seq ASC, s.id COLLATE BINARY ASC, r.position ASC
	`, reaction, reaction)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	out := []RunRow{}
	for rows.Next() {
		var (
			r      RunRow
			entity int64
		)
		if err := rows.Scan(&r.SweepID, &r.Seq, &entity, &r.Reaction); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Entity = ecs.Entity(entity)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// CountRuns returns the number of runs recorded per reaction name.
func (s *Store) CountRuns(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reaction, COUNT(*)
		FROM reaction_runs
		GROUP BY reaction
		ORDER BY reaction COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan run count: %w", err)
		}
		counts[name] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run counts: %w", err)
	}
	return counts, nil
}

func (s *Store) readSweepRuns(ctx context.Context, sweepID string) ([]reactive.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity, reaction
		FROM reaction_runs
		WHERE sweep_id = ?
		ORDER BY position ASC
	`, sweepID)
	if err != nil {
		return nil, fmt.Errorf("query runs of sweep %s: %w", sweepID, err)
	}
	defer rows.Close()

	runs := []reactive.RunRecord{}
	for rows.Next() {
		var (
			entity int64
			run    reactive.RunRecord
		)
		if err := rows.Scan(&entity, &run.Reaction); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Entity = ecs.Entity(entity)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs of sweep %s: %w", sweepID, err)
	}
	return runs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSweep(row scanner) (reactive.SweepRecord, error) {
	var rec reactive.SweepRecord
	err := row.Scan(&rec.ID, &rec.Seq, &rec.LastRun, &rec.ThisRun, &rec.Checked)
	if errors.Is(err, sql.ErrNoRows) {
		return reactive.SweepRecord{}, err
	}
	if err != nil {
		return reactive.SweepRecord{}, fmt.Errorf("scan sweep: %w", err)
	}
	return rec, nil
}
