package reactive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/reactor/internal/ecs"
)

// RunRecord names one reaction that ran during a sweep.
type RunRecord struct {
	Entity   ecs.Entity `json:"entity"`
	Reaction string     `json:"reaction"`
}

// SweepResult is what React observed during one pass over the reactions.
type SweepResult struct {
	Checked int
	Runs    []RunRecord
}

// SweepRecord describes one completed sweep. Driver hands it to the
// configured Journal.
type SweepRecord struct {
	ID      string      `json:"id"`
	Seq     int64       `json:"seq"`
	LastRun int64       `json:"last_run"`
	ThisRun int64       `json:"this_run"`
	Checked int         `json:"checked"`
	Runs    []RunRecord `json:"runs"`
}

// Journal persists sweep records.
type Journal interface {
	RecordSweep(ctx context.Context, rec SweepRecord) error
}

// React visits every attached reaction once through w, running each one
// whose params report a change.
//
// The set of reactions is snapshotted before the first check, so reactions
// attached by commands queued during the sweep are not visited. Reactions
// are visited in ascending entity order.
//
// The first failing reaction aborts the sweep; the partial result is
// returned with the error.
func React(w *ecs.DeferredWorld) (SweepResult, error) {
	return react(w, slog.Default())
}

type target struct {
	entity   ecs.Entity
	reaction Reaction
}

func react(w *ecs.DeferredWorld, logger *slog.Logger) (SweepResult, error) {
	var targets []target
	for row := range ecs.Scan[Reaction](w) {
		targets = append(targets, target{entity: row.Entity, reaction: row.Value})
	}

	var res SweepResult
	for _, t := range targets {
		res.Checked++
		ran, err := t.reaction.react(w, t.entity)
		if err != nil {
			return res, err
		}
		if !ran {
			continue
		}
		logger.Debug("reaction ran",
			"entity", t.entity,
			"reaction", t.reaction.Name())
		res.Runs = append(res.Runs, RunRecord{Entity: t.entity, Reaction: t.reaction.Name()})
	}
	return res, nil
}

// Driver sweeps a World's reactions, tracking the change window between
// consecutive sweeps.
//
// A Driver belongs to one World. It is not safe for concurrent use.
type Driver struct {
	lastRun int64
	seq     int64
	logger  *slog.Logger
	journal Journal
	ids     SweepIDGenerator
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithLogger sets the driver's logger.
func WithLogger(l *slog.Logger) DriverOption {
	return func(d *Driver) {
		d.logger = l
	}
}

// WithJournal records every completed sweep to j.
func WithJournal(j Journal) DriverOption {
	return func(d *Driver) {
		d.journal = j
	}
}

// WithSweepIDs sets the sweep id generator. Defaults to UUIDv7Generator.
func WithSweepIDs(g SweepIDGenerator) DriverOption {
	return func(d *Driver) {
		d.ids = g
	}
}

// NewDriver creates a Driver for w. Changes made to w before this call are
// not reported to the first sweep.
func NewDriver(w *ecs.World, opts ...DriverOption) *Driver {
	d := &Driver{
		lastRun: w.ChangeTick(),
		logger:  slog.Default(),
		ids:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// LastRun returns the upper bound of the previous sweep's change window.
func (d *Driver) LastRun() int64 {
	return d.lastRun
}

// Sweeps returns the number of sweeps performed.
func (d *Driver) Sweeps() int64 {
	return d.seq
}

// Sweep opens w's deferred view, reacts, and releases the view.
//
// Commands queued by reactions stay queued; the caller (normally an
// ecs.Schedule) flushes them after the sweep.
func (d *Driver) Sweep(ctx context.Context, w *ecs.World) (SweepRecord, error) {
	if err := ctx.Err(); err != nil {
		return SweepRecord{}, err
	}

	view := w.BeginDeferred(d.lastRun)
	d.seq++
	rec := SweepRecord{
		ID:      d.ids.Generate(),
		Seq:     d.seq,
		LastRun: view.LastRun(),
		ThisRun: view.ThisRun(),
	}

	res, err := func() (SweepResult, error) {
		defer view.Release()
		return react(view, d.logger)
	}()
	d.lastRun = rec.ThisRun
	rec.Checked = res.Checked
	rec.Runs = res.Runs
	if rec.Runs == nil {
		rec.Runs = []RunRecord{}
	}

	if err != nil {
		d.logger.Error("sweep aborted",
			"sweep_id", rec.ID,
			"checked", rec.Checked,
			"error", err)
		return rec, fmt.Errorf("sweep %s: %w", rec.ID, err)
	}

	d.logger.Info("sweep complete",
		"sweep_id", rec.ID,
		"seq", rec.Seq,
		"checked", rec.Checked,
		"ran", len(rec.Runs))

	if d.journal != nil {
		if err := d.journal.RecordSweep(ctx, rec); err != nil {
			return rec, fmt.Errorf("record sweep %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}

// Pass exposes the driver as a schedule pass named "react".
func (d *Driver) Pass() ecs.Pass {
	return ecs.Pass{
		Name: "react",
		Run: func(ctx context.Context, w *ecs.World) error {
			_, err := d.Sweep(ctx, w)
			return err
		},
	}
}
