package reactive

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/reactor/internal/ecs"
	"github.com/roach88/reactor/internal/testutil"
)

type position struct{ X, Y int }

type health struct{ Points int }

type frozen struct{}

type score struct{ Value int }

type weather struct{ Kind string }

// testEnv is a world with a driver wired into a schedule.
type testEnv struct {
	t        *testing.T
	world    *ecs.World
	driver   *Driver
	schedule *ecs.Schedule
}

func newTestEnv(t *testing.T, opts ...DriverOption) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := ecs.NewWorld(
		ecs.WithClock(testutil.NewDeterministicClock()),
		ecs.WithLogger(logger),
	)
	opts = append([]DriverOption{
		WithLogger(logger),
		WithSweepIDs(testutil.NewSequenceGenerator("sweep")),
	}, opts...)
	d := NewDriver(w, opts...)
	return &testEnv{
		t:        t,
		world:    w,
		driver:   d,
		schedule: ecs.NewSchedule(logger).Add(d.Pass()),
	}
}

// sweep runs the schedule once: flush, react, flush.
func (e *testEnv) sweep() {
	e.t.Helper()
	require.NoError(e.t, e.schedule.Run(context.Background(), e.world))
}

// attach spawns r on a new entity and applies its init command.
func (e *testEnv) attach(r Reaction, components ...any) ecs.Entity {
	e.t.Helper()
	ent := e.world.Spawn(append(components, r)...)
	e.world.Flush()
	require.True(e.t, r.Ready(), "reaction should be ready after flush")
	return ent
}

// countingSystem counts Init calls of the wrapped system.
type countingSystem struct {
	System[Unit, Unit]
	inits *int
}

func (c countingSystem) Init(w *ecs.World) {
	*c.inits++
	c.System.Init(w)
}

// recordingJournal keeps records in memory.
type recordingJournal struct {
	records []SweepRecord
	err     error
}

func (j *recordingJournal) RecordSweep(_ context.Context, rec SweepRecord) error {
	if j.err != nil {
		return j.err
	}
	j.records = append(j.records, rec)
	return nil
}
