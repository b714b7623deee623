package reactive

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactor/internal/ecs"
)

func TestDriver_RecordsSweeps(t *testing.T) {
	journal := &recordingJournal{}
	env := newTestEnv(t, WithJournal(journal))

	r, err := On1(Read[position](), func(Scope[Unit], *Query[position]) {}, WithName("mover"))
	require.NoError(t, err)
	host := env.attach(r)

	env.world.Spawn(position{})
	env.sweep()
	env.sweep()

	require.Len(t, journal.records, 2)
	first, second := journal.records[0], journal.records[1]

	assert.Equal(t, "sweep-1", first.ID)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, 1, first.Checked)
	assert.Equal(t, []RunRecord{{Entity: host, Reaction: "mover"}}, first.Runs)
	assert.Less(t, first.LastRun, first.ThisRun)

	assert.Equal(t, "sweep-2", second.ID)
	assert.Equal(t, first.ThisRun, second.LastRun, "windows are contiguous")
	assert.Empty(t, second.Runs)
	assert.NotNil(t, second.Runs)

	assert.Equal(t, int64(2), env.driver.Sweeps())
	assert.Equal(t, second.ThisRun, env.driver.LastRun())
}

func TestDriver_BaselineIgnoresEarlierWrites(t *testing.T) {
	w := ecs.NewWorld()
	ecs.InsertResource(w, score{})
	d := NewDriver(w, WithSweepIDs(NewFixedGenerator("only")))

	assert.Equal(t, w.ChangeTick(), d.LastRun())
	rec, err := d.Sweep(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, "only", rec.ID)
	assert.Equal(t, 0, rec.Checked)
}

func TestDriver_VisitsInEntityOrder(t *testing.T) {
	env := newTestEnv(t)
	var order []string
	mk := func(name string) Reaction {
		r, err := On1(Read[position](), func(Scope[Unit], *Query[position]) {
			order = append(order, name)
		}, WithName(name))
		require.NoError(t, err)
		return r
	}
	env.attach(mk("first"))
	env.attach(mk("second"))
	env.attach(mk("third"))

	env.world.Spawn(position{})
	env.sweep()

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestDriver_NotReadyAbortsSweep(t *testing.T) {
	env := newTestEnv(t)
	r, err := On1(Read[position](), func(Scope[Unit], *Query[position]) {}, WithName("early"))
	require.NoError(t, err)

	host := env.world.Spawn(r)
	require.Equal(t, 1, env.world.Pending(), "init still queued")

	_, err = env.driver.Sweep(context.Background(), env.world)
	require.Error(t, err)
	assert.True(t, IsNotReadyError(err))
	assert.Contains(t, err.Error(), "sweep sweep-1")

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, host, re.Entity)
	assert.Equal(t, "early", re.Reaction)

	assert.NotPanics(t, func() { env.world.Flush() }, "view released after the failure")
	assert.True(t, r.Ready())
}

func TestDriver_BusyAbortsSweep(t *testing.T) {
	journal := &recordingJournal{}
	env := newTestEnv(t, WithJournal(journal))
	r, err := On1(Read[position](), func(Scope[Unit], *Query[position]) {}, WithName("held"))
	require.NoError(t, err)
	env.attach(r)

	r.h.mu.Lock()
	_, err = env.driver.Sweep(context.Background(), env.world)
	r.h.mu.Unlock()

	require.Error(t, err)
	assert.True(t, IsBusyError(err))
	assert.Empty(t, journal.records, "aborted sweeps are not journaled")
}

func TestDriver_AbortedSweepKeepsChangesForLaterReactions(t *testing.T) {
	env := newTestEnv(t)
	ecs.InsertResource(env.world, score{})

	blocker, err := On1(Read[health](), func(Scope[Unit], *Query[health]) {}, WithName("blocker"))
	require.NoError(t, err)
	env.attach(blocker)

	resRuns, compRuns := 0, 0
	resReader, err := On1(Res[score](), func(Scope[Unit], *ResRef[score]) { resRuns++ }, WithName("scorer"))
	require.NoError(t, err)
	env.attach(resReader)
	compReader, err := On1(Read[position](), func(Scope[Unit], *Query[position]) { compRuns++ }, WithName("mover"))
	require.NoError(t, err)
	env.attach(compReader)

	ecs.InsertResource(env.world, score{Value: 1})
	env.world.Spawn(position{})

	blocker.h.mu.Lock()
	_, err = env.driver.Sweep(context.Background(), env.world)
	blocker.h.mu.Unlock()
	require.Error(t, err)
	assert.True(t, IsBusyError(err))
	assert.Zero(t, resRuns+compRuns, "reactions after the failure are not visited")

	env.sweep()
	assert.Equal(t, 1, resRuns, "resource write survives the aborted sweep")
	assert.Equal(t, 1, compRuns, "component write survives the aborted sweep")

	env.sweep()
	assert.Equal(t, 1, resRuns)
	assert.Equal(t, 1, compRuns)
}

func TestDriver_JournalFailure(t *testing.T) {
	boom := errors.New("disk full")
	env := newTestEnv(t, WithJournal(&recordingJournal{err: boom}))

	_, err := env.driver.Sweep(context.Background(), env.world)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "record sweep sweep-1")
}

func TestDriver_CanceledContext(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.driver.Sweep(ctx, env.world)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), env.driver.Sweeps())
}

func TestDriver_Pass(t *testing.T) {
	env := newTestEnv(t)
	p := env.driver.Pass()
	assert.Equal(t, "react", p.Name)
	require.NoError(t, p.Run(context.Background(), env.world))
	assert.Equal(t, int64(1), env.driver.Sweeps())
}

func TestReact_DirectView(t *testing.T) {
	w := ecs.NewWorld()
	runs := 0
	r, err := On1(Read[position](), func(Scope[Unit], *Query[position]) { runs++ })
	require.NoError(t, err)
	w.Spawn(r)
	w.Flush()

	lastRun := w.ChangeTick()
	w.Spawn(position{})

	view := w.BeginDeferred(lastRun)
	res, err := React(view)
	view.Release()

	require.NoError(t, err)
	assert.Equal(t, 1, res.Checked)
	assert.Len(t, res.Runs, 1)
	assert.Equal(t, 1, runs)
}
