package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactor/internal/ecs"
)

// withView initializes p against w and hands its view for the window
// (lastRun, next tick] to fn.
func withView[V any](t *testing.T, w *ecs.World, p Param[V], lastRun int64, fn func(state State[V], dw *ecs.DeferredWorld)) {
	t.Helper()
	state := p.Init(w)
	dw := w.BeginDeferred(lastRun)
	defer dw.Release()
	fn(state, dw)
}

func TestQuery_ReadMethods(t *testing.T) {
	w := ecs.NewWorld()
	e1 := w.Spawn(position{X: 1}, health{})
	e2 := w.Spawn(position{X: 2})
	w.Spawn(health{})

	withView(t, w, Read[position](), 0, func(s State[*Query[position]], dw *ecs.DeferredWorld) {
		q := s.Get(dw)
		assert.Equal(t, 2, q.Len())

		pos, ok := q.Get(e2)
		require.True(t, ok)
		assert.Equal(t, 2, pos.X)
		_, ok = q.Get(ecs.Entity(99))
		assert.False(t, ok)

		var seen []ecs.Entity
		for e := range q.All() {
			seen = append(seen, e)
		}
		assert.Equal(t, []ecs.Entity{e1, e2}, seen)

		_, _, ok = q.Single()
		assert.False(t, ok, "two rows")
	})
}

func TestQuery_Filters(t *testing.T) {
	w := ecs.NewWorld()
	e1 := w.Spawn(position{}, health{})
	w.Spawn(position{}, health{}, frozen{})
	w.Spawn(position{})

	withView(t, w, Read[position](ecs.With[health](), ecs.Without[frozen]()), 0,
		func(s State[*Query[position]], dw *ecs.DeferredWorld) {
			e, _, ok := s.Get(dw).Single()
			require.True(t, ok)
			assert.Equal(t, e1, e)
		})
}

func TestQuery_FilteredCursorIgnoresOtherRows(t *testing.T) {
	w := ecs.NewWorld()
	state := Read[position](ecs.Without[frozen]()).Init(w)
	w.Spawn(position{}, frozen{})

	dw := w.BeginDeferred(0)
	defer dw.Release()
	assert.False(t, state.IsChanged(dw), "filtered-out rows do not trigger")
}

func TestQuery_ChangedRowsMatchCheckWindow(t *testing.T) {
	w := ecs.NewWorld()
	e1 := w.Spawn(position{X: 1})
	w.Spawn(position{X: 2})

	state := Read[position]().Init(w)
	ecs.Set(w, e1, position{X: 10})

	dw := w.BeginDeferred(0)
	defer dw.Release()
	require.True(t, state.IsChanged(dw))

	var changed []ecs.Entity
	for e := range state.Get(dw).Changed() {
		changed = append(changed, e)
	}
	assert.Equal(t, []ecs.Entity{e1}, changed)
}

func TestQueryMut_SetAndUpdate(t *testing.T) {
	w := ecs.NewWorld()
	e1 := w.Spawn(health{Points: 1})
	e2 := w.Spawn(health{Points: 2})

	withView(t, w, Write[health](), 0, func(s State[*QueryMut[health]], dw *ecs.DeferredWorld) {
		q := s.Get(dw)
		assert.True(t, q.Set(e1, health{Points: 5}))
		assert.False(t, q.Set(ecs.Entity(99), health{}))

		n := q.Update(func(_ ecs.Entity, h health) health {
			h.Points *= 10
			return h
		})
		assert.Equal(t, 2, n)

		got, _ := q.Get(e1)
		assert.Equal(t, 50, got.Points)
		got, _ = q.Get(e2)
		assert.Equal(t, 20, got.Points)
	})
}

func TestQuery_GetHonorsFilters(t *testing.T) {
	w := ecs.NewWorld()
	e1 := w.Spawn(position{X: 1}, health{})
	e2 := w.Spawn(position{X: 2}, health{}, frozen{})
	e3 := w.Spawn(health{})

	withView(t, w, Read[position](ecs.With[health](), ecs.Without[frozen]()), 0,
		func(s State[*Query[position]], dw *ecs.DeferredWorld) {
			q := s.Get(dw)

			pos, ok := q.Get(e1)
			require.True(t, ok)
			assert.Equal(t, 1, pos.X)

			_, ok = q.Get(e2)
			assert.False(t, ok, "excluded by Without[frozen]")
			_, ok = q.Get(e3)
			assert.False(t, ok, "no position")
		})
}

func TestRes_ValueAndFlags(t *testing.T) {
	w := ecs.NewWorld()
	state := Res[score]().Init(w)
	ecs.InsertResource(w, score{Value: 3})

	dw := w.BeginDeferred(0)
	defer dw.Release()

	require.True(t, state.IsChanged(dw))
	ref := state.Get(dw)
	assert.Equal(t, 3, ref.Value().Value)
	assert.True(t, ref.IsChanged())
	assert.True(t, ref.IsAdded())
	assert.Equal(t, int64(1), ref.Ticks().Added)
}

func TestRes_MissingResourcePanics(t *testing.T) {
	w := ecs.NewWorld()
	state := Res[score]().Init(w)

	dw := w.BeginDeferred(0)
	defer dw.Release()
	assert.Panics(t, func() { state.IsChanged(dw) })
}

func TestResMut_SetStampsAfterWindow(t *testing.T) {
	w := ecs.NewWorld()
	ecs.InsertResource(w, score{Value: 1})
	state := ResMut[score]().Init(w)

	dw := w.BeginDeferred(w.ChangeTick())
	ref := state.Get(dw)
	assert.False(t, ref.IsChanged())
	ref.Set(score{Value: 2})
	assert.Equal(t, 2, ref.Value().Value)
	assert.False(t, state.IsChanged(dw), "own write falls after the window")
	dw.Release()

	got, _ := ecs.Resource[score](w)
	assert.Equal(t, 2, got.Value)
}

func TestCommandsParam_NeverChanged(t *testing.T) {
	w := ecs.NewWorld()
	withView(t, w, CommandsParam(), 0, func(s State[*ecs.Commands], dw *ecs.DeferredWorld) {
		assert.False(t, s.IsChanged(dw))
		s.Get(dw).Spawn(position{})
	})
	assert.Equal(t, 1, w.Pending())
	assert.True(t, CommandsParam().Access().IsEmpty())
}

func TestMap_TransformsView(t *testing.T) {
	w := ecs.NewWorld()
	w.Spawn(position{})
	w.Spawn(position{})

	count := Map(Read[position](), func(q *Query[position]) int { return q.Len() })
	assert.Equal(t, Read[position]().Access(), count.Access())

	withView(t, w, count, 0, func(s State[int], dw *ecs.DeferredWorld) {
		assert.Equal(t, 2, s.Get(dw))
	})
}

func TestJoinAll_ChecksEveryMember(t *testing.T) {
	w := ecs.NewWorld()
	ecs.InsertResource(w, score{})
	p := JoinAll(Erase(Read[position]()), Erase(Res[score]()))
	state := p.Init(w)

	w.Spawn(position{})
	ecs.InsertResource(w, score{Value: 1})

	dw := w.BeginDeferred(0)
	require.True(t, state.IsChanged(dw))
	views := state.Get(dw)
	require.Len(t, views, 2)
	assert.IsType(t, &Query[position]{}, views[0])
	assert.IsType(t, &ResRef[score]{}, views[1])
	last := dw.ThisRun()
	dw.Release()

	dw = w.BeginDeferred(last)
	defer dw.Release()
	assert.False(t, state.IsChanged(dw), "every member cursor advanced")
}

func TestJoinAll_Empty(t *testing.T) {
	w := ecs.NewWorld()
	withView(t, w, JoinAll[any](), 0, func(s State[[]any], dw *ecs.DeferredWorld) {
		assert.False(t, s.IsChanged(dw))
		assert.Empty(t, s.Get(dw))
	})
}

func TestJoin2_ChecksThroughReborrow(t *testing.T) {
	w := ecs.NewWorld()
	withView(t, w, Join2(Read[position](), Read[health]()), 0,
		func(s State[Tuple2[*Query[position], *Query[health]]], dw *ecs.DeferredWorld) {
			s.IsChanged(dw)
			assert.True(t, dw.Valid(), "member reborrows are released")
		})
}
