package reactive

import "github.com/roach88/reactor/internal/ecs"

// Tuple2 holds the views of a two-member param.
type Tuple2[A, B any] struct {
	V1 A
	V2 B
}

// Tuple3 holds the views of a three-member param.
type Tuple3[A, B, C any] struct {
	V1 A
	V2 B
	V3 C
}

// Join2 composes two params. Members are initialized in order, every
// member's IsChanged runs on each check, and Get materializes both views
// from the same view instant.
func Join2[A, B any](a Param[A], b Param[B]) Param[Tuple2[A, B]] {
	return join2[A, B]{a: a, b: b}
}

type join2[A, B any] struct {
	a Param[A]
	b Param[B]
}

func (j join2[A, B]) Init(w *ecs.World) State[Tuple2[A, B]] {
	sa := j.a.Init(w)
	sb := j.b.Init(w)
	return join2State[A, B]{a: sa, b: sb}
}

func (j join2[A, B]) Access() ecs.Access {
	return j.a.Access().Merge(j.b.Access())
}

type join2State[A, B any] struct {
	a State[A]
	b State[B]
}

func (s join2State[A, B]) IsChanged(w *ecs.DeferredWorld) bool {
	ca := changedThrough(w, s.a)
	cb := changedThrough(w, s.b)
	return ca || cb
}

func (s join2State[A, B]) Get(w *ecs.DeferredWorld) Tuple2[A, B] {
	return Tuple2[A, B]{V1: s.a.Get(w), V2: s.b.Get(w)}
}

// Join3 composes three params with the same rules as Join2.
func Join3[A, B, C any](a Param[A], b Param[B], c Param[C]) Param[Tuple3[A, B, C]] {
	return join3[A, B, C]{a: a, b: b, c: c}
}

type join3[A, B, C any] struct {
	a Param[A]
	b Param[B]
	c Param[C]
}

func (j join3[A, B, C]) Init(w *ecs.World) State[Tuple3[A, B, C]] {
	sa := j.a.Init(w)
	sb := j.b.Init(w)
	sc := j.c.Init(w)
	return join3State[A, B, C]{a: sa, b: sb, c: sc}
}

func (j join3[A, B, C]) Access() ecs.Access {
	return j.a.Access().Merge(j.b.Access()).Merge(j.c.Access())
}

type join3State[A, B, C any] struct {
	a State[A]
	b State[B]
	c State[C]
}

func (s join3State[A, B, C]) IsChanged(w *ecs.DeferredWorld) bool {
	ca := changedThrough(w, s.a)
	cb := changedThrough(w, s.b)
	cc := changedThrough(w, s.c)
	return ca || cb || cc
}

func (s join3State[A, B, C]) Get(w *ecs.DeferredWorld) Tuple3[A, B, C] {
	return Tuple3[A, B, C]{V1: s.a.Get(w), V2: s.b.Get(w), V3: s.c.Get(w)}
}

// JoinAll composes any number of params sharing a view type. The view is a
// slice in member order.
func JoinAll[V any](params ...Param[V]) Param[[]V] {
	return joinAll[V]{params: append([]Param[V](nil), params...)}
}

type joinAll[V any] struct {
	params []Param[V]
}

func (j joinAll[V]) Init(w *ecs.World) State[[]V] {
	states := make([]State[V], len(j.params))
	for i, p := range j.params {
		states[i] = p.Init(w)
	}
	return joinAllState[V]{states: states}
}

func (j joinAll[V]) Access() ecs.Access {
	var a ecs.Access
	for _, p := range j.params {
		a = a.Merge(p.Access())
	}
	return a
}

type joinAllState[V any] struct {
	states []State[V]
}

func (s joinAllState[V]) IsChanged(w *ecs.DeferredWorld) bool {
	changed := false
	for _, st := range s.states {
		if changedThrough(w, st) {
			changed = true
		}
	}
	return changed
}

func (s joinAllState[V]) Get(w *ecs.DeferredWorld) []V {
	views := make([]V, len(s.states))
	for i, st := range s.states {
		views[i] = st.Get(w)
	}
	return views
}

// changedThrough checks one member through its own reborrow so no member
// holds the view longer than its own check.
func changedThrough[V any](w *ecs.DeferredWorld, s State[V]) bool {
	sub := w.Reborrow()
	defer sub.Release()
	return s.IsChanged(sub)
}
