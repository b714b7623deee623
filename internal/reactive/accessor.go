package reactive

import (
	"iter"

	"github.com/roach88/reactor/internal/ecs"
)

// Accessor is a typed component read with an attached filter.
//
// InitAccessor builds the persistent query plan and change cursor. It must
// be called exactly once per binding.
type Accessor[V any] interface {
	InitAccessor(w *ecs.World) State[V]
	Access() ecs.Access
}

// QueryParam lifts an Accessor into a Param, delegating 1:1.
func QueryParam[V any](a Accessor[V]) Param[V] {
	return queryParam[V]{a: a}
}

type queryParam[V any] struct {
	a Accessor[V]
}

func (q queryParam[V]) Init(w *ecs.World) State[V] { return q.a.InitAccessor(w) }
func (q queryParam[V]) Access() ecs.Access        { return q.a.Access() }

// Read is shorthand for QueryParam(Ref[T](filters...)).
func Read[T any](filters ...ecs.Filter) Param[*Query[T]] {
	return QueryParam(Ref[T](filters...))
}

// Write is shorthand for QueryParam(Mut[T](filters...)).
func Write[T any](filters ...ecs.Filter) Param[*QueryMut[T]] {
	return QueryParam(Mut[T](filters...))
}

// Ref returns an Accessor reading component T on entities matching filters.
func Ref[T any](filters ...ecs.Filter) Accessor[*Query[T]] {
	return refAccessor[T]{filters: filters}
}

// Mut returns an Accessor reading and writing component T.
//
// Mut reports change exactly like Ref. Writes made through it are stamped
// after the current window, so a reaction that both watches and writes T
// runs again on the next sweep.
func Mut[T any](filters ...ecs.Filter) Accessor[*QueryMut[T]] {
	return mutAccessor[T]{filters: filters}
}

type refAccessor[T any] struct {
	filters []ecs.Filter
}

func (a refAccessor[T]) InitAccessor(w *ecs.World) State[*Query[T]] {
	return &refState[T]{cursor: newCursor[T](w, a.filters)}
}

func (a refAccessor[T]) Access() ecs.Access {
	return ecs.Access{}.Read(ecs.ComponentID[T]())
}

type mutAccessor[T any] struct {
	filters []ecs.Filter
}

func (a mutAccessor[T]) InitAccessor(w *ecs.World) State[*QueryMut[T]] {
	return &mutState[T]{cursor: newCursor[T](w, a.filters)}
}

func (a mutAccessor[T]) Access() ecs.Access {
	return ecs.Access{}.Write(ecs.ComponentID[T]())
}

// cursor is the saved query plan plus the last-seen change tick.
//
// check runs the changed-since-last-check query, records the window it
// evaluated so a following Get can expose the triggering rows, and moves
// lastRun to the view's ThisRun.
type cursor[T any] struct {
	filters []ecs.Filter
	lastRun int64
	from    int64
	to      int64
}

func newCursor[T any](w *ecs.World, filters []ecs.Filter) cursor[T] {
	baseline := w.ChangeTick()
	return cursor[T]{
		filters: append([]ecs.Filter(nil), filters...),
		lastRun: baseline,
		from:    baseline,
		to:      baseline,
	}
}

func (c *cursor[T]) check(w *ecs.DeferredWorld) bool {
	from, to := c.lastRun, w.ThisRun()
	changed := false
	for row := range ecs.Scan[T](w, c.filters...) {
		if row.Ticks.ChangedIn(from, to) {
			changed = true
			break
		}
	}
	c.from, c.to = from, to
	c.lastRun = to
	return changed
}

func (c *cursor[T]) query(w *ecs.DeferredWorld) Query[T] {
	return Query[T]{view: w, filters: c.filters, from: c.from, to: c.to}
}

type refState[T any] struct {
	cursor cursor[T]
}

func (s *refState[T]) IsChanged(w *ecs.DeferredWorld) bool { return s.cursor.check(w) }

func (s *refState[T]) Get(w *ecs.DeferredWorld) *Query[T] {
	q := s.cursor.query(w)
	return &q
}

type mutState[T any] struct {
	cursor cursor[T]
}

func (s *mutState[T]) IsChanged(w *ecs.DeferredWorld) bool { return s.cursor.check(w) }

func (s *mutState[T]) Get(w *ecs.DeferredWorld) *QueryMut[T] {
	return &QueryMut[T]{Query: s.cursor.query(w)}
}

// Query is a filtered, read-only view of component T, valid for one run.
type Query[T any] struct {
	view    *ecs.DeferredWorld
	filters []ecs.Filter
	from    int64
	to      int64
}

// Get returns e's component if e matches the query.
func (q *Query[T]) Get(e ecs.Entity) (T, bool) {
	mustBeValid(q.view)
	value, ok := ecs.Get[T](q.view, e)
	if !ok || !ecs.Matches(q.view, e, q.filters...) {
		var zero T
		return zero, false
	}
	return value, true
}

// All yields every matching entity and its component in ascending order.
func (q *Query[T]) All() iter.Seq2[ecs.Entity, T] {
	rows := q.rows()
	return func(yield func(ecs.Entity, T) bool) {
		for row := range rows {
			if !yield(row.Entity, row.Value) {
				return
			}
		}
	}
}

// Changed yields the matching rows that changed in the window evaluated by
// the most recent change check.
func (q *Query[T]) Changed() iter.Seq2[ecs.Entity, T] {
	rows := q.rows()
	return func(yield func(ecs.Entity, T) bool) {
		for row := range rows {
			if !row.Ticks.ChangedIn(q.from, q.to) {
				continue
			}
			if !yield(row.Entity, row.Value) {
				return
			}
		}
	}
}

// Len returns the number of matching entities.
func (q *Query[T]) Len() int {
	n := 0
	for range q.rows() {
		n++
	}
	return n
}

// Single returns the only matching entity. ok is false when there are
// zero or several matches.
func (q *Query[T]) Single() (ecs.Entity, T, bool) {
	var (
		found ecs.Entity
		value T
		count int
	)
	for row := range q.rows() {
		count++
		if count > 1 {
			var zero T
			return 0, zero, false
		}
		found, value = row.Entity, row.Value
	}
	return found, value, count == 1
}

func (q *Query[T]) rows() iter.Seq[ecs.Row[T]] {
	mustBeValid(q.view)
	return ecs.Scan[T](q.view, q.filters...)
}

// QueryMut is a filtered, writable view of component T, valid for one run.
type QueryMut[T any] struct {
	Query[T]
}

// Set replaces e's component if e matches the query.
// Returns false if e does not match.
func (q *QueryMut[T]) Set(e ecs.Entity, value T) bool {
	if _, ok := q.Get(e); !ok {
		return false
	}
	return ecs.Set(q.view, e, value)
}

// Update applies fn to every matching component.
// Returns the number of components written.
func (q *QueryMut[T]) Update(fn func(e ecs.Entity, v T) T) int {
	type pending struct {
		e ecs.Entity
		v T
	}
	var writes []pending
	for e, v := range q.All() {
		writes = append(writes, pending{e: e, v: fn(e, v)})
	}
	for _, p := range writes {
		ecs.Set(q.view, p.e, p.v)
	}
	return len(writes)
}
