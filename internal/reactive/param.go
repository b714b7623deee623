package reactive

import (
	"fmt"
	"reflect"

	"github.com/roach88/reactor/internal/ecs"
)

// State is the persistent, per-binding state a Param produces through Init.
//
// IsChanged is a cheap check against the state and the view's change
// window. Get materializes the view handed to user logic; it must not
// corrupt the state when called without a preceding IsChanged.
type State[V any] interface {
	IsChanged(w *ecs.DeferredWorld) bool
	Get(w *ecs.DeferredWorld) V
}

// Param is a reaction input that can report change and materialize a view.
//
// Init must be called exactly once per binding, before any State call.
// Access declares the data the view reads and writes.
type Param[V any] interface {
	Init(w *ecs.World) State[V]
	Access() ecs.Access
}

// CommandsParam returns a Param that hands out the World's command sink.
// It never reports change: a command sink is write-only.
func CommandsParam() Param[*ecs.Commands] {
	return commandsParam{}
}

type commandsParam struct{}

func (commandsParam) Init(*ecs.World) State[*ecs.Commands] { return commandsState{} }
func (commandsParam) Access() ecs.Access                   { return ecs.Access{} }

type commandsState struct{}

func (commandsState) IsChanged(*ecs.DeferredWorld) bool { return false }

func (commandsState) Get(w *ecs.DeferredWorld) *ecs.Commands {
	return w.Commands()
}

// Res returns a Param reading the resource of type R.
//
// Each binding keeps its own change cursor, like a query: IsChanged reports
// whether the resource changed since the binding's previous check, up to
// the view's ThisRun, then advances the cursor. Writes made before Init are
// never reported. The resource must be present; a missing resource is a
// programming error and panics.
func Res[R any]() Param[*ResRef[R]] {
	return resParam[R]{}
}

type resParam[R any] struct{}

func (resParam[R]) Init(w *ecs.World) State[*ResRef[R]] {
	return &resState[R]{cursor: newResCursor(w)}
}

func (resParam[R]) Access() ecs.Access {
	return ecs.Access{}.Read(ecs.ResourceID[R]())
}

type resState[R any] struct {
	cursor resCursor
}

func (s *resState[R]) IsChanged(w *ecs.DeferredWorld) bool {
	return s.cursor.check(mustResourceTicks[R](w), w.ThisRun())
}

func (s *resState[R]) Get(w *ecs.DeferredWorld) *ResRef[R] {
	return newResRef[R](w, s.cursor)
}

// ResMut returns a Param reading and writing the resource of type R.
func ResMut[R any]() Param[*ResMutRef[R]] {
	return resMutParam[R]{}
}

type resMutParam[R any] struct{}

func (resMutParam[R]) Init(w *ecs.World) State[*ResMutRef[R]] {
	return &resMutState[R]{cursor: newResCursor(w)}
}

func (resMutParam[R]) Access() ecs.Access {
	return ecs.Access{}.Write(ecs.ResourceID[R]())
}

type resMutState[R any] struct {
	cursor resCursor
}

func (s *resMutState[R]) IsChanged(w *ecs.DeferredWorld) bool {
	return s.cursor.check(mustResourceTicks[R](w), w.ThisRun())
}

func (s *resMutState[R]) Get(w *ecs.DeferredWorld) *ResMutRef[R] {
	return &ResMutRef[R]{ResRef: *newResRef[R](w, s.cursor)}
}

// resCursor is a resource binding's change cursor. (from, to] is the window
// evaluated by the most recent check; before any check it is empty.
type resCursor struct {
	lastRun int64
	from    int64
	to      int64
}

func newResCursor(w *ecs.World) resCursor {
	tick := w.ChangeTick()
	return resCursor{lastRun: tick, from: tick, to: tick}
}

func (c *resCursor) check(ticks ecs.Ticks, thisRun int64) bool {
	c.from, c.to = c.lastRun, thisRun
	c.lastRun = thisRun
	return ticks.ChangedIn(c.from, c.to)
}

// ResRef is a read-only view of a resource, valid for one run.
type ResRef[R any] struct {
	view    *ecs.DeferredWorld
	value   R
	ticks   ecs.Ticks
	changed bool
	added   bool
}

func newResRef[R any](w *ecs.DeferredWorld, c resCursor) *ResRef[R] {
	ticks := mustResourceTicks[R](w)
	value, _ := ecs.Resource[R](w)
	return &ResRef[R]{
		view:    w,
		value:   value,
		ticks:   ticks,
		changed: ticks.ChangedIn(c.from, c.to),
		added:   ticks.AddedIn(c.from, c.to),
	}
}

// Value returns the resource value captured when the view was made.
func (r *ResRef[R]) Value() R {
	mustBeValid(r.view)
	return r.value
}

// IsChanged reports whether the resource changed in the run's window.
func (r *ResRef[R]) IsChanged() bool {
	return r.changed
}

// IsAdded reports whether the resource was inserted in the run's window.
func (r *ResRef[R]) IsAdded() bool {
	return r.added
}

// Ticks returns the resource's change ticks.
func (r *ResRef[R]) Ticks() ecs.Ticks {
	return r.ticks
}

// ResMutRef is a writable view of a resource, valid for one run.
type ResMutRef[R any] struct {
	ResRef[R]
}

// Set replaces the resource value and stamps it changed. The write lands
// after the current window, so readers see it on the next sweep.
func (r *ResMutRef[R]) Set(value R) {
	mustBeValid(r.view)
	ecs.SetResource(r.view, value)
	r.value = value
}

func mustResourceTicks[R any](w *ecs.DeferredWorld) ecs.Ticks {
	ticks, ok := ecs.ResourceTicks[R](w)
	if !ok {
		panic(fmt.Sprintf("reactive: resource %s is not present", reflect.TypeFor[R]()))
	}
	return ticks
}

func mustBeValid(w *ecs.DeferredWorld) {
	if !w.Valid() {
		panic("reactive: view used outside its borrow window")
	}
}

// Map adapts the view produced by p. Change detection and access are p's.
func Map[V, U any](p Param[V], fn func(V) U) Param[U] {
	return mapParam[V, U]{p: p, fn: fn}
}

// Erase maps p's view to any, so params of different view types can be
// joined with JoinAll.
func Erase[V any](p Param[V]) Param[any] {
	return Map(p, func(v V) any { return v })
}

type mapParam[V, U any] struct {
	p  Param[V]
	fn func(V) U
}

func (m mapParam[V, U]) Init(w *ecs.World) State[U] {
	return mapState[V, U]{inner: m.p.Init(w), fn: m.fn}
}

func (m mapParam[V, U]) Access() ecs.Access {
	return m.p.Access()
}

type mapState[V, U any] struct {
	inner State[V]
	fn    func(V) U
}

func (s mapState[V, U]) IsChanged(w *ecs.DeferredWorld) bool {
	return s.inner.IsChanged(w)
}

func (s mapState[V, U]) Get(w *ecs.DeferredWorld) U {
	return s.fn(s.inner.Get(w))
}
