package ecs

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strconv"
)

// Entity is an opaque handle to one logical row in a World.
// Entities are never reused; the zero value is invalid.
type Entity uint64

// IsValid reports whether e could refer to an entity.
func (e Entity) IsValid() bool {
	return e != 0
}

// String renders the entity for logs and traces.
func (e Entity) String() string {
	return "entity(" + strconv.FormatUint(uint64(e), 10) + ")"
}

// InsertHook is implemented by component values that want to be notified
// when they are attached to an entity.
//
// OnInsert runs synchronously, after the value is stored, with a deferred
// view whose change window is empty. Structural work must be queued through
// the view's Commands.
type InsertHook interface {
	OnInsert(w *DeferredWorld, e Entity)
}

// View is anything components and resources can be read through: a World
// when no deferred view is open, or an open DeferredWorld.
type View interface {
	world() *World
	enter()
}

// World is the shared mutable container of components and resources.
//
// World is not safe for concurrent use. All access is expected from the
// goroutine driving the schedule.
type World struct {
	clock     TickSource
	next      Entity
	alive     map[Entity]struct{}
	columns   map[reflect.Type]*column
	resources map[reflect.Type]*cell
	queue     *commandQueue
	borrowed  bool
	logger    *slog.Logger
}

// Option configures a World.
type Option func(*World)

// WithClock sets the tick source used for change detection.
// Tests use this to get reproducible ticks.
func WithClock(c TickSource) Option {
	return func(w *World) {
		w.clock = c
	}
}

// WithLogger sets the logger used for command application diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(w *World) {
		w.logger = l
	}
}

// NewWorld creates an empty World.
func NewWorld(opts ...Option) *World {
	w := &World{
		clock:     NewClock(),
		alive:     make(map[Entity]struct{}),
		columns:   make(map[reflect.Type]*column),
		resources: make(map[reflect.Type]*cell),
		queue:     newCommandQueue(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *World) world() *World { return w }

func (w *World) enter() {
	if w.borrowed {
		panic("ecs: world accessed directly while a deferred view is open")
	}
}

// mustBeExclusive guards structural edits.
func (w *World) mustBeExclusive(op string) {
	if w.borrowed {
		panic(fmt.Sprintf("ecs: %s while a deferred view is open; queue it through Commands", op))
	}
}

// ChangeTick returns the clock's current tick.
func (w *World) ChangeTick() int64 {
	return w.clock.Current()
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return len(w.alive)
}

// Alive reports whether e is a live entity.
func (w *World) Alive(e Entity) bool {
	_, ok := w.alive[e]
	return ok
}

// Spawn creates a new entity holding the given components.
// Components are keyed by their dynamic type; a later value of the same
// type replaces the earlier one.
func (w *World) Spawn(components ...any) Entity {
	w.mustBeExclusive("spawn")
	e := w.reserve()
	w.spawnReserved(e, components)
	return e
}

// Insert adds or replaces components on a live entity.
// Returns false if e is not alive.
func (w *World) Insert(e Entity, components ...any) bool {
	w.mustBeExclusive("insert")
	if !w.Alive(e) {
		return false
	}
	w.insert(e, components)
	return true
}

// Despawn removes e and all of its components.
// Returns false if e was not alive.
func (w *World) Despawn(e Entity) bool {
	w.mustBeExclusive("despawn")
	return w.despawn(e)
}

// Remove detaches the component of type T from e.
// Returns false if e did not hold one.
func Remove[T any](w *World, e Entity) bool {
	w.mustBeExclusive("remove")
	return w.remove(reflect.TypeFor[T](), e)
}

// InsertResource adds or replaces the singleton resource of type T.
func InsertResource[T any](w *World, value T) {
	w.mustBeExclusive("insert resource")
	w.insertResource(reflect.TypeFor[T](), value)
}

// RemoveResource removes the resource of type T.
// Returns false if it was not present.
func RemoveResource[T any](w *World) bool {
	w.mustBeExclusive("remove resource")
	typ := reflect.TypeFor[T]()
	if _, ok := w.resources[typ]; !ok {
		return false
	}
	delete(w.resources, typ)
	return true
}

// BeginDeferred opens the World's deferred view with the change window
// (lastRun, Next()]. Only one deferred view may be open at a time; the
// caller must Release it before touching the World structurally again.
func (w *World) BeginDeferred(lastRun int64) *DeferredWorld {
	if w.borrowed {
		panic("ecs: deferred view already open")
	}
	return w.open(lastRun, w.clock.Next())
}

// Commands returns a command sink for this World.
// Queued commands are applied by Flush.
func (w *World) Commands() *Commands {
	return &Commands{w: w}
}

// Flush applies queued commands in FIFO order, including commands queued
// while flushing. Returns the number of commands applied.
func (w *World) Flush() int {
	w.mustBeExclusive("flush")
	applied := 0
	for {
		cmd, ok := w.queue.TryDequeue()
		if !ok {
			break
		}
		cmd(w)
		applied++
	}
	if applied > 0 {
		w.logger.Debug("commands applied", "count", applied, "tick", w.clock.Current())
	}
	return applied
}

// Pending returns the number of queued, unapplied commands.
func (w *World) Pending() int {
	return w.queue.Len()
}

func (w *World) open(lastRun, thisRun int64) *DeferredWorld {
	w.borrowed = true
	return &DeferredWorld{w: w, lastRun: lastRun, thisRun: thisRun}
}

func (w *World) reserve() Entity {
	w.next++
	return w.next
}

func (w *World) spawnReserved(e Entity, components []any) {
	w.alive[e] = struct{}{}
	w.insert(e, components)
}

func (w *World) insert(e Entity, components []any) {
	var hooks []InsertHook
	for _, c := range components {
		if c == nil {
			panic("ecs: nil component")
		}
		typ := reflect.TypeOf(c)
		col := w.column(typ)
		tick := w.clock.Next()
		if existing, ok := col.cells[e]; ok {
			existing.value = c
			existing.ticks.Changed = tick
		} else {
			col.put(e, &cell{value: c, ticks: Ticks{Added: tick, Changed: tick}})
		}
		if h, ok := c.(InsertHook); ok {
			hooks = append(hooks, h)
		}
	}
	if len(hooks) == 0 {
		return
	}

	// Hooks see an empty window: nothing counts as changed for them.
	now := w.clock.Current()
	dw := w.open(now, now)
	defer dw.Release()
	for _, h := range hooks {
		h.OnInsert(dw, e)
	}
}

func (w *World) despawn(e Entity) bool {
	if !w.Alive(e) {
		return false
	}
	for _, col := range w.columns {
		col.remove(e)
	}
	delete(w.alive, e)
	return true
}

func (w *World) remove(typ reflect.Type, e Entity) bool {
	col, ok := w.columns[typ]
	if !ok {
		return false
	}
	return col.remove(e)
}

func (w *World) insertResource(typ reflect.Type, value any) {
	tick := w.clock.Next()
	if existing, ok := w.resources[typ]; ok {
		existing.value = value
		existing.ticks.Changed = tick
		return
	}
	w.resources[typ] = &cell{value: value, ticks: Ticks{Added: tick, Changed: tick}}
}

func (w *World) column(typ reflect.Type) *column {
	col, ok := w.columns[typ]
	if !ok {
		col = &column{cells: make(map[Entity]*cell)}
		w.columns[typ] = col
	}
	return col
}

// column stores one component type. entities is kept sorted.
type column struct {
	entities []Entity
	cells    map[Entity]*cell
}

func (c *column) has(e Entity) bool {
	_, ok := c.cells[e]
	return ok
}

func (c *column) put(e Entity, v *cell) {
	if _, ok := c.cells[e]; !ok {
		i, _ := slices.BinarySearch(c.entities, e)
		c.entities = slices.Insert(c.entities, i, e)
	}
	c.cells[e] = v
}

func (c *column) remove(e Entity) bool {
	if _, ok := c.cells[e]; !ok {
		return false
	}
	if i, found := slices.BinarySearch(c.entities, e); found {
		c.entities = slices.Delete(c.entities, i, i+1)
	}
	delete(c.cells, e)
	return true
}
