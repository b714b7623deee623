package ecs

import (
	"iter"
	"reflect"
)

// Row is one entity's component of type T together with its change ticks.
type Row[T any] struct {
	Entity Entity
	Value  T
	Ticks  Ticks
}

// Get returns the component of type T held by e.
func Get[T any](v View, e Entity) (T, bool) {
	v.enter()
	var zero T
	col, ok := v.world().columns[reflect.TypeFor[T]()]
	if !ok {
		return zero, false
	}
	c, ok := col.cells[e]
	if !ok {
		return zero, false
	}
	return c.value.(T), true
}

// TicksOf returns the change ticks of e's component of type T.
func TicksOf[T any](v View, e Entity) (Ticks, bool) {
	v.enter()
	col, ok := v.world().columns[reflect.TypeFor[T]()]
	if !ok {
		return Ticks{}, false
	}
	c, ok := col.cells[e]
	if !ok {
		return Ticks{}, false
	}
	return c.ticks, true
}

// Has reports whether e holds a component of type T.
func Has[T any](v View, e Entity) bool {
	v.enter()
	col, ok := v.world().columns[reflect.TypeFor[T]()]
	return ok && col.has(e)
}

// Set replaces e's existing component of type T and stamps it changed.
// Set is not structural: it never attaches a new component, so it is
// allowed through a deferred view. Returns false if e holds no T.
func Set[T any](v View, e Entity, value T) bool {
	v.enter()
	w := v.world()
	col, ok := w.columns[reflect.TypeFor[T]()]
	if !ok {
		return false
	}
	c, ok := col.cells[e]
	if !ok {
		return false
	}
	c.value = value
	c.ticks.Changed = w.clock.Next()
	return true
}

// Scan yields every entity holding T that matches all filters, in ascending
// entity order. Structural edits must not happen during the scan.
func Scan[T any](v View, filters ...Filter) iter.Seq[Row[T]] {
	v.enter()
	w := v.world()
	col := w.columns[reflect.TypeFor[T]()]
	return func(yield func(Row[T]) bool) {
		if col == nil {
			return
		}
		for i := 0; i < len(col.entities); i++ {
			e := col.entities[i]
			c, ok := col.cells[e]
			if !ok || !matchAll(w, e, filters) {
				continue
			}
			if !yield(Row[T]{Entity: e, Value: c.value.(T), Ticks: c.ticks}) {
				return
			}
		}
	}
}

// Resource returns the singleton resource of type T.
func Resource[T any](v View) (T, bool) {
	v.enter()
	var zero T
	c, ok := v.world().resources[reflect.TypeFor[T]()]
	if !ok {
		return zero, false
	}
	return c.value.(T), true
}

// ResourceTicks returns the change ticks of the resource of type T.
func ResourceTicks[T any](v View) (Ticks, bool) {
	v.enter()
	c, ok := v.world().resources[reflect.TypeFor[T]()]
	if !ok {
		return Ticks{}, false
	}
	return c.ticks, true
}

// SetResource replaces the existing resource of type T and stamps it changed.
// Returns false if the resource is not present.
func SetResource[T any](v View, value T) bool {
	v.enter()
	w := v.world()
	c, ok := w.resources[reflect.TypeFor[T]()]
	if !ok {
		return false
	}
	c.value = value
	c.ticks.Changed = w.clock.Next()
	return true
}
