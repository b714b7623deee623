package ecs

import "reflect"

// Filter restricts a scan to entities that do (With) or do not (Without)
// hold a component type. Filters passed together form a conjunction.
type Filter struct {
	typ     reflect.Type
	without bool
}

// With matches entities holding a component of type T.
func With[T any]() Filter {
	return Filter{typ: reflect.TypeFor[T]()}
}

// Without matches entities not holding a component of type T.
func Without[T any]() Filter {
	return Filter{typ: reflect.TypeFor[T](), without: true}
}

func (f Filter) String() string {
	if f.without {
		return "Without[" + f.typ.String() + "]"
	}
	return "With[" + f.typ.String() + "]"
}

func (f Filter) matches(w *World, e Entity) bool {
	col, ok := w.columns[f.typ]
	has := ok && col.has(e)
	return has != f.without
}

func matchAll(w *World, e Entity, filters []Filter) bool {
	for _, f := range filters {
		if !f.matches(w, e) {
			return false
		}
	}
	return true
}

// Matches reports whether e satisfies every filter.
func Matches(v View, e Entity, filters ...Filter) bool {
	v.enter()
	return matchAll(v.world(), e, filters)
}
