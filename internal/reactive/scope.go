package reactive

import "github.com/roach88/reactor/internal/ecs"

// Unit is the input and output type of pure reactions.
type Unit = struct{}

// Scope is the per-run input handed to user logic: the reaction's own
// entity plus the caller-supplied input.
type Scope[T any] struct {
	Entity ecs.Entity
	Input  T
}

// Value returns the wrapped input.
func (s Scope[T]) Value() T {
	return s.Input
}
