package reactive

import "github.com/roach88/reactor/internal/ecs"

// System is the uniform runnable the Driver works with: persistent state
// behind Init, a cheap change check, and a run that re-derives its views.
type System[In, Out any] interface {
	Init(w *ecs.World)
	IsChanged(w *ecs.DeferredWorld) bool
	Run(in In, w *ecs.DeferredWorld, e ecs.Entity) Out
	Access() ecs.Access
}

// FunctionSystem binds a user function to a Param.
// Its only state is the Param's State, created by Init.
type FunctionSystem[In, Out, P any] struct {
	param Param[P]
	fn    func(Scope[In], P) Out
	state State[P]
}

// NewFunctionSystem binds fn to param. The param's declared access is
// checked here: overlapping access to written data is rejected with a
// CONFLICTING_ACCESS RuntimeError.
func NewFunctionSystem[In, Out, P any](param Param[P], fn func(Scope[In], P) Out) (*FunctionSystem[In, Out, P], error) {
	if conflicts := param.Access().Conflicts(); len(conflicts) > 0 {
		return nil, NewConflictError(conflicts)
	}
	return &FunctionSystem[In, Out, P]{param: param, fn: fn}, nil
}

// Init derives the param state. Calling Init again rebuilds the state and
// discards its change cursor; Reaction guarantees a single call.
func (s *FunctionSystem[In, Out, P]) Init(w *ecs.World) {
	s.state = s.param.Init(w)
}

// IsChanged reports whether any input changed. Requires Init.
func (s *FunctionSystem[In, Out, P]) IsChanged(w *ecs.DeferredWorld) bool {
	return s.state.IsChanged(w)
}

// Run derives the views from the current view instant and calls the bound
// function. The views are only valid for the duration of the call.
func (s *FunctionSystem[In, Out, P]) Run(in In, w *ecs.DeferredWorld, e ecs.Entity) Out {
	sub := w.Reborrow()
	defer sub.Release()
	views := s.state.Get(sub)
	return s.fn(Scope[In]{Entity: e, Input: in}, views)
}

// Access returns the param's declared access.
func (s *FunctionSystem[In, Out, P]) Access() ecs.Access {
	return s.param.Access()
}

// Initialized reports whether Init has run.
func (s *FunctionSystem[In, Out, P]) Initialized() bool {
	return s.state != nil
}

// Fn1 binds a one-param function.
func Fn1[In, Out, A any](a Param[A], fn func(Scope[In], A) Out) (*FunctionSystem[In, Out, A], error) {
	return NewFunctionSystem(a, fn)
}

// Fn2 binds a two-param function; views are forwarded positionally.
func Fn2[In, Out, A, B any](a Param[A], b Param[B], fn func(Scope[In], A, B) Out) (*FunctionSystem[In, Out, Tuple2[A, B]], error) {
	return NewFunctionSystem(Join2(a, b), func(s Scope[In], p Tuple2[A, B]) Out {
		return fn(s, p.V1, p.V2)
	})
}

// Fn3 binds a three-param function; views are forwarded positionally.
func Fn3[In, Out, A, B, C any](a Param[A], b Param[B], c Param[C], fn func(Scope[In], A, B, C) Out) (*FunctionSystem[In, Out, Tuple3[A, B, C]], error) {
	return NewFunctionSystem(Join3(a, b, c), func(s Scope[In], p Tuple3[A, B, C]) Out {
		return fn(s, p.V1, p.V2, p.V3)
	})
}
