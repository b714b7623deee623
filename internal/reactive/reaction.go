package reactive

import (
	"sync"
	"sync/atomic"

	"github.com/roach88/reactor/internal/ecs"
)

// Reaction is an attachable, stateful unit pairing user logic with
// param-derived change detection. It is stored as a component; copies share
// the same underlying state, so a Reaction value is a cloneable handle.
//
// Lifecycle:
//   - Uninitialized: created by New or On1/On2/On3
//   - Ready: after the init command queued by OnInsert is applied
//
// The transition happens exactly once. Attaching the same handle again, or
// to a second entity, never re-initializes it.
type Reaction struct {
	h *reactionHandle
}

// mu is held across init and each check-and-run. ready is read without it,
// so user logic may query its own handle mid-run.
type reactionHandle struct {
	mu    sync.Mutex
	sys   System[Unit, Unit]
	name  string
	ready atomic.Bool
}

// ReactionOption configures a Reaction.
type ReactionOption func(*reactionHandle)

// WithName sets the name used in logs, errors and the sweep journal.
func WithName(name string) ReactionOption {
	return func(h *reactionHandle) {
		h.name = name
	}
}

// New wraps a System as a Reaction.
func New(sys System[Unit, Unit], opts ...ReactionOption) Reaction {
	h := &reactionHandle{sys: sys, name: "anonymous"}
	for _, opt := range opts {
		opt(h)
	}
	return Reaction{h: h}
}

// On1 builds a Reaction from one param and a function.
func On1[A any](a Param[A], fn func(Scope[Unit], A), opts ...ReactionOption) (Reaction, error) {
	sys, err := Fn1(a, func(s Scope[Unit], va A) Unit {
		fn(s, va)
		return Unit{}
	})
	if err != nil {
		return Reaction{}, err
	}
	return New(sys, opts...), nil
}

// On2 builds a Reaction from two params and a function.
func On2[A, B any](a Param[A], b Param[B], fn func(Scope[Unit], A, B), opts ...ReactionOption) (Reaction, error) {
	sys, err := Fn2(a, b, func(s Scope[Unit], va A, vb B) Unit {
		fn(s, va, vb)
		return Unit{}
	})
	if err != nil {
		return Reaction{}, err
	}
	return New(sys, opts...), nil
}

// On3 builds a Reaction from three params and a function.
func On3[A, B, C any](a Param[A], b Param[B], c Param[C], fn func(Scope[Unit], A, B, C), opts ...ReactionOption) (Reaction, error) {
	sys, err := Fn3(a, b, c, func(s Scope[Unit], va A, vb B, vc C) Unit {
		fn(s, va, vb, vc)
		return Unit{}
	})
	if err != nil {
		return Reaction{}, err
	}
	return New(sys, opts...), nil
}

// Name returns the reaction's name.
func (r Reaction) Name() string {
	if r.h == nil {
		return ""
	}
	return r.h.name
}

// Ready reports whether the reaction has been initialized.
func (r Reaction) Ready() bool {
	if r.h == nil {
		return false
	}
	return r.h.ready.Load()
}

// Clone returns a handle sharing this reaction's state.
func (r Reaction) Clone() Reaction {
	return r
}

// Access returns the data the reaction's params declare.
func (r Reaction) Access() ecs.Access {
	if r.h == nil {
		return ecs.Access{}
	}
	return r.h.sys.Access()
}

// OnInsert schedules the one-time init through the command sink, so it runs
// once the insertion has fully settled.
func (r Reaction) OnInsert(w *ecs.DeferredWorld, e ecs.Entity) {
	w.Commands().Add(func(world *ecs.World) {
		me, ok := ecs.Get[Reaction](world, e)
		if !ok {
			return
		}
		me.initialize(world)
	})
}

// initialize runs the system's Init once. Returns false if already ready.
func (r Reaction) initialize(w *ecs.World) bool {
	if r.h == nil {
		return false
	}
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	if r.h.ready.Load() {
		return false
	}
	r.h.sys.Init(w)
	r.h.ready.Store(true)
	return true
}

// react checks the reaction and runs it when changed, holding the
// reaction's lock for both. Returns whether it ran.
func (r Reaction) react(w *ecs.DeferredWorld, e ecs.Entity) (bool, error) {
	if r.h == nil {
		return false, NewNotReadyError("", e)
	}
	if !r.h.mu.TryLock() {
		return false, NewBusyError(r.h.name, e)
	}
	defer r.h.mu.Unlock()

	if !r.h.ready.Load() {
		return false, NewNotReadyError(r.h.name, e)
	}
	if !r.check(w) {
		return false, nil
	}
	r.run(w, e)
	return true, nil
}

func (r Reaction) check(w *ecs.DeferredWorld) bool {
	sub := w.Reborrow()
	defer sub.Release()
	return r.h.sys.IsChanged(sub)
}

func (r Reaction) run(w *ecs.DeferredWorld, e ecs.Entity) {
	sub := w.Reborrow()
	defer sub.Release()
	r.h.sys.Run(Unit{}, sub, e)
}
