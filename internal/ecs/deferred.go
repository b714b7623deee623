package ecs

// DeferredWorld is a transient mutable handle into a World.
//
// It allows reads, non-structural writes (Set, SetResource) and queueing of
// structural edits through Commands. It carries the change window
// (LastRun, ThisRun] that change checks made through it are evaluated
// against.
//
// INVARIANTS:
//   - Exactly one handle in a reborrow chain is usable at any instant
//   - A released handle is never usable again
//   - Releasing the root handle ends the World's borrow
type DeferredWorld struct {
	w        *World
	parent   *DeferredWorld
	lastRun  int64
	thisRun  int64
	children int
	released bool
}

func (d *DeferredWorld) world() *World { return d.w }

func (d *DeferredWorld) enter() {
	if d.released {
		panic("ecs: deferred view used after release")
	}
	if d.children > 0 {
		panic("ecs: deferred view used while a reborrow is live")
	}
}

// Reborrow splits off a shorter-lived sub-handle with the same change window.
// d is suspended until the sub-handle is released.
func (d *DeferredWorld) Reborrow() *DeferredWorld {
	d.enter()
	d.children++
	return &DeferredWorld{
		w:       d.w,
		parent:  d,
		lastRun: d.lastRun,
		thisRun: d.thisRun,
	}
}

// Release ends this handle's borrow window. Releasing twice is a no-op.
// Panics if a reborrow of d is still live.
func (d *DeferredWorld) Release() {
	if d.released {
		return
	}
	if d.children > 0 {
		panic("ecs: deferred view released while a reborrow is live")
	}
	d.released = true
	if d.parent != nil {
		d.parent.children--
		return
	}
	d.w.borrowed = false
}

// Valid reports whether the handle can be used right now.
func (d *DeferredWorld) Valid() bool {
	return !d.released && d.children == 0
}

// LastRun is the exclusive lower bound of the change window.
func (d *DeferredWorld) LastRun() int64 {
	return d.lastRun
}

// ThisRun is the inclusive upper bound of the change window.
func (d *DeferredWorld) ThisRun() int64 {
	return d.thisRun
}

// IsChanged reports whether t changed inside this handle's window.
func (d *DeferredWorld) IsChanged(t Ticks) bool {
	return t.ChangedIn(d.lastRun, d.thisRun)
}

// IsAdded reports whether t was added inside this handle's window.
func (d *DeferredWorld) IsAdded(t Ticks) bool {
	return t.AddedIn(d.lastRun, d.thisRun)
}

// Alive reports whether e is a live entity.
func (d *DeferredWorld) Alive(e Entity) bool {
	d.enter()
	return d.w.Alive(e)
}

// ChangeTick returns the World clock's current tick.
func (d *DeferredWorld) ChangeTick() int64 {
	return d.w.ChangeTick()
}

// Commands returns a fresh handle to the World's deferred command sink.
func (d *DeferredWorld) Commands() *Commands {
	d.enter()
	return &Commands{w: d.w}
}
