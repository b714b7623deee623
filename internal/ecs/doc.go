// Package ecs provides the entity-component store that reactions run against.
//
// The store keeps typed component columns keyed by Go type, singleton
// resources, and a logical change clock. Every write stamps a fresh tick from
// the clock so readers can ask "did this change since tick N".
//
// # Borrow Model
//
// At most one deferred view (*DeferredWorld) is open on a World at a time.
// While it is open, structural edits on the World (spawn, insert, despawn,
// remove) panic; they must be queued through Commands and are applied by
// World.Flush once the view is released.
//
// A deferred view can be split with Reborrow. The parent is suspended until
// the child is released, so exactly one handle is usable at any instant.
// Anything derived from a view is only valid until that view is released.
//
// # Change Windows
//
// A deferred view carries the window (LastRun, ThisRun]. ThisRun is drawn
// from the clock when the view opens, so writes made through the view are
// stamped after ThisRun and fall into the next window, never the current one.
//
// # Iteration Order
//
// Columns iterate in ascending entity order. Callers should not depend on it
// for correctness; it exists so traces are reproducible.
package ecs
