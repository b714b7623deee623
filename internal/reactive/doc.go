// Package reactive re-runs small units of logic when the data they last
// read has changed.
//
// ARCHITECTURE:
//
// Capabilities (leaf to root):
//  1. Accessor: a typed, filtered component read with a change cursor
//  2. Param: any reaction input (accessor, resource, command sink, tuples)
//  3. FunctionSystem: binds a user function to a Param
//  4. Reaction: the type-erased, shareable unit stored as a component
//  5. Driver: the per-sweep procedure that checks and runs reactions
//
// Every Param produces its persistent State once, through Init, and that
// State is reused for every later IsChanged/Get call. Rebuilding it would
// discard the change cursor.
//
// Sweep Flow:
//  1. Driver opens the World's deferred view with window (lastRun, thisRun]
//  2. For each (Entity, Reaction) row, the reaction is locked and checked
//     through a reborrowed sub-view
//  3. Changed reactions run through another reborrow; user logic queues
//     structural edits through Commands
//  4. The view is released; the schedule flushes commands after the pass
//
// CRITICAL PATTERNS:
//
// No same-sweep cascade: writes made while a sweep is open are stamped after
// thisRun, so they are seen by the next sweep, never the current one.
//
// No short circuit: composite params evaluate every member's IsChanged so
// each member's cursor advances on every check.
//
// Construction-time overlap detection: a FunctionSystem rejects parameter
// lists whose declared access writes data another member also touches.
package reactive
