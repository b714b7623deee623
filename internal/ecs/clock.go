package ecs

import "sync/atomic"

// TickSource supplies change ticks to a World.
// Implemented by Clock (production) and testutil.DeterministicClock (tests).
type TickSource interface {
	Next() int64
	Current() int64
}

// Clock is a monotonic logical clock for change detection.
//
// Every component or resource write is stamped with Next(), and every
// deferred view captures Next() as its ThisRun tick. A single counter for
// both keeps "written after the view opened" a plain integer comparison.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific tick.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next tick and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current tick without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
