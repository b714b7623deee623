package ecs

// Ticks records when a component or resource cell was added and last changed.
type Ticks struct {
	Added   int64
	Changed int64
}

// ChangedIn reports whether the cell changed inside the window (from, to].
func (t Ticks) ChangedIn(from, to int64) bool {
	return t.Changed > from && t.Changed <= to
}

// AddedIn reports whether the cell was added inside the window (from, to].
func (t Ticks) AddedIn(from, to int64) bool {
	return t.Added > from && t.Added <= to
}

type cell struct {
	value any
	ticks Ticks
}
