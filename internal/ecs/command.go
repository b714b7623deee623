package ecs

import (
	"reflect"
	"sync"
)

// Command is a deferred structural edit applied by World.Flush.
type Command func(w *World)

// Commands is a sink for deferred structural edits.
// Handles are cheap; every handle for a World feeds the same queue.
type Commands struct {
	w *World
}

// Spawn reserves a new entity now and queues its creation with the given
// components. The entity is not alive until the queue is flushed.
func (c *Commands) Spawn(components ...any) Entity {
	e := c.w.reserve()
	c.w.queue.Enqueue(func(w *World) {
		w.spawnReserved(e, components)
	})
	return e
}

// Insert queues adding or replacing components on e.
// Skipped at apply time if e is no longer alive.
func (c *Commands) Insert(e Entity, components ...any) {
	c.w.queue.Enqueue(func(w *World) {
		if !w.Alive(e) {
			w.logger.Debug("insert skipped: entity not alive", "entity", e)
			return
		}
		w.insert(e, components)
	})
}

// Despawn queues removal of e.
func (c *Commands) Despawn(e Entity) {
	c.w.queue.Enqueue(func(w *World) {
		w.despawn(e)
	})
}

// Add queues an arbitrary command.
func (c *Commands) Add(cmd Command) {
	c.w.queue.Enqueue(cmd)
}

// Len returns the number of commands waiting in the World's queue.
func (c *Commands) Len() int {
	return c.w.queue.Len()
}

// RemoveLater queues detaching the component of type T from e.
func RemoveLater[T any](c *Commands, e Entity) {
	typ := reflect.TypeFor[T]()
	c.w.queue.Enqueue(func(w *World) {
		w.remove(typ, e)
	})
}

// InsertResourceLater queues inserting or replacing the resource of type T.
func InsertResourceLater[T any](c *Commands, value T) {
	typ := reflect.TypeFor[T]()
	c.w.queue.Enqueue(func(w *World) {
		w.insertResource(typ, value)
	})
}

// commandQueue is a FIFO of pending commands.
//
// The queue is unbounded so commands queued while flushing (for example by
// insert hooks) are picked up by the same flush.
type commandQueue struct {
	mu   sync.Mutex
	cmds []Command
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		cmds: make([]Command, 0, 16),
	}
}

// Enqueue adds a command to the back of the queue.
func (q *commandQueue) Enqueue(cmd Command) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cmds = append(q.cmds, cmd)
}

// TryDequeue removes and returns the front command.
// Returns (nil, false) if the queue is empty.
func (q *commandQueue) TryDequeue() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.cmds) == 0 {
		return nil, false
	}

	cmd := q.cmds[0]

	// Nil out the slot so the closure and its captures can be collected.
	q.cmds[0] = nil

	if len(q.cmds) == 1 {
		q.cmds = q.cmds[:0]
	} else {
		q.cmds = q.cmds[1:]
	}

	return cmd, true
}

// Len returns the current queue length.
func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cmds)
}
