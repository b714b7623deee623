package ecs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_RunsPassesInOrderAndFlushes(t *testing.T) {
	w := NewWorld()
	var order []string

	s := NewSchedule(nil).
		Add(Pass{Name: "a", Run: func(_ context.Context, w *World) error {
			order = append(order, "a")
			w.Commands().Spawn(position{})
			return nil
		}}).
		Add(Pass{Name: "b", Run: func(_ context.Context, w *World) error {
			order = append(order, "b")
			assert.Equal(t, 1, w.Len(), "commands from pass a are flushed before pass b")
			return nil
		}})

	require.NoError(t, s.Run(context.Background(), w))
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, []string{"a", "b"}, s.Passes())
}

func TestSchedule_FlushesBeforeFirstPass(t *testing.T) {
	w := NewWorld()
	w.Commands().Spawn(position{})

	s := NewSchedule(nil).Add(Pass{Name: "check", Run: func(_ context.Context, w *World) error {
		assert.Equal(t, 1, w.Len())
		return nil
	}})
	require.NoError(t, s.Run(context.Background(), w))
}

func TestSchedule_FailingPassStops(t *testing.T) {
	w := NewWorld()
	boom := errors.New("boom")
	ran := false

	s := NewSchedule(nil).
		Add(Pass{Name: "bad", Run: func(_ context.Context, w *World) error {
			w.Commands().Spawn(position{})
			return boom
		}}).
		Add(Pass{Name: "never", Run: func(context.Context, *World) error {
			ran = true
			return nil
		}})

	err := s.Run(context.Background(), w)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "pass bad")
	assert.False(t, ran)
	assert.Equal(t, 1, w.Len(), "commands queued before the failure are flushed")
}

func TestSchedule_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSchedule(nil).Add(Pass{Name: "p", Run: func(context.Context, *World) error {
		t.Fatal("pass must not run")
		return nil
	}})
	assert.ErrorIs(t, s.Run(ctx, NewWorld()), context.Canceled)
}
