package ecs

import (
	"context"
	"fmt"
	"log/slog"
)

// Pass is one named step of a Schedule.
type Pass struct {
	Name string
	Run  func(ctx context.Context, w *World) error
}

// Schedule runs passes in registration order against a World.
//
// Queued commands are flushed before the first pass and after every pass,
// so each pass starts from a settled World.
type Schedule struct {
	passes []Pass
	logger *slog.Logger
}

// NewSchedule creates an empty schedule. A nil logger uses slog.Default().
func NewSchedule(logger *slog.Logger) *Schedule {
	if logger == nil {
		logger = slog.Default()
	}
	return &Schedule{logger: logger}
}

// Add appends a pass and returns the schedule for chaining.
func (s *Schedule) Add(p Pass) *Schedule {
	s.passes = append(s.passes, p)
	return s
}

// Passes returns the pass names in execution order.
func (s *Schedule) Passes() []string {
	names := make([]string, len(s.passes))
	for i, p := range s.passes {
		names[i] = p.Name
	}
	return names
}

// Run executes every pass once. The first failing pass stops the run;
// commands queued before the failure are still flushed.
func (s *Schedule) Run(ctx context.Context, w *World) error {
	w.Flush()
	for _, p := range s.passes {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := p.Run(ctx, w)
		applied := w.Flush()
		if err != nil {
			return fmt.Errorf("pass %s: %w", p.Name, err)
		}
		s.logger.Debug("pass complete", "pass", p.Name, "commands", applied)
	}
	return nil
}
