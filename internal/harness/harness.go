package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/reactor/internal/ecs"
	"github.com/roach88/reactor/internal/reactive"
	"github.com/roach88/reactor/internal/store"
	"github.com/roach88/reactor/internal/testutil"
)

// Harness executes one scenario against a fresh world.
// It runs with a deterministic clock and sweep ids so traces are
// reproducible.
type Harness struct {
	world    *ecs.World
	driver   *reactive.Driver
	schedule *ecs.Schedule
	store    *store.Store
	logger   *slog.Logger
	result   *Result

	entities map[string]ecs.Entity
	step     string
	stepRuns []string
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	journalPath string
	sweepIDs    reactive.SweepIDGenerator
	logger      *slog.Logger
}

// WithJournalPath journals sweeps to the SQLite database at path instead of
// a private in-memory one.
func WithJournalPath(path string) Option {
	return func(c *runConfig) {
		c.journalPath = path
	}
}

// WithSweepIDs overrides the sweep id generator.
func WithSweepIDs(g reactive.SweepIDGenerator) Option {
	return func(c *runConfig) {
		c.sweepIDs = g
	}
}

// WithLogger sets the logger handed to the world, driver and schedule.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Open the sweep journal (in-memory unless WithJournalPath is given)
//  2. Spawn entities, insert resources, attach reactions and flush
//  3. For each step apply writes, despawns and resource changes, then run
//     the schedule the requested number of times
//  4. Check expected runs, init counts and assertions
//
// Expectation failures are reported in the Result. The returned error is
// reserved for scenarios that cannot be executed at all.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	cfg := runConfig{
		journalPath: ":memory:",
		sweepIDs:    testutil.NewSequenceGenerator("sweep"),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	st, err := store.Open(cfg.journalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer st.Close()

	h := newHarness(st, cfg)
	ctx := context.Background()

	if err := h.setup(scenario); err != nil {
		return nil, fmt.Errorf("failed to set up scenario: %w", err)
	}
	for _, step := range scenario.Steps {
		if err := h.executeStep(ctx, step); err != nil {
			return nil, fmt.Errorf("step %q: %w", step.Name, err)
		}
	}

	h.checkInits(scenario.ExpectInits)
	h.captureState(scenario)

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func newHarness(st *store.Store, cfg runConfig) *Harness {
	world := ecs.NewWorld(
		ecs.WithClock(testutil.NewDeterministicClock()),
		ecs.WithLogger(cfg.logger),
	)
	h := &Harness{
		world:    world,
		store:    st,
		logger:   cfg.logger,
		result:   NewResult(),
		entities: make(map[string]ecs.Entity),
	}
	h.driver = reactive.NewDriver(world,
		reactive.WithLogger(cfg.logger),
		reactive.WithJournal(st),
		reactive.WithSweepIDs(cfg.sweepIDs),
	)
	h.schedule = ecs.NewSchedule(cfg.logger).Add(ecs.Pass{
		Name: "react",
		Run:  h.sweep,
	})
	return h
}

// sweep is the schedule pass. The sweep event is recorded before the
// schedule flushes, so inits of spawned reactions follow it in the trace.
func (h *Harness) sweep(ctx context.Context, w *ecs.World) error {
	rec, err := h.driver.Sweep(ctx, w)
	if err != nil {
		return err
	}
	h.result.addSweep(h.step, rec.Seq, rec.Checked, len(rec.Runs))
	return nil
}

func (h *Harness) setup(s *Scenario) error {
	for _, spec := range s.Entities {
		e := h.world.Spawn()
		spec.Components.apply(h.world, e)
		h.entities[spec.Name] = e
	}
	s.Resources.apply(h.world)

	for _, spec := range s.Reactions {
		r, err := h.buildReaction(spec)
		if err != nil {
			return err
		}
		h.world.Spawn(r)
	}
	applied := h.world.Flush()
	h.logger.Debug("scenario attached",
		"scenario", s.Name,
		"entities", len(s.Entities),
		"reactions", len(s.Reactions),
		"commands", applied)
	return nil
}

func (h *Harness) executeStep(ctx context.Context, step Step) error {
	h.step = step.Name
	h.stepRuns = nil

	for _, set := range step.Set {
		set.Components.apply(h.world, h.entities[set.Entity])
	}
	step.Resources.apply(h.world)
	for _, name := range step.Despawn {
		h.world.Despawn(h.entities[name])
	}

	for i := range step.sweeps() {
		if err := h.schedule.Run(ctx, h.world); err != nil {
			return fmt.Errorf("sweep %d: %w", i+1, err)
		}
	}

	if step.ExpectRuns != nil && !slices.Equal(step.ExpectRuns, h.stepRuns) {
		h.result.AddError(fmt.Sprintf("step %q: expected runs %v, got %v", step.Name, step.ExpectRuns, h.stepRuns))
	}
	return nil
}

func (h *Harness) checkInits(expected map[string]int) {
	for _, name := range sortedKinds(expected) {
		if got := h.result.Inits[name]; got != expected[name] {
			h.result.AddError(fmt.Sprintf("reaction %q: expected %d inits, got %d", name, expected[name], got))
		}
	}
}

func (h *Harness) captureState(s *Scenario) {
	for _, spec := range s.Entities {
		e := h.entities[spec.Name]
		if !h.world.Alive(e) {
			continue
		}
		components := make(map[string]map[string]any)
		for _, kind := range sortedKinds(componentKinds) {
			if fields, ok := componentKinds[kind].state(h.world, e); ok {
				components[kind] = fields
			}
		}
		h.result.State[spec.Name] = components
	}
	for _, kind := range sortedKinds(resourceKinds) {
		if fields, ok := resourceKinds[kind].state(h.world); ok {
			h.result.Resources[kind] = fields
		}
	}
}

// buildReaction turns a spec into a Reaction whose system records init and
// run events. Construction errors, including conflicting access, are
// returned unwrapped from reactive.
func (h *Harness) buildReaction(spec ReactionSpec) (reactive.Reaction, error) {
	var filters []ecs.Filter
	for _, kind := range spec.With {
		filters = append(filters, componentKinds[kind].with())
	}
	for _, kind := range spec.Without {
		filters = append(filters, componentKinds[kind].without())
	}

	var params []reactive.Param[any]
	for _, kind := range spec.Reads {
		params = append(params, componentKinds[kind].read(filters))
	}
	for _, kind := range spec.Writes {
		params = append(params, componentKinds[kind].write(filters))
	}
	for _, kind := range spec.Resources {
		params = append(params, resourceKinds[kind].read())
	}
	for _, kind := range spec.ResourceWrites {
		params = append(params, resourceKinds[kind].write())
	}
	if spec.Spawn != nil {
		child := *spec.Spawn
		params = append(params, reactive.Map(reactive.CommandsParam(), func(c *ecs.Commands) any {
			return spawner(func() { h.spawnChild(c, child) })
		}))
	}

	name := spec.Name
	sys, err := reactive.NewFunctionSystem(reactive.JoinAll(params...),
		func(s reactive.Scope[reactive.Unit], views []any) reactive.Unit {
			h.recordRun(name, s.Entity)
			for _, v := range views {
				switch act := v.(type) {
				case bump:
					act()
				case spawner:
					act()
				}
			}
			return reactive.Unit{}
		})
	if err != nil {
		return reactive.Reaction{}, err
	}

	traced := &tracedSystem{
		System: sys,
		onInit: func() { h.result.addInit(name, h.step) },
	}
	return reactive.New(traced, reactive.WithName(name)), nil
}

func (h *Harness) spawnChild(c *ecs.Commands, spec ReactionSpec) {
	r, err := h.buildReaction(spec)
	if err != nil {
		h.result.AddError(fmt.Sprintf("spawn %q: %v", spec.Name, err))
		return
	}
	e := c.Spawn(r)
	h.logger.Debug("reaction spawned", "reaction", spec.Name, "entity", e)
}

func (h *Harness) recordRun(name string, e ecs.Entity) {
	h.stepRuns = append(h.stepRuns, name)
	h.result.addRun(name, e.String(), h.step, h.driver.Sweeps())
}

// tracedSystem notifies the harness when the wrapped system is initialized.
type tracedSystem struct {
	reactive.System[reactive.Unit, reactive.Unit]
	onInit func()
}

func (s *tracedSystem) Init(w *ecs.World) {
	s.System.Init(w)
	s.onInit()
}
