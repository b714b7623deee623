package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactor/internal/reactive"
)

func TestLoadScenario_YAML(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "basic.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "basic", s.Name)
	require.Len(t, s.Entities, 2)
	assert.Equal(t, &Position{X: 1, Y: 1}, s.Entities[0].Position)
	assert.Equal(t, &Health{Points: 3}, s.Entities[0].Health)
	assert.Nil(t, s.Entities[1].Health)
	assert.Equal(t, &Score{Value: 0}, s.Resources.Score)

	require.Len(t, s.Reactions, 3)
	assert.Equal(t, []string{KindScore}, s.Reactions[1].ResourceWrites)

	require.Len(t, s.Steps, 3)
	assert.NotNil(t, s.Steps[0].ExpectRuns)
	assert.Empty(t, s.Steps[0].ExpectRuns)
	assert.Equal(t, 2, s.Steps[2].Sweeps)
	assert.Equal(t, "e1", s.Steps[2].Set[0].Entity)
	assert.Equal(t, 1, s.ExpectInits["mover"])
	assert.Len(t, s.Assertions, 6)
}

func TestLoadScenario_CUE(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "spawn.cue"))
	require.NoError(t, err)

	assert.Equal(t, "spawn", s.Name)
	require.Len(t, s.Reactions, 1)
	require.NotNil(t, s.Reactions[0].Spawn)
	assert.Equal(t, "child", s.Reactions[0].Spawn.Name)
	assert.Equal(t, &Position{X: 1, Y: 0}, s.Steps[0].Set[0].Position)
	assert.Equal(t, 2, s.ExpectInits["child"])
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "unknown_field.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "sweep")
}

func TestLoadScenario_RejectsConflictingReaction(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "conflict.yaml"))
	require.Error(t, err)
	assert.True(t, reactive.IsConflictError(err))
	assert.Contains(t, err.Error(), "reactions[0]")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_CUEMustBeConcrete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open.cue")
	require.NoError(t, os.WriteFile(path, []byte(`name: string
description: "incomplete"
reactions: [{name: "r", reads: ["position"]}]
steps: [{name: "s"}]
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not concrete")
}

func TestLoadScenario_CUEUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.cue")
	require.NoError(t, os.WriteFile(path, []byte(`name: "typo"
description: "typo"
reactions: [{name: "r", raeds: ["position"]}]
steps: [{name: "s"}]
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode CUE scenario")
}

func TestLoadScenario_CUESyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.cue")
	require.NoError(t, os.WriteFile(path, []byte(`name: "broken" {`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse CUE")
}

func TestValidateScenario(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Scenario)
		wantErr string
	}{
		{
			name:    "missing name",
			mutate:  func(s *Scenario) { s.Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			mutate:  func(s *Scenario) { s.Description = "" },
			wantErr: "description is required",
		},
		{
			name:    "no reactions",
			mutate:  func(s *Scenario) { s.Reactions = nil },
			wantErr: "reactions list is required",
		},
		{
			name:    "no steps",
			mutate:  func(s *Scenario) { s.Steps = nil },
			wantErr: "steps list is required",
		},
		{
			name: "duplicate entity",
			mutate: func(s *Scenario) {
				s.Entities = append(s.Entities, EntitySpec{Name: "e1"})
			},
			wantErr: `duplicate entity "e1"`,
		},
		{
			name: "duplicate reaction",
			mutate: func(s *Scenario) {
				s.Reactions = append(s.Reactions, s.Reactions[0])
			},
			wantErr: `duplicate reaction "watch"`,
		},
		{
			name:    "reaction without params",
			mutate:  func(s *Scenario) { s.Reactions[0].Reads = nil },
			wantErr: "has no parameters",
		},
		{
			name:    "unknown component",
			mutate:  func(s *Scenario) { s.Reactions[0].Reads = []string{"velocity"} },
			wantErr: `unknown component "velocity"`,
		},
		{
			name:    "unknown filter",
			mutate:  func(s *Scenario) { s.Reactions[0].With = []string{"velocity"} },
			wantErr: `unknown component "velocity"`,
		},
		{
			name: "marker is not writable",
			mutate: func(s *Scenario) {
				s.Reactions[0].Writes = []string{KindFrozen}
			},
			wantErr: `component "frozen" is not writable`,
		},
		{
			name: "undeclared resource",
			mutate: func(s *Scenario) {
				s.Reactions[0].Resources = []string{KindScore}
			},
			wantErr: `resource "score" is used but not declared`,
		},
		{
			name: "unwritable resource",
			mutate: func(s *Scenario) {
				s.Resources.Weather = &Weather{Kind: "rain"}
				s.Reactions[0].ResourceWrites = []string{KindWeather}
			},
			wantErr: `resource "weather" is not writable`,
		},
		{
			name: "invalid spawn child",
			mutate: func(s *Scenario) {
				s.Reactions[0].Spawn = &ReactionSpec{Name: "child"}
			},
			wantErr: "reactions[0].spawn",
		},
		{
			name:    "conflicting access",
			mutate:  func(s *Scenario) { s.Reactions[0].Writes = []string{KindPosition} },
			wantErr: "CONFLICTING_ACCESS",
		},
		{
			name:    "unknown entity in set",
			mutate:  func(s *Scenario) { s.Steps[0].Set[0].Entity = "ghost" },
			wantErr: `unknown entity "ghost"`,
		},
		{
			name:    "unknown entity in despawn",
			mutate:  func(s *Scenario) { s.Steps[0].Despawn = []string{"ghost"} },
			wantErr: `steps[0].despawn[0]: unknown entity "ghost"`,
		},
		{
			name:    "negative sweeps",
			mutate:  func(s *Scenario) { s.Steps[0].Sweeps = -1 },
			wantErr: "sweeps must be non-negative",
		},
		{
			name:    "duplicate step",
			mutate:  func(s *Scenario) { s.Steps = append(s.Steps, s.Steps[0]) },
			wantErr: `duplicate step "move"`,
		},
		{
			name:    "unknown reaction in expect_runs",
			mutate:  func(s *Scenario) { s.Steps[0].ExpectRuns = []string{"ghost"} },
			wantErr: `expect_runs[0]: unknown reaction "ghost"`,
		},
		{
			name:    "unknown reaction in expect_inits",
			mutate:  func(s *Scenario) { s.ExpectInits = map[string]int{"ghost": 1} },
			wantErr: `expect_inits: unknown reaction "ghost"`,
		},
		{
			name: "unknown assertion type",
			mutate: func(s *Scenario) {
				s.Assertions = []Assertion{{Type: "trace_magic"}}
			},
			wantErr: `unknown assertion type "trace_magic"`,
		},
		{
			name: "final_state without target",
			mutate: func(s *Scenario) {
				s.Assertions = []Assertion{{Type: AssertFinalState, Expect: map[string]any{"x": 1}}}
			},
			wantErr: "entity or resource is required",
		},
		{
			name: "final_state without expectation",
			mutate: func(s *Scenario) {
				s.Assertions = []Assertion{{Type: AssertFinalState, Entity: "e1", Component: KindPosition}}
			},
			wantErr: "expect or absent is required",
		},
		{
			name: "assertion names unknown reaction",
			mutate: func(s *Scenario) {
				s.Assertions = []Assertion{{Type: AssertTraceOrder, Reactions: []string{"watch", "ghost"}}}
			},
			wantErr: `unknown reaction "ghost"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := minimalScenario()
			tt.mutate(s)
			err := validateScenario(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateScenario_SpawnChildNamesAreKnown(t *testing.T) {
	s := minimalScenario()
	s.Reactions[0].Spawn = &ReactionSpec{Name: "child", Reads: []string{KindPosition}}
	s.ExpectInits = map[string]int{"child": 1}
	s.Steps[0].ExpectRuns = []string{"watch"}

	require.NoError(t, validateScenario(s))
}
