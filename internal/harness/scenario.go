package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run of reactions against a small world.
// Entities and resources are set up first, reactions are attached, and each
// step applies writes and then sweeps.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description" json:"description"`

	Entities  []EntitySpec   `yaml:"entities,omitempty" json:"entities,omitempty"`
	Resources Resources      `yaml:"resources,omitempty" json:"resources,omitempty"`
	Reactions []ReactionSpec `yaml:"reactions" json:"reactions"`
	Steps     []Step         `yaml:"steps" json:"steps"`

	// Assertions validate the trace, final state and journal after all
	// steps ran.
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`

	// ExpectInits maps reaction names to the number of times their system
	// must have been initialized.
	ExpectInits map[string]int `yaml:"expect_inits,omitempty" json:"expect_inits,omitempty"`
}

// EntitySpec is a named entity and its initial components.
type EntitySpec struct {
	Name       string `yaml:"name" json:"name"`
	Components `yaml:",inline"`
}

// SetSpec writes components to an existing entity.
type SetSpec struct {
	Entity     string `yaml:"entity" json:"entity"`
	Components `yaml:",inline"`
}

// ReactionSpec describes a reaction in terms of the fixture data kinds.
type ReactionSpec struct {
	Name string `yaml:"name" json:"name"`

	// Reads are components read through Read[T].
	Reads []string `yaml:"reads,omitempty" json:"reads,omitempty"`

	// Resources are resources read through Res[R].
	Resources []string `yaml:"resources,omitempty" json:"resources,omitempty"`

	// With and Without filter every component parameter.
	With    []string `yaml:"with,omitempty" json:"with,omitempty"`
	Without []string `yaml:"without,omitempty" json:"without,omitempty"`

	// Writes are components written through Write[T]. Each run increments
	// every matched row.
	Writes []string `yaml:"writes,omitempty" json:"writes,omitempty"`

	// ResourceWrites are resources written through ResMut[R]. Each run
	// increments the resource.
	ResourceWrites []string `yaml:"resource_writes,omitempty" json:"resource_writes,omitempty"`

	// Spawn, if set, is spawned as a new reaction entity on every run.
	Spawn *ReactionSpec `yaml:"spawn,omitempty" json:"spawn,omitempty"`
}

// Step applies writes and then sweeps.
type Step struct {
	Name      string    `yaml:"name" json:"name"`
	Set       []SetSpec `yaml:"set,omitempty" json:"set,omitempty"`
	Resources Resources `yaml:"resources,omitempty" json:"resources,omitempty"`

	// Despawn lists entities removed before sweeping.
	Despawn []string `yaml:"despawn,omitempty" json:"despawn,omitempty"`

	// Sweeps is the number of schedule runs. Zero means one.
	Sweeps int `yaml:"sweeps,omitempty" json:"sweeps,omitempty"`

	// ExpectRuns, if non-nil, is the exact ordered list of reactions that
	// must run during this step.
	ExpectRuns []string `yaml:"expect_runs,omitempty" json:"expect_runs,omitempty"`
}

func (s Step) sweeps() int {
	if s.Sweeps == 0 {
		return 1
	}
	return s.Sweeps
}

// Assertion validates the trace, final state or journal.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, final_state
	// or journal_count.
	Type string `yaml:"type" json:"type"`

	// Reaction is used by trace_contains, trace_count and journal_count.
	Reaction string `yaml:"reaction,omitempty" json:"reaction,omitempty"`

	// Step narrows trace_contains to one step.
	Step string `yaml:"step,omitempty" json:"step,omitempty"`

	// Reactions is the expected run order for trace_order.
	Reactions []string `yaml:"reactions,omitempty" json:"reactions,omitempty"`

	// Count is the expected number of runs for trace_count and journal_count.
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Entity and Component select an entity component for final_state;
	// Resource selects a resource instead.
	Entity    string `yaml:"entity,omitempty" json:"entity,omitempty"`
	Component string `yaml:"component,omitempty" json:"component,omitempty"`
	Resource  string `yaml:"resource,omitempty" json:"resource,omitempty"`

	// Expect holds expected field values (subset match) for final_state.
	Expect map[string]any `yaml:"expect,omitempty" json:"expect,omitempty"`

	// Absent asserts the selected component or resource does not exist.
	Absent bool `yaml:"absent,omitempty" json:"absent,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertJournalCount  = "journal_count"
)

// LoadScenario reads and parses a scenario file. Files ending in .cue are
// evaluated with CUE and must be concrete; everything else is parsed as
// YAML. Unknown fields are rejected in both formats.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario *Scenario
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		scenario, err = parseCUE(path, data)
	} else {
		scenario, err = parseYAML(data)
	}
	if err != nil {
		return nil, err
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

func parseYAML(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

func parseCUE(path string, data []byte) (*Scenario, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CUE: %w", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE scenario is not concrete: %w", err)
	}

	raw, err := value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export CUE: %w", err)
	}

	var scenario Scenario
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to decode CUE scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks names, data kinds and cross references. It also
// builds every reaction once so conflicting access is reported at load time.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Reactions) == 0 {
		return fmt.Errorf("reactions list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	entities := make(map[string]bool)
	for i, e := range s.Entities {
		if e.Name == "" {
			return fmt.Errorf("entities[%d]: name is required", i)
		}
		if entities[e.Name] {
			return fmt.Errorf("entities[%d]: duplicate entity %q", i, e.Name)
		}
		entities[e.Name] = true
	}

	declared := make(map[string]bool)
	for _, name := range s.Resources.names() {
		declared[name] = true
	}

	reactions := make(map[string]bool)
	for i, r := range s.Reactions {
		if reactions[r.Name] {
			return fmt.Errorf("reactions[%d]: duplicate reaction %q", i, r.Name)
		}
		if err := validateReaction(fmt.Sprintf("reactions[%d]", i), r, declared, reactions); err != nil {
			return err
		}
		if _, err := (&Harness{}).buildReaction(r); err != nil {
			return fmt.Errorf("reactions[%d]: %w", i, err)
		}
	}

	steps := make(map[string]bool)
	for i, step := range s.Steps {
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		if steps[step.Name] {
			return fmt.Errorf("steps[%d]: duplicate step %q", i, step.Name)
		}
		steps[step.Name] = true
		if step.Sweeps < 0 {
			return fmt.Errorf("steps[%d]: sweeps must be non-negative", i)
		}
		for j, set := range step.Set {
			if !entities[set.Entity] {
				return fmt.Errorf("steps[%d].set[%d]: unknown entity %q", i, j, set.Entity)
			}
		}
		for j, name := range step.Despawn {
			if !entities[name] {
				return fmt.Errorf("steps[%d].despawn[%d]: unknown entity %q", i, j, name)
			}
		}
		for j, name := range step.ExpectRuns {
			if !reactions[name] {
				return fmt.Errorf("steps[%d].expect_runs[%d]: unknown reaction %q", i, j, name)
			}
		}
	}

	for name, count := range s.ExpectInits {
		if !reactions[name] {
			return fmt.Errorf("expect_inits: unknown reaction %q", name)
		}
		if count < 0 {
			return fmt.Errorf("expect_inits: count for %q must be non-negative", name)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], entities, reactions); err != nil {
			return err
		}
	}
	return nil
}

// validateReaction checks r and its spawn chain, recording every name in seen.
func validateReaction(path string, r ReactionSpec, declared, seen map[string]bool) error {
	if r.Name == "" {
		return fmt.Errorf("%s: name is required", path)
	}
	seen[r.Name] = true

	if len(r.Reads)+len(r.Resources)+len(r.Writes)+len(r.ResourceWrites) == 0 && r.Spawn == nil {
		return fmt.Errorf("%s: reaction %q has no parameters", path, r.Name)
	}

	for _, group := range [][]string{r.Reads, r.With, r.Without} {
		for _, kind := range group {
			if _, ok := componentKinds[kind]; !ok {
				return fmt.Errorf("%s: unknown component %q (known: %v)", path, kind, sortedKinds(componentKinds))
			}
		}
	}
	for _, kind := range r.Writes {
		k, ok := componentKinds[kind]
		if !ok {
			return fmt.Errorf("%s: unknown component %q (known: %v)", path, kind, sortedKinds(componentKinds))
		}
		if k.write == nil {
			return fmt.Errorf("%s: component %q is not writable", path, kind)
		}
	}
	for _, kind := range append(append([]string{}, r.Resources...), r.ResourceWrites...) {
		if _, ok := resourceKinds[kind]; !ok {
			return fmt.Errorf("%s: unknown resource %q (known: %v)", path, kind, sortedKinds(resourceKinds))
		}
		if !declared[kind] {
			return fmt.Errorf("%s: resource %q is used but not declared in resources", path, kind)
		}
	}
	for _, kind := range r.ResourceWrites {
		if resourceKinds[kind].write == nil {
			return fmt.Errorf("%s: resource %q is not writable", path, kind)
		}
	}

	if r.Spawn != nil {
		return validateReaction(path+".spawn", *r.Spawn, declared, seen)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, entities, reactions map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Reaction == "" {
			return fmt.Errorf("assertions[%d]: reaction is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Reactions) == 0 {
			return fmt.Errorf("assertions[%d]: reactions list is required for trace_order", index)
		}
	case AssertTraceCount, AssertJournalCount:
		if a.Reaction == "" {
			return fmt.Errorf("assertions[%d]: reaction is required for %s", index, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertFinalState:
		switch {
		case a.Resource != "" && a.Entity != "":
			return fmt.Errorf("assertions[%d]: final_state takes either entity or resource, not both", index)
		case a.Resource != "":
			if _, ok := resourceKinds[a.Resource]; !ok {
				return fmt.Errorf("assertions[%d]: unknown resource %q", index, a.Resource)
			}
		case a.Entity != "":
			if !entities[a.Entity] {
				return fmt.Errorf("assertions[%d]: unknown entity %q", index, a.Entity)
			}
			if _, ok := componentKinds[a.Component]; !ok {
				return fmt.Errorf("assertions[%d]: unknown component %q", index, a.Component)
			}
		default:
			return fmt.Errorf("assertions[%d]: entity or resource is required for final_state", index)
		}
		if len(a.Expect) == 0 && !a.Absent {
			return fmt.Errorf("assertions[%d]: expect or absent is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	for _, name := range append([]string{a.Reaction}, a.Reactions...) {
		if name != "" && !reactions[name] {
			return fmt.Errorf("assertions[%d]: unknown reaction %q", index, name)
		}
	}
	return nil
}
