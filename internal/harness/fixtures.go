package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/roach88/reactor/internal/ecs"
	"github.com/roach88/reactor/internal/reactive"
)

// Position is a grid position component.
type Position struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// Health is a hit point component.
type Health struct {
	Points int `yaml:"points" json:"points"`
}

// Frozen is a marker component. Reactions filter on it.
type Frozen struct{}

// Score is a counter resource.
type Score struct {
	Value int `yaml:"value" json:"value"`
}

// Weather is a string-valued resource.
type Weather struct {
	Kind string `yaml:"kind" json:"kind"`
}

// Components is the set of component values a scenario entity can carry.
// A nil field leaves the component untouched; Frozen=false removes the
// marker.
type Components struct {
	Position *Position `yaml:"position,omitempty" json:"position,omitempty"`
	Health   *Health   `yaml:"health,omitempty" json:"health,omitempty"`
	Frozen   *bool     `yaml:"frozen,omitempty" json:"frozen,omitempty"`
}

// apply writes the non-nil components to e.
func (c Components) apply(w *ecs.World, e ecs.Entity) {
	var values []any
	if c.Position != nil {
		values = append(values, *c.Position)
	}
	if c.Health != nil {
		values = append(values, *c.Health)
	}
	if c.Frozen != nil {
		if *c.Frozen {
			values = append(values, Frozen{})
		} else {
			ecs.Remove[Frozen](w, e)
		}
	}
	if len(values) > 0 {
		w.Insert(e, values...)
	}
}

// Resources is the set of resource values a scenario can set.
type Resources struct {
	Score   *Score   `yaml:"score,omitempty" json:"score,omitempty"`
	Weather *Weather `yaml:"weather,omitempty" json:"weather,omitempty"`
}

func (r Resources) apply(w *ecs.World) {
	if r.Score != nil {
		ecs.InsertResource(w, *r.Score)
	}
	if r.Weather != nil {
		ecs.InsertResource(w, *r.Weather)
	}
}

// names lists the resources set in r.
func (r Resources) names() []string {
	var out []string
	if r.Score != nil {
		out = append(out, KindScore)
	}
	if r.Weather != nil {
		out = append(out, KindWeather)
	}
	return out
}

// Data kind names used in scenario files.
const (
	KindPosition = "position"
	KindHealth   = "health"
	KindFrozen   = "frozen"
	KindScore    = "score"
	KindWeather  = "weather"
)

// bump is the view handed to a reaction for a written data kind. Calling it
// increments every matched value and returns how many were written.
type bump func() int

// spawner is the view handed to a reaction that spawns a child reaction.
type spawner func()

type componentKind struct {
	read    func(filters []ecs.Filter) reactive.Param[any]
	write   func(filters []ecs.Filter) reactive.Param[any]
	with    func() ecs.Filter
	without func() ecs.Filter
	state   func(w *ecs.World, e ecs.Entity) (map[string]any, bool)
}

type resourceKind struct {
	read  func() reactive.Param[any]
	write func() reactive.Param[any]
	state func(w *ecs.World) (map[string]any, bool)
}

var componentKinds = map[string]componentKind{
	KindPosition: {
		read: readOf[Position],
		write: func(filters []ecs.Filter) reactive.Param[any] {
			return writeOf(filters, func(p Position) Position {
				p.X++
				return p
			})
		},
		with:    ecs.With[Position],
		without: ecs.Without[Position],
		state:   componentState[Position],
	},
	KindHealth: {
		read: readOf[Health],
		write: func(filters []ecs.Filter) reactive.Param[any] {
			return writeOf(filters, func(h Health) Health {
				h.Points++
				return h
			})
		},
		with:    ecs.With[Health],
		without: ecs.Without[Health],
		state:   componentState[Health],
	},
	KindFrozen: {
		read:    readOf[Frozen],
		with:    ecs.With[Frozen],
		without: ecs.Without[Frozen],
		state:   componentState[Frozen],
	},
}

var resourceKinds = map[string]resourceKind{
	KindScore: {
		read: resOf[Score],
		write: func() reactive.Param[any] {
			return reactive.Map(reactive.ResMut[Score](), func(r *reactive.ResMutRef[Score]) any {
				return bump(func() int {
					v := r.Value()
					v.Value++
					r.Set(v)
					return 1
				})
			})
		},
		state: resourceState[Score],
	},
	KindWeather: {
		read:  resOf[Weather],
		state: resourceState[Weather],
	},
}

func readOf[T any](filters []ecs.Filter) reactive.Param[any] {
	return reactive.Erase(reactive.Read[T](filters...))
}

func writeOf[T any](filters []ecs.Filter, next func(T) T) reactive.Param[any] {
	return reactive.Map(reactive.Write[T](filters...), func(q *reactive.QueryMut[T]) any {
		return bump(func() int {
			return q.Update(func(_ ecs.Entity, v T) T { return next(v) })
		})
	})
}

func resOf[R any]() reactive.Param[any] {
	return reactive.Erase(reactive.Res[R]())
}

func componentState[T any](w *ecs.World, e ecs.Entity) (map[string]any, bool) {
	v, ok := ecs.Get[T](w, e)
	if !ok {
		return nil, false
	}
	return toStateMap(v), true
}

func resourceState[R any](w *ecs.World) (map[string]any, bool) {
	v, ok := ecs.Resource[R](w)
	if !ok {
		return nil, false
	}
	return toStateMap(v), true
}

// toStateMap flattens a fixture value into a map with int64 numbers, so it
// compares against YAML-decoded expectations.
func toStateMap(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("harness: fixture %T is not JSON encodable: %v", v, err))
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		panic(fmt.Sprintf("harness: fixture %T is not an object: %v", v, err))
	}
	for k, val := range m {
		if n, ok := val.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				m[k] = i
			}
		}
	}
	return m
}

// sortedKinds returns the names of a kind table, for error messages.
func sortedKinds[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
