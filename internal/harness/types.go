package harness

// Trace event types.
const (
	EventInit  = "init"
	EventRun   = "run"
	EventSweep = "sweep"
)

// TraceEvent is one entry in a scenario trace.
//
// init events are recorded when a reaction's system is initialized, run
// events when a reaction runs, and sweep events after each completed sweep.
type TraceEvent struct {
	Type     string `json:"type"`
	Step     string `json:"step,omitempty"`
	Sweep    int64  `json:"sweep,omitempty"`
	Reaction string `json:"reaction,omitempty"`
	Entity   string `json:"entity,omitempty"`
	Checked  int    `json:"checked,omitempty"`
	Ran      int    `json:"ran,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every init, run and sweep event in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State maps entity name to component kind to the component's fields,
	// captured after the last step. Despawned entities are absent.
	State map[string]map[string]map[string]any `json:"state,omitempty"`

	// Resources maps resource kind to its fields after the last step.
	Resources map[string]map[string]any `json:"resources,omitempty"`

	// Inits counts system initializations per reaction name.
	Inits map[string]int `json:"inits"`

	// Runs counts runs per reaction name.
	Runs map[string]int `json:"runs"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Errors:    []string{},
		State:     make(map[string]map[string]map[string]any),
		Resources: make(map[string]map[string]any),
		Inits:     make(map[string]int),
		Runs:      make(map[string]int),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addInit(reaction, step string) {
	r.Inits[reaction]++
	r.Trace = append(r.Trace, TraceEvent{Type: EventInit, Step: step, Reaction: reaction})
}

func (r *Result) addRun(reaction, entity, step string, sweep int64) {
	r.Runs[reaction]++
	r.Trace = append(r.Trace, TraceEvent{
		Type:     EventRun,
		Step:     step,
		Sweep:    sweep,
		Reaction: reaction,
		Entity:   entity,
	})
}

func (r *Result) addSweep(step string, sweep int64, checked, ran int) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    EventSweep,
		Step:    step,
		Sweep:   sweep,
		Checked: checked,
		Ran:     ran,
	})
}
