package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/reactor/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nRuns:\n")
		for i, event := range e.Trace {
			if event.Type == EventRun {
				fmt.Fprintf(&buf, "  [%d] sweep %d %s on %s\n", i+1, event.Sweep, event.Reaction, event.Entity)
			}
		}
	}

	return buf.String()
}

// assertTraceContains checks that the reaction ran at least once, optionally
// during a specific step.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type != EventRun || event.Reaction != assertion.Reaction {
			continue
		}
		if assertion.Step == "" || event.Step == assertion.Step {
			return nil
		}
	}

	expected := fmt.Sprintf("run of %s", assertion.Reaction)
	if assertion.Step != "" {
		expected += fmt.Sprintf(" in step %s", assertion.Step)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first runs of the listed reactions appear
// in the given order. Other runs may be interleaved.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)

	for i, event := range trace {
		if event.Type != EventRun {
			continue
		}
		for _, expected := range assertion.Reactions {
			if event.Reaction == expected && positions[expected] == 0 {
				positions[expected] = i + 1
			}
		}
	}

	for _, reaction := range assertion.Reactions {
		if positions[reaction] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all reactions ran: %v", assertion.Reactions),
				Actual:   fmt.Sprintf("missing reaction: %s", reaction),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Reactions); i++ {
		prev := assertion.Reactions[i-1]
		curr := assertion.Reactions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("reactions in order: %v", assertion.Reactions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that the reaction ran exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventRun && event.Reaction == assertion.Reaction {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d runs of %s", assertion.Count, assertion.Reaction),
			Actual:   fmt.Sprintf("%d runs", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks the captured final state with subset semantics:
// only fields named in Expect are compared.
func assertFinalState(result *Result, assertion Assertion) error {
	var (
		fields map[string]any
		found  bool
		target string
	)
	if assertion.Resource != "" {
		target = "resource " + assertion.Resource
		fields, found = result.Resources[assertion.Resource]
	} else {
		target = fmt.Sprintf("%s.%s", assertion.Entity, assertion.Component)
		fields, found = result.State[assertion.Entity][assertion.Component]
	}

	if assertion.Absent {
		if found {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s to be absent", target),
				Actual:   fmt.Sprintf("present with %s", formatFields(fields)),
			}
		}
		return nil
	}

	if !found {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s to exist", target),
			Actual:   "not present",
		}
	}

	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		expectedValue := assertion.Expect[key]
		actualValue, exists := fields[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q of %s to exist", key, target),
				Actual:   fmt.Sprintf("fields: %s", formatFields(fields)),
			}
		}
		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s field %q = %v (type %T)", target, key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("%s field %q = %v (type %T)", target, key, actualValue, actualValue),
			}
		}
	}
	return nil
}

// assertJournalCount checks the number of journaled runs of a reaction.
func assertJournalCount(ctx context.Context, st *store.Store, assertion Assertion) error {
	counts, err := st.CountRuns(ctx)
	if err != nil {
		return &AssertionError{
			Type:     AssertJournalCount,
			Expected: fmt.Sprintf("journal count for %s", assertion.Reaction),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	if got := counts[assertion.Reaction]; got != assertion.Count {
		return &AssertionError{
			Type:     AssertJournalCount,
			Expected: fmt.Sprintf("%d journaled runs of %s", assertion.Count, assertion.Reaction),
			Actual:   fmt.Sprintf("%d journaled runs", got),
		}
	}
	return nil
}

// formatFields renders a field map with sorted keys.
func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// stateValuesEqual compares an expected value from a scenario file with a
// captured state value. Integers are compared across int, int64, uint64 and
// integral float64, since YAML and CUE decode numbers differently.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	if exp, ok := asInt64(expected); ok {
		act, ok := asInt64(actual)
		return ok && exp == act
	}

	switch exp := expected.(type) {
	case string:
		act, ok := actual.(string)
		return ok && exp == act
	case bool:
		act, ok := actual.(bool)
		return ok && exp == act
	}

	return reflect.DeepEqual(expected, actual)
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides journal access for journal_count assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertJournalCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: journal_count requires journal context", i)
			} else {
				err = assertJournalCount(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
