package harness

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
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
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, formatEvent(ev))
		}
	}
	return buf.String()
}

func formatEvent(ev TraceEvent) string {
	if ev.Kind == KindError {
		return fmt.Sprintf("@%dms error %s %s: %s", ev.At, ev.Component, ev.Action, ev.Error)
	}
	return fmt.Sprintf("@%dms %s %s -%s-> %s", ev.At, ev.Component, ev.From, ev.Action, ev.To)
}

// EvaluateAssertions runs every assertion and returns failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertFinalState:
		return assertFinalState(result, a)
	case AssertStateSequence:
		return assertStateSequence(result, a)
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertNoErrors:
		return assertNoErrors(result)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertFinalState checks the end-of-run state of each listed component.
func assertFinalState(result *Result, a Assertion) error {
	expect := make(map[string]string, len(a.Expect)+1)
	for id, state := range a.Expect {
		expect[id] = state
	}
	if a.Component != "" {
		expect[a.Component] = a.State
	}

	ids := make([]string, 0, len(expect))
	for id := range expect {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		actual, ok := result.Final[id]
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("component %s in state %s", id, expect[id]),
				Actual:   "component not registered",
			}
		}
		if actual != expect[id] {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("component %s in state %s", id, expect[id]),
				Actual:   fmt.Sprintf("state %s", actual),
				Trace:    result.StateChanges(id),
			}
		}
	}
	return nil
}

// assertStateSequence checks the exact list of states a component entered.
func assertStateSequence(result *Result, a Assertion) error {
	changes := result.StateChanges(a.Component)
	actual := make([]string, len(changes))
	for i, ev := range changes {
		actual[i] = ev.To
	}
	if !reflect.DeepEqual(actual, a.States) {
		return &AssertionError{
			Type:     AssertStateSequence,
			Expected: fmt.Sprintf("%s entered %v", a.Component, a.States),
			Actual:   fmt.Sprintf("%s entered %v", a.Component, actual),
			Trace:    changes,
		}
	}
	return nil
}

// assertTraceContains checks for a state change matching every set filter.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Kind == KindStateChange && matches(ev, a) && matchPayload(ev.Payload, a.Payload) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: "state change " + describeFilter(a),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceCount checks how many events of the selected kind match.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	kind := a.Kind
	if kind == "" {
		kind = KindStateChange
	}

	count := 0
	for _, ev := range trace {
		if ev.Kind == kind && matches(ev, a) {
			count++
		}
	}

	if count != *a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s events %s", *a.Count, kind, describeFilter(a)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that "component:STATE" entries occur in order.
// Entries need not be consecutive; each is matched after the previous one.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	pos := 0
	for i, entry := range a.Order {
		component, state, ok := strings.Cut(entry, ":")
		if !ok {
			return fmt.Errorf("trace_order entry %q must be component:STATE", entry)
		}

		found := false
		for pos < len(trace) {
			ev := trace[pos]
			pos++
			if ev.Kind == KindStateChange && ev.Component == component && ev.To == state {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("entries in order: %v", a.Order),
				Actual:   fmt.Sprintf("%s not found after %v", entry, a.Order[:i]),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertNoErrors checks that the engine reported nothing on its error channel.
func assertNoErrors(result *Result) error {
	errs := result.EngineErrors()
	if len(errs) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertNoErrors,
		Expected: "no engine errors",
		Actual:   fmt.Sprintf("%d errors, first: %s", len(errs), errs[0].Error),
		Trace:    errs,
	}
}

func matches(ev TraceEvent, a Assertion) bool {
	if a.Component != "" && ev.Component != a.Component {
		return false
	}
	if a.Action != "" && ev.Action != a.Action {
		return false
	}
	if a.State != "" && ev.To != a.State {
		return false
	}
	return true
}

// matchPayload reports whether every expected key is present with an equal
// value. Numbers compare by value regardless of Go type.
func matchPayload(actual, expected map[string]any) bool {
	for k, want := range expected {
		got, ok := actual[k]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func describeFilter(a Assertion) string {
	var parts []string
	if a.Component != "" {
		parts = append(parts, "component="+a.Component)
	}
	if a.Action != "" {
		parts = append(parts, "action="+a.Action)
	}
	if a.State != "" {
		parts = append(parts, "state="+a.State)
	}
	if len(a.Payload) > 0 {
		parts = append(parts, fmt.Sprintf("payload=%v", a.Payload))
	}
	if len(parts) == 0 {
		return "(any)"
	}
	return "with " + strings.Join(parts, " ")
}
