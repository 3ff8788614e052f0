package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pipesim/internal/engine"
	"github.com/roach88/pipesim/internal/fsm"
	"github.com/roach88/pipesim/internal/pipeline"
)

// Case defines a conformance test.
type Case struct {
	// Name uniquely identifies this case. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this case validates.
	Description string `yaml:"description"`

	// Pipeline is a directory of CUE pipeline files, relative to the case
	// file. Empty runs the built-in topology.
	Pipeline string `yaml:"pipeline,omitempty"`

	// Scenario names a scenario defined by the pipeline. Exactly one of
	// Scenario and Events must be set.
	Scenario string `yaml:"scenario,omitempty"`

	// Events is an inline scenario.
	Events []Event `yaml:"events,omitempty"`

	// DurationMS is how long to run. Zero runs until the queue drains.
	DurationMS int64 `yaml:"duration_ms,omitempty"`

	// StepMS is the tick granularity (default 10).
	StepMS int64 `yaml:"step_ms,omitempty"`

	// Speed is the initial speed factor (default 1).
	Speed float64 `yaml:"speed,omitempty"`

	// Assertions validate the trace and final states.
	Assertions []Assertion `yaml:"assertions"`
}

// Event is one inline scenario event.
type Event struct {
	AtMS      int64          `yaml:"at_ms"`
	Component string         `yaml:"component"`
	Action    string         `yaml:"action"`
	Payload   map[string]any `yaml:"payload,omitempty"`
}

// Assertion validates the trace or final states.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Component filters trace events (trace_contains, trace_count,
	// state_sequence, final_state with State).
	Component string `yaml:"component,omitempty"`

	// Action filters trace events by action.
	Action string `yaml:"action,omitempty"`

	// State filters state changes by target state, or is the expected state
	// for final_state with Component.
	State string `yaml:"state,omitempty"`

	// Kind selects error events for trace_count ("error"); default is
	// state changes.
	Kind string `yaml:"kind,omitempty"`

	// Payload is a subset match on the event payload (trace_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Expect maps component id to expected final state (final_state).
	Expect map[string]string `yaml:"expect,omitempty"`

	// States is the exact sequence of states entered (state_sequence).
	States []string `yaml:"states,omitempty"`

	// Count is the expected number of matches (trace_count).
	Count *int `yaml:"count,omitempty"`

	// Order lists "component:STATE" entries expected in order (trace_order).
	Order []string `yaml:"order,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState    = "final_state"
	AssertStateSequence = "state_sequence"
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertTraceOrder    = "trace_order"
	AssertNoErrors      = "no_errors"
)

// DefaultStep is the tick granularity when StepMS is unset.
const DefaultStep = 10 * time.Millisecond

// LoadCase reads and parses a case YAML file. Unknown fields are rejected.
// A relative Pipeline path is resolved against the file's directory.
func LoadCase(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}

	c, err := ParseCase(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if c.Pipeline != "" && !filepath.IsAbs(c.Pipeline) {
		c.Pipeline = filepath.Join(filepath.Dir(path), c.Pipeline)
	}
	return c, nil
}

// ParseCase decodes and validates a case.
func ParseCase(data []byte) (*Case, error) {
	var c Case
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateCase(&c); err != nil {
		return nil, fmt.Errorf("invalid case: %w", err)
	}
	return &c, nil
}

// Step returns the tick granularity.
func (c *Case) Step() time.Duration {
	if c.StepMS > 0 {
		return time.Duration(c.StepMS) * time.Millisecond
	}
	return DefaultStep
}

// resolveScenario returns the named topology scenario or the inline one.
func (c *Case) resolveScenario(t *pipeline.Topology) (engine.Scenario, error) {
	if c.Scenario != "" {
		s, ok := t.Scenario(c.Scenario)
		if !ok {
			return engine.Scenario{}, fmt.Errorf("pipeline %q has no scenario %q", t.Name, c.Scenario)
		}
		return s, nil
	}

	s := engine.Scenario{Name: c.Name, Description: c.Description}
	for _, ev := range c.Events {
		s.Events = append(s.Events, engine.ScenarioEvent{
			Delay:     time.Duration(ev.AtMS) * time.Millisecond,
			Component: ev.Component,
			Action:    fsm.Action(ev.Action),
			Payload:   fsm.Payload(ev.Payload),
		})
	}
	return s, nil
}

// validateCase checks that required fields are present and valid.
func validateCase(c *Case) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Description == "" {
		return fmt.Errorf("description is required")
	}
	if c.Scenario == "" && len(c.Events) == 0 {
		return fmt.Errorf("one of scenario or events is required")
	}
	if c.Scenario != "" && len(c.Events) > 0 {
		return fmt.Errorf("scenario and events are mutually exclusive")
	}
	if c.DurationMS < 0 {
		return fmt.Errorf("duration_ms must not be negative")
	}
	if c.StepMS < 0 {
		return fmt.Errorf("step_ms must not be negative")
	}
	if c.Speed < 0 {
		return fmt.Errorf("speed must not be negative")
	}
	if len(c.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, ev := range c.Events {
		if ev.Component == "" {
			return fmt.Errorf("events[%d]: component is required", i)
		}
		if ev.Action == "" {
			return fmt.Errorf("events[%d]: action is required", i)
		}
		if ev.AtMS < 0 {
			return fmt.Errorf("events[%d]: at_ms must not be negative", i)
		}
	}

	for i := range c.Assertions {
		if err := validateAssertion(i, &c.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertFinalState:
		if len(a.Expect) == 0 && (a.Component == "" || a.State == "") {
			return fmt.Errorf("assertions[%d]: final_state requires expect or component and state", index)
		}
	case AssertStateSequence:
		if a.Component == "" {
			return fmt.Errorf("assertions[%d]: state_sequence requires component", index)
		}
		if len(a.States) == 0 {
			return fmt.Errorf("assertions[%d]: state_sequence requires states", index)
		}
	case AssertTraceContains:
		if a.Component == "" && a.Action == "" && a.State == "" {
			return fmt.Errorf("assertions[%d]: trace_contains requires component, action or state", index)
		}
	case AssertTraceCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: trace_count requires count", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must not be negative", index)
		}
		if a.Kind != "" && a.Kind != KindError && a.Kind != KindStateChange {
			return fmt.Errorf("assertions[%d]: unknown kind %q", index, a.Kind)
		}
	case AssertTraceOrder:
		if len(a.Order) < 2 {
			return fmt.Errorf("assertions[%d]: trace_order requires at least 2 entries", index)
		}
	case AssertNoErrors:
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	return nil
}
