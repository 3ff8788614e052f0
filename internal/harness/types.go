package harness

import (
	"github.com/roach88/pipesim/internal/engine"
)

// Trace event kinds.
const (
	KindStateChange = "stateChange"
	KindError       = "error"
)

// TraceEvent is one recorded engine notification.
type TraceEvent struct {
	Kind      string         `json:"kind"`
	At        int64          `json:"at"` // simulation milliseconds
	Component string         `json:"component,omitempty"`
	From      string         `json:"from,omitempty"`
	To        string         `json:"to,omitempty"`
	Action    string         `json:"action,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Result is the outcome of a case execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace holds state changes and engine errors in emission order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final maps component id to its state when the run ended.
	Final map[string]string `json:"final"`

	// Ticks is how many scheduler ticks the run took.
	Ticks int `json:"ticks"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Final:  make(map[string]string),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// record is an engine.NotifyAll handler appending to the trace.
func (r *Result) record(n engine.Notification) {
	switch data := n.Data.(type) {
	case engine.StateChange:
		r.Trace = append(r.Trace, TraceEvent{
			Kind:      KindStateChange,
			At:        n.At.Milliseconds(),
			Component: data.ComponentID,
			From:      string(data.From),
			To:        string(data.To),
			Action:    string(data.Action),
			Payload:   copyPayload(data.Payload),
		})
	case engine.ErrorNotice:
		ev := TraceEvent{
			Kind:  KindError,
			At:    n.At.Milliseconds(),
			Error: data.Err.Error(),
		}
		if data.Event != nil {
			ev.Component = data.Event.ComponentID
			ev.Action = string(data.Event.Action)
		}
		r.Trace = append(r.Trace, ev)
	}
}

// StateChanges returns the state-change events, optionally for one component.
func (r *Result) StateChanges(component string) []TraceEvent {
	var out []TraceEvent
	for _, ev := range r.Trace {
		if ev.Kind != KindStateChange {
			continue
		}
		if component != "" && ev.Component != component {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// EngineErrors returns the error events.
func (r *Result) EngineErrors() []TraceEvent {
	var out []TraceEvent
	for _, ev := range r.Trace {
		if ev.Kind == KindError {
			out = append(out, ev)
		}
	}
	return out
}

func copyPayload(p map[string]any) map[string]any {
	if len(p) == 0 {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
