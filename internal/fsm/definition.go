package fsm

import (
	"fmt"
	"sort"
)

// State is a machine state tag.
type State string

// Action is a transition trigger.
type Action string

// Payload is opaque data carried alongside an action.
type Payload map[string]any

// Universal error/reset convention shared by all families.
const (
	StateError  State  = "ERROR"
	ActionError Action = "ERROR"
	ActionReset Action = "RESET"
)

// Definition is the transition table of one component family.
//
// Definitions are treated as immutable once built. Machines share a Definition
// pointer but never mutate it.
type Definition struct {
	family      string
	initial     State
	transitions map[State]map[Action]State
	animated    map[State]bool
}

// Family returns the component family name (e.g. "actor").
func (d *Definition) Family() string { return d.family }

// Initial returns the initial state.
func (d *Definition) Initial() State { return d.initial }

// Target returns the state reached by applying action in from.
func (d *Definition) Target(from State, action Action) (State, bool) {
	to, ok := d.transitions[from][action]
	return to, ok
}

// Actions returns the actions accepted in state, sorted for determinism.
// Terminal states return an empty slice.
func (d *Definition) Actions(state State) []Action {
	row := d.transitions[state]
	actions := make([]Action, 0, len(row))
	for a := range row {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// States returns every state mentioned in the table, sorted.
func (d *Definition) States() []State {
	seen := map[State]bool{d.initial: true}
	for from, row := range d.transitions {
		seen[from] = true
		for _, to := range row {
			seen[to] = true
		}
	}
	states := make([]State, 0, len(seen))
	for s := range seen {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
	return states
}

// HasState reports whether state appears in the table.
func (d *Definition) HasState(state State) bool {
	if state == d.initial {
		return true
	}
	if _, ok := d.transitions[state]; ok {
		return true
	}
	for _, row := range d.transitions {
		for _, to := range row {
			if to == state {
				return true
			}
		}
	}
	return false
}

// AcceptsAnywhere reports whether any state accepts action.
func (d *Definition) AcceptsAnywhere(action Action) bool {
	for _, row := range d.transitions {
		if _, ok := row[action]; ok {
			return true
		}
	}
	return false
}

// IsTerminal reports whether state has no outgoing transitions.
func (d *Definition) IsTerminal(state State) bool {
	return len(d.transitions[state]) == 0
}

// IsAnimated reports whether state belongs to the animated set.
func (d *Definition) IsAnimated(state State) bool {
	return d.animated[state]
}

// AnimatedStates returns the animated set, sorted.
func (d *Definition) AnimatedStates() []State {
	states := make([]State, 0, len(d.animated))
	for s := range d.animated {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
	return states
}

// Validate checks table integrity and the error/reset convention.
func (d *Definition) Validate() error {
	if d.family == "" {
		return &ConventionError{Family: d.family, Message: "family name is required"}
	}
	if d.initial == "" {
		return &ConventionError{Family: d.family, Message: "initial state is required"}
	}
	if _, ok := d.transitions[d.initial]; !ok {
		return &ConventionError{Family: d.family, State: d.initial, Message: "initial state has no transitions"}
	}

	for _, from := range d.States() {
		if from == StateError || d.IsTerminal(from) {
			continue
		}
		if to, ok := d.transitions[from][ActionError]; !ok || to != StateError {
			return &ConventionError{
				Family:  d.family,
				State:   from,
				Message: fmt.Sprintf("missing %s -> %s transition", ActionError, StateError),
			}
		}
	}

	if to, ok := d.transitions[StateError][ActionReset]; !ok || to != d.initial {
		return &ConventionError{
			Family:  d.family,
			State:   StateError,
			Message: fmt.Sprintf("missing %s -> %s transition", ActionReset, d.initial),
		}
	}

	for s := range d.animated {
		if !d.HasState(s) {
			return &ConventionError{Family: d.family, State: s, Message: "animated state is not in the table"}
		}
	}

	return nil
}

// Builder assembles a Definition.
//
//	def, err := fsm.NewBuilder("buffer", "IDLE").
//	    Transition("IDLE", "START_FLOW", "FLOWING").
//	    Transition("FLOWING", "FLOW_COMPLETE", "IDLE").
//	    Animated("FLOWING").
//	    Build()
type Builder struct {
	def *Definition
}

// NewBuilder starts a Definition for family with the given initial state.
func NewBuilder(family string, initial State) *Builder {
	return &Builder{def: &Definition{
		family:      family,
		initial:     initial,
		transitions: make(map[State]map[Action]State),
		animated:    make(map[State]bool),
	}}
}

// Transition adds from -action-> to. A later call for the same (from, action)
// replaces the earlier target.
func (b *Builder) Transition(from State, action Action, to State) *Builder {
	row, ok := b.def.transitions[from]
	if !ok {
		row = make(map[Action]State)
		b.def.transitions[from] = row
	}
	row[action] = to
	return b
}

// Animated marks states as animated.
func (b *Builder) Animated(states ...State) *Builder {
	for _, s := range states {
		b.def.animated[s] = true
	}
	return b
}

// Build applies the error/reset convention and validates the result.
// ERROR transitions are added to every state that has outgoing transitions,
// and RESET is added to the ERROR state.
func (b *Builder) Build() (*Definition, error) {
	def := b.def
	for from, row := range def.transitions {
		if from == StateError || len(row) == 0 {
			continue
		}
		if _, ok := row[ActionError]; !ok {
			row[ActionError] = StateError
		}
	}
	b.Transition(StateError, ActionReset, def.initial)

	if err := def.Validate(); err != nil {
		return nil, err
	}
	b.def = nil
	return def, nil
}

// MustBuild is like Build but panics on error.
// Intended for the built-in family tables whose correctness is covered by tests.
func (b *Builder) MustBuild() *Definition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}
