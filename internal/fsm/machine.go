package fsm

import (
	"log/slog"
)

// Change describes one state change delivered to listeners.
type Change struct {
	From    State
	To      State
	Action  Action
	Payload Payload
}

// Listener observes state changes.
type Listener func(Change)

type listenerEntry struct {
	id uint64
	fn Listener
}

// Machine is a running instance of a Definition.
//
// INVARIANTS:
//   - current is always a state of the definition
//   - history[0] is the initial state (or the oldest retained state when a
//     history limit is set); every successful transition appends exactly one entry
//   - failed transitions leave current and history untouched
type Machine struct {
	def          *Definition
	current      State
	history      []State
	historyLimit int

	listeners  []listenerEntry
	nextListen uint64

	logger *slog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger used to report listener panics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithHistoryLimit caps the retained history to the newest n states.
// n <= 0 means unbounded (the default).
func WithHistoryLimit(n int) Option {
	return func(m *Machine) {
		m.historyLimit = n
	}
}

// New creates a Machine in def's initial state.
func New(def *Definition, opts ...Option) *Machine {
	m := &Machine{
		def:     def,
		current: def.initial,
		history: []State{def.initial},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Definition returns the machine's transition table.
func (m *Machine) Definition() *Definition { return m.def }

// Family returns the component family of the machine.
func (m *Machine) Family() string { return m.def.family }

// State returns the current state.
func (m *Machine) State() State { return m.current }

// IsAnimating reports whether the current state is in the animated set.
func (m *Machine) IsAnimating() bool { return m.def.IsAnimated(m.current) }

// PossibleActions returns the actions accepted in the current state.
func (m *Machine) PossibleActions() []Action {
	return m.def.Actions(m.current)
}

// CanTransition reports whether action is defined for the current state.
func (m *Machine) CanTransition(action Action) bool {
	_, ok := m.def.Target(m.current, action)
	return ok
}

// History returns a copy of the visited states, oldest first.
func (m *Machine) History() []State {
	out := make([]State, len(m.history))
	copy(out, m.history)
	return out
}

// Transition applies action and returns the new state.
//
// Returns InvalidTransitionError if action is not defined for the current
// state. On success the history is extended, the state is updated, and then
// every listener is invoked synchronously in registration order.
func (m *Machine) Transition(action Action, payload Payload) (State, error) {
	to, ok := m.def.Target(m.current, action)
	if !ok {
		return m.current, &InvalidTransitionError{
			Family: m.def.family,
			State:  m.current,
			Action: action,
		}
	}

	from := m.current
	m.appendHistory(to)
	m.current = to

	m.notify(Change{From: from, To: to, Action: action, Payload: payload})
	return to, nil
}

// Reset forces the machine back to its initial state, clears the history to
// [initial] and notifies listeners with a synthetic RESET action.
func (m *Machine) Reset() {
	from := m.current
	m.current = m.def.initial
	m.history = []State{m.def.initial}

	m.notify(Change{From: from, To: m.def.initial, Action: ActionReset})
}

// OnStateChange registers l and returns a function that removes exactly that
// registration. Calling the returned function more than once is a no-op.
func (m *Machine) OnStateChange(l Listener) (unsubscribe func()) {
	m.nextListen++
	id := m.nextListen
	m.listeners = append(m.listeners, listenerEntry{id: id, fn: l})

	return func() {
		for i, e := range m.listeners {
			if e.id == id {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// ListenerCount returns the number of registered listeners.
func (m *Machine) ListenerCount() int { return len(m.listeners) }

func (m *Machine) appendHistory(s State) {
	m.history = append(m.history, s)
	if m.historyLimit > 0 && len(m.history) > m.historyLimit {
		drop := len(m.history) - m.historyLimit
		m.history = append(m.history[:0:0], m.history[drop:]...)
	}
}

// notify delivers c to a snapshot of the listeners, so listeners may
// unsubscribe themselves (or others) while being notified.
func (m *Machine) notify(c Change) {
	if len(m.listeners) == 0 {
		return
	}
	snapshot := make([]listenerEntry, len(m.listeners))
	copy(snapshot, m.listeners)

	for _, e := range snapshot {
		m.invoke(e.fn, c)
	}
}

func (m *Machine) invoke(fn Listener, c Change) {
	defer func() {
		if r := recover(); r != nil {
			err := &ListenerError{Source: "fsm:" + m.def.family, Topic: string(c.Action), Recovered: r}
			m.logger.Error("state listener failed",
				"family", m.def.family,
				"from", c.From,
				"to", c.To,
				"action", c.Action,
				"error", err,
			)
		}
	}()
	fn(c)
}
