package engine

import (
	"time"

	"github.com/roach88/pipesim/internal/fsm"
)

// Snapshot is the read-only view of a component handed to its visual
// binding after every state change.
type Snapshot struct {
	ComponentID string
	Family      string
	State       fsm.State
	Previous    fsm.State
	Action      fsm.Action
	Payload     fsm.Payload
	Animating   bool
	At          time.Duration
}

// StateApplier is implemented by visual bindings that want state snapshots.
// Bindings that do not implement it are carried as opaque handles.
type StateApplier interface {
	ApplyState(Snapshot)
}

// Component binds an id to a private machine and an optional visual binding.
//
// The engine never owns the binding; it only calls ApplyState on it.
type Component struct {
	id         string
	machine    *fsm.Machine
	binding    any
	lastUpdate time.Duration

	unsubscribe func()
}

// ID returns the component id.
func (c *Component) ID() string { return c.id }

// Family returns the family of the component's machine.
func (c *Component) Family() string { return c.machine.Family() }

// Machine returns the component's machine.
func (c *Component) Machine() *fsm.Machine { return c.machine }

// State returns the machine's current state.
func (c *Component) State() fsm.State { return c.machine.State() }

// Binding returns the visual binding handle (may be nil).
func (c *Component) Binding() any { return c.binding }

// LastUpdate returns the time of the component's last state change.
func (c *Component) LastUpdate() time.Duration { return c.lastUpdate }

// IsAnimating reports whether the current state is an animated state.
func (c *Component) IsAnimating() bool { return c.machine.IsAnimating() }

func (c *Component) snapshot(change fsm.Change, at time.Duration) Snapshot {
	return Snapshot{
		ComponentID: c.id,
		Family:      c.machine.Family(),
		State:       change.To,
		Previous:    change.From,
		Action:      change.Action,
		Payload:     change.Payload,
		Animating:   c.machine.IsAnimating(),
		At:          at,
	}
}
