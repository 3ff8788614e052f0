package fsm

import (
	"errors"
	"fmt"
)

// InvalidTransitionError is returned when an action is not defined for the
// machine's current state. The machine is left unchanged.
type InvalidTransitionError struct {
	Family string
	State  State
	Action Action
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s cannot %s from %s", e.Family, e.Action, e.State)
}

// IsInvalidTransition reports whether err is (or wraps) an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}

// ListenerError describes a subscriber callback that panicked.
// It is logged at the call site and never propagates to the caller of
// Transition or Reset.
type ListenerError struct {
	Source    string // e.g. "fsm:actor" or "engine"
	Topic     string // state change, notification type, ...
	Recovered any
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener panicked (%s, %s): %v", e.Source, e.Topic, e.Recovered)
}

// IsListenerError reports whether err is (or wraps) a ListenerError.
func IsListenerError(err error) bool {
	var le *ListenerError
	return errors.As(err, &le)
}

// ConventionError reports a transition table that breaks table integrity or
// the universal error/reset convention.
type ConventionError struct {
	Family  string
	State   State
	Message string
}

// Error implements the error interface.
func (e *ConventionError) Error() string {
	if e.State != "" {
		return fmt.Sprintf("family %q, state %s: %s", e.Family, e.State, e.Message)
	}
	return fmt.Sprintf("family %q: %s", e.Family, e.Message)
}
