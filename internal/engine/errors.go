package engine

import (
	"errors"
	"fmt"
)

// ErrNoScheduler is returned by Start when the engine was built without a
// scheduler.
var ErrNoScheduler = errors.New("engine has no scheduler")

// UnknownComponentError is reported when an event targets a component id that
// is not registered. The event is dropped.
type UnknownComponentError struct {
	ComponentID string
	EventID     string
}

// Error implements the error interface.
func (e *UnknownComponentError) Error() string {
	if e.EventID != "" {
		return fmt.Sprintf("unknown component %q (event %s)", e.ComponentID, e.EventID)
	}
	return fmt.Sprintf("unknown component %q", e.ComponentID)
}

// DuplicateRegistrationError is returned when registering an id that is
// already present. The existing component is left untouched.
type DuplicateRegistrationError struct {
	ComponentID string
	Reason      string
}

// Error implements the error interface.
func (e *DuplicateRegistrationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("component %q: %s", e.ComponentID, e.Reason)
	}
	return fmt.Sprintf("component %q is already registered", e.ComponentID)
}

// QuotaExceededError is reported when a single Step hits the per-step event
// limit. Remaining due events stay queued for the next Step.
type QuotaExceededError struct {
	Processed int
	Limit     int
	Pending   int
}

// Error implements the error interface.
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("step exceeded event quota: %d processed, limit %d, %d still due",
		e.Processed, e.Limit, e.Pending)
}

// IsUnknownComponent reports whether err is (or wraps) an UnknownComponentError.
func IsUnknownComponent(err error) bool {
	var uce *UnknownComponentError
	return errors.As(err, &uce)
}

// IsDuplicateRegistration reports whether err is (or wraps) a DuplicateRegistrationError.
func IsDuplicateRegistration(err error) bool {
	var dre *DuplicateRegistrationError
	return errors.As(err, &dre)
}

// IsQuotaExceeded reports whether err is (or wraps) a QuotaExceededError.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}
