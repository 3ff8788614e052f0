package engine

import (
	"fmt"
	"time"

	"github.com/roach88/pipesim/internal/fsm"
)

// Scenario is a named, ordered list of events used to drive a reproducible
// run. Delays are relative to the instant the scenario is loaded.
type Scenario struct {
	Name        string
	Description string
	Duration    time.Duration
	Events      []ScenarioEvent
}

// ScenarioEvent is one scripted stimulus.
type ScenarioEvent struct {
	Delay     time.Duration
	Component string
	Action    fsm.Action
	Payload   fsm.Payload
}

// Validate checks the fields every scenario needs.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Duration < 0 {
		return fmt.Errorf("duration must not be negative")
	}
	for i, ev := range s.Events {
		if ev.Component == "" {
			return fmt.Errorf("events[%d]: component is required", i)
		}
		if ev.Action == "" {
			return fmt.Errorf("events[%d]: action is required", i)
		}
		if ev.Delay < 0 {
			return fmt.Errorf("events[%d]: delay must not be negative", i)
		}
	}
	return nil
}

// End returns the latest scripted delay or Duration, whichever is larger.
func (s *Scenario) End() time.Duration {
	end := s.Duration
	for _, ev := range s.Events {
		if ev.Delay > end {
			end = ev.Delay
		}
	}
	return end
}
