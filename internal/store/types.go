package store

import (
	"time"
)

// Run statuses.
const (
	StatusRunning  = "running"
	StatusStopped  = "stopped"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Run is one recorded simulation session.
type Run struct {
	ID         string
	Pipeline   string
	Scenario   string
	Speed      float64
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	TraceHash  string
}

// Event is one recorded engine notification.
type Event struct {
	RunID     string
	Seq       int64
	At        time.Duration // simulation time
	Type      string
	Component string
	From      string
	To        string
	Action    string
	Payload   map[string]any
	Error     string
}
