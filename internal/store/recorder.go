package store

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/roach88/pipesim/internal/engine"
	"github.com/roach88/pipesim/internal/ir"
)

// Subscriber is the part of an engine the recorder needs.
type Subscriber interface {
	On(t engine.NotificationType, h engine.Handler) (unsubscribe func())
}

// Recorder appends engine notifications to a run.
//
// Writes happen synchronously inside the engine's notification dispatch. A
// failed write is logged and remembered; later notifications are still
// attempted. Err returns the first failure.
type Recorder struct {
	store  *Store
	run    Run
	logger *slog.Logger

	mu    sync.Mutex
	seq   int64
	err   error
	trace []map[string]any

	unsubscribe func()
}

// NewRecorder creates the run row and subscribes to every notification.
func NewRecorder(ctx context.Context, s *Store, sub Subscriber, run Run, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	created, err := s.CreateRun(ctx, run)
	if err != nil {
		return nil, err
	}

	r := &Recorder{store: s, run: created, logger: logger}
	r.unsubscribe = sub.On(engine.NotifyAll, r.handle)
	logger.Debug("recording run", "run_id", created.ID, "pipeline", created.Pipeline)
	return r, nil
}

// RunID returns the id of the run being written.
func (r *Recorder) RunID() string { return r.run.ID }

// Seq returns how many events have been written.
func (r *Recorder) Seq() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Err returns the first write failure, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Finish unsubscribes and marks the run with status and the hash of the
// recorded events. A recorder that saw a write failure finishes as failed.
func (r *Recorder) Finish(ctx context.Context, status string) (string, error) {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}

	r.mu.Lock()
	if r.err != nil {
		status = StatusFailed
	}
	trace := r.trace
	r.mu.Unlock()

	hash, err := ir.Hash(ir.DomainTrace, trace)
	if err != nil {
		return "", fmt.Errorf("hash run %s: %w", r.run.ID, err)
	}
	if err := r.store.FinishRun(ctx, r.run.ID, status, hash); err != nil {
		return "", err
	}
	r.logger.Debug("run finished", "run_id", r.run.ID, "status", status, "events", len(trace))
	return hash, nil
}

func (r *Recorder) handle(n engine.Notification) {
	ev, ok := toEvent(n)
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	ev.RunID = r.run.ID
	ev.Seq = r.seq
	if err := r.store.AppendEvent(context.Background(), ev); err != nil {
		r.logger.Error("record event failed", "run_id", r.run.ID, "seq", ev.Seq, "type", ev.Type, "error", err)
		if r.err == nil {
			r.err = err
		}
		return
	}
	r.trace = append(r.trace, traceLine(ev))
}

// toEvent maps a notification to a row. Scheduling bookkeeping
// (eventScheduled, eventCancelled, eventProcessed) is not recorded.
func toEvent(n engine.Notification) (Event, bool) {
	ev := Event{Type: string(n.Type), At: n.At}

	switch data := n.Data.(type) {
	case engine.StateChange:
		ev.Component = data.ComponentID
		ev.From = string(data.From)
		ev.To = string(data.To)
		ev.Action = string(data.Action)
		ev.Payload = map[string]any(data.Payload)
	case engine.ErrorNotice:
		if data.Err != nil {
			ev.Error = data.Err.Error()
		}
		if data.Event != nil {
			ev.Component = data.Event.ComponentID
			ev.Action = string(data.Event.Action)
		}
	case engine.ScenarioLoaded:
		ev.Payload = map[string]any{"name": data.Name, "events": len(data.EventIDs)}
	case engine.SpeedChanged:
		ev.Payload = map[string]any{"old": data.Old, "new": data.New}
		if !math.IsNaN(data.Requested) && !math.IsInf(data.Requested, 0) {
			ev.Payload["requested"] = data.Requested
		}
	case engine.ComponentNotice:
		ev.Component = data.ComponentID
		ev.Payload = map[string]any{"family": data.Family}
	default:
		switch n.Type {
		case engine.NotifySimulationStarted, engine.NotifySimulationStopped, engine.NotifySimulationReset:
		default:
			return Event{}, false
		}
	}
	return ev, true
}

func traceLine(ev Event) map[string]any {
	m := map[string]any{
		"seq":  ev.Seq,
		"at":   ev.At.Milliseconds(),
		"type": ev.Type,
	}
	for k, v := range map[string]string{
		"component": ev.Component,
		"from":      ev.From,
		"to":        ev.To,
		"action":    ev.Action,
		"error":     ev.Error,
	} {
		if v != "" {
			m[k] = v
		}
	}
	if len(ev.Payload) > 0 {
		m["payload"] = ev.Payload
	}
	return m
}
