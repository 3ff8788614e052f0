package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateRun inserts a run row. An empty ID is replaced by a UUIDv7 and a
// zero StartedAt by the current wall time. The stored run is returned.
func (s *Store) CreateRun(ctx context.Context, run Run) (Run, error) {
	if run.Pipeline == "" {
		return Run{}, fmt.Errorf("run pipeline is required")
	}
	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Run{}, fmt.Errorf("generate run id: %w", err)
		}
		run.ID = id.String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, pipeline, scenario, speed, started_at, status, trace_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Pipeline, run.Scenario, run.Speed, run.StartedAt.UnixMilli(), run.Status, run.TraceHash)
	if err != nil {
		return Run{}, fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return run, nil
}

// AppendEvent writes one event row. Seq must be unique within the run;
// a repeated (run_id, seq) is rejected by the primary key.
func (s *Store) AppendEvent(ctx context.Context, ev Event) error {
	payload, err := marshalPayload(ev.Payload)
	if err != nil {
		return fmt.Errorf("event %s/%d: %w", ev.RunID, ev.Seq, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (run_id, seq, at_ms, type, component, from_state, to_state, action, payload, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.RunID, ev.Seq, ev.At.Milliseconds(), ev.Type, ev.Component, ev.From, ev.To, ev.Action, payload, ev.Error)
	if err != nil {
		return fmt.Errorf("insert event %s/%d: %w", ev.RunID, ev.Seq, err)
	}
	return nil
}

// FinishRun marks a run as ended with the given status and trace hash.
func (s *Store) FinishRun(ctx context.Context, runID, status, traceHash string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, trace_hash = ?, finished_at = ?
		WHERE id = ?
	`, status, traceHash, time.Now().UnixMilli(), runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, sql.ErrNoRows)
	}
	return nil
}

// DeleteRun removes a run and, via cascade, its events.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID); err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	return nil
}
