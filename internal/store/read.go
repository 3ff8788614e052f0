package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/pipesim/internal/queryir"
)

// ErrRunNotFound is returned by GetRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, pipeline, scenario, speed, started_at, finished_at, status, trace_hash`

// GetRun retrieves a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns runs newest first. A limit of zero or less returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRunEvents returns all events of a run in seq order.
// Returns an empty slice (not nil) when the run has no events.
func (s *Store) ReadRunEvents(ctx context.Context, runID string) ([]Event, error) {
	return s.queryEvents(ctx, `
		SELECT run_id, seq, at_ms, type, component, from_state, to_state, action, payload, error
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ReadComponentEvents returns the events of one component within a run.
func (s *Store) ReadComponentEvents(ctx context.Context, runID, component string) ([]Event, error) {
	return s.QueryEvents(ctx, runID, queryir.Equals{Field: "component", Value: component})
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			ev      Event
			atMS    int64
			payload string
		)
		if err := rows.Scan(&ev.RunID, &ev.Seq, &atMS, &ev.Type, &ev.Component,
			&ev.From, &ev.To, &ev.Action, &payload, &ev.Error); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.At = time.Duration(atMS) * time.Millisecond
		if ev.Payload, err = unmarshalPayload(payload); err != nil {
			return nil, fmt.Errorf("event %s/%d: %w", ev.RunID, ev.Seq, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run      Run
		started  int64
		finished sql.NullInt64
	)
	if err := row.Scan(&run.ID, &run.Pipeline, &run.Scenario, &run.Speed,
		&started, &finished, &run.Status, &run.TraceHash); err != nil {
		return Run{}, err
	}
	run.StartedAt = time.UnixMilli(started)
	if finished.Valid {
		t := time.UnixMilli(finished.Int64)
		run.FinishedAt = &t
	}
	return run, nil
}
