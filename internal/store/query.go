package store

import (
	"context"
	"fmt"

	"github.com/roach88/pipesim/internal/queryir"
	"github.com/roach88/pipesim/internal/querysql"
)

// eventFields maps filterable event fields to events columns.
var eventFields = map[string]string{
	"run":       "run_id",
	"seq":       "seq",
	"at":        "at_ms",
	"type":      "type",
	"component": "component",
	"from":      "from_state",
	"to":        "to_state",
	"action":    "action",
	"error":     "error",
	"payload":   "payload",
}

var eventSelect = []string{"run", "seq", "at", "type", "component", "from", "to", "action", "payload", "error"}

// NumericEventFields lists the fields whose filter values are integers.
// at is in milliseconds of simulation time.
var NumericEventFields = map[string]bool{"seq": true, "at": true}

// EventFields returns the names accepted by QueryEvents filters.
func EventFields() map[string]bool {
	out := make(map[string]bool, len(eventFields))
	for f := range eventFields {
		out[f] = true
	}
	return out
}

// QueryEvents returns the events of a run matching filter, in seq order.
// A nil filter returns every event.
func (s *Store) QueryEvents(ctx context.Context, runID string, filter queryir.Predicate) ([]Event, error) {
	q := queryir.Select{
		From:    "events",
		Columns: eventSelect,
		Filter:  queryir.Conj(queryir.Equals{Field: "run", Value: runID}, filter),
		OrderBy: []string{"seq"},
	}
	query, args, err := querysql.NewSQLCompiler(eventFields, "seq ASC").Compile(q)
	if err != nil {
		return nil, fmt.Errorf("compile event query: %w", err)
	}
	return s.queryEvents(ctx, query, args...)
}
