package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipesim/internal/queryir"
)

var columns = map[string]string{
	"run":       "run_id",
	"seq":       "seq",
	"at":        "at_ms",
	"type":      "type",
	"component": "component",
}

func TestCompile_Select(t *testing.T) {
	c := NewSQLCompiler(columns, "seq ASC")
	q := queryir.Select{
		From:    "events",
		Columns: []string{"seq", "at", "type"},
		Filter: queryir.Conj(
			queryir.Equals{Field: "run", Value: "run-1"},
			queryir.Equals{Field: "type", Value: "stateChange"},
			queryir.Between{Field: "at", Lo: int64(100), Hi: int64(200)},
		),
		OrderBy: []string{"seq"},
	}

	sql, params, err := c.Compile(q)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT seq, at_ms, type FROM events WHERE run_id = ? AND type = ? AND at_ms BETWEEN ? AND ? ORDER BY seq ASC",
		sql)
	assert.Equal(t, []any{"run-1", "stateChange", int64(100), int64(200)}, params)
	assert.NotContains(t, sql, "run-1")
}

func TestCompile_DefaultOrder(t *testing.T) {
	sql, params, err := NewSQLCompiler(columns, "seq ASC").Compile(queryir.Select{From: "events"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM events ORDER BY seq ASC", sql)
	assert.Empty(t, params)

	sql, _, err = NewSQLCompiler(columns, "").Compile(queryir.Select{From: "events"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM events ORDER BY rowid ASC", sql)
}

func TestCompilePredicate(t *testing.T) {
	c := NewSQLCompiler(columns, "")
	tests := []struct {
		name   string
		pred   queryir.Predicate
		sql    string
		params []any
	}{
		{"nil", nil, "1 = 1", nil},
		{"empty and", queryir.And{}, "1 = 1", nil},
		{"equals", queryir.Equals{Field: "component", Value: "pipe-1"}, "component = ?", []any{"pipe-1"}},
		{"at least", queryir.Between{Field: "at", Lo: int64(5)}, "at_ms >= ?", []any{int64(5)}},
		{"at most", queryir.Between{Field: "at", Hi: int64(9)}, "at_ms <= ?", []any{int64(9)}},
		{"nested and", queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "type", Value: "error"},
			queryir.And{Predicates: []queryir.Predicate{
				queryir.Equals{Field: "seq", Value: int64(1)},
				queryir.Equals{Field: "seq", Value: int64(2)},
			}},
		}}, "type = ? AND (seq = ? AND seq = ?)", []any{"error", int64(1), int64(2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := c.CompilePredicate(tt.pred)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestCompile_RejectsUnknownFields(t *testing.T) {
	c := NewSQLCompiler(columns, "")

	_, _, err := c.Compile(queryir.Select{
		From:   "events",
		Filter: queryir.Equals{Field: "type; DROP TABLE events", Value: "x"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")

	_, _, err = c.CompilePredicate(queryir.Equals{Field: "bogus", Value: "x"})
	require.Error(t, err)

	_, _, err = c.CompilePredicate(queryir.Between{Field: "at"})
	require.Error(t, err)

	_, _, err = c.Compile(nil)
	require.Error(t, err)
}
