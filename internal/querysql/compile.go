// Package querysql compiles queryir queries into parameterized SQLite.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/pipesim/internal/queryir"
)

// SQLCompiler compiles queryir to SQL for SQLite.
//
// Every query gets an ORDER BY; values are always bound as parameters.
type SQLCompiler struct {
	// Columns maps logical field names to column names. Fields missing
	// from the map are rejected.
	Columns map[string]string

	// DefaultOrder is used when a Select has no OrderBy.
	DefaultOrder string
}

// NewSQLCompiler creates a compiler for the given field-to-column mapping.
func NewSQLCompiler(columns map[string]string, defaultOrder string) *SQLCompiler {
	return &SQLCompiler{Columns: columns, DefaultOrder: defaultOrder}
}

// Compile converts q into (sql, params).
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	sel, ok := q.(queryir.Select)
	if !ok {
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
	if res := queryir.Validate(sel, c.allowed()); !res.Valid {
		return "", nil, res.Err()
	}

	cols := make([]string, len(sel.Columns))
	for i, f := range sel.Columns {
		cols[i] = c.Columns[f]
	}
	selectClause := "*"
	if len(cols) > 0 {
		selectClause = strings.Join(cols, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", selectClause, sel.From)

	var params []any
	if sel.Filter != nil {
		where, p, err := c.CompilePredicate(sel.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = p
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(c.orderBy(sel.OrderBy))
	return b.String(), params, nil
}

// CompilePredicate converts p into a WHERE fragment and its params.
// A nil predicate is always true.
func (c *SQLCompiler) CompilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		col, err := c.column(pred.Field)
		if err != nil {
			return "", nil, err
		}
		return col + " = ?", []any{pred.Value}, nil
	case queryir.Between:
		return c.compileBetween(pred)
	case queryir.And:
		return c.compileAnd(pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileBetween(b queryir.Between) (string, []any, error) {
	col, err := c.column(b.Field)
	if err != nil {
		return "", nil, err
	}
	switch {
	case b.Lo != nil && b.Hi != nil:
		return col + " BETWEEN ? AND ?", []any{b.Lo, b.Hi}, nil
	case b.Lo != nil:
		return col + " >= ?", []any{b.Lo}, nil
	case b.Hi != nil:
		return col + " <= ?", []any{b.Hi}, nil
	}
	return "", nil, fmt.Errorf("field %q: range has no bounds", b.Field)
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}
	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, sub := range and.Predicates {
		sql, p, err := c.CompilePredicate(sub)
		if err != nil {
			return "", nil, err
		}
		if _, nested := sub.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func (c *SQLCompiler) column(field string) (string, error) {
	col, ok := c.Columns[field]
	if !ok {
		return "", fmt.Errorf("unknown field %q", field)
	}
	return col, nil
}

// orderBy returns the ORDER BY list, falling back to rowid.
func (c *SQLCompiler) orderBy(fields []string) string {
	if len(fields) == 0 {
		if c.DefaultOrder == "" {
			return "rowid ASC"
		}
		return c.DefaultOrder
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = c.Columns[f] + " ASC"
	}
	return strings.Join(parts, ", ")
}

func (c *SQLCompiler) allowed() map[string]bool {
	out := make(map[string]bool, len(c.Columns))
	for f := range c.Columns {
		out[f] = true
	}
	return out
}
