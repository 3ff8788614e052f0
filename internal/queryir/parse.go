package queryir

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports a malformed filter expression.
type ParseError struct {
	Expr    string
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("filter %q: %s", e.Expr, e.Message)
}

// Parse turns field=value and field=lo..hi expressions into one predicate.
//
// Numeric fields listed in numeric get int64 values; others keep the raw
// string. Either side of a range may be empty for an open bound.
func Parse(exprs []string, numeric map[string]bool) (Predicate, error) {
	preds := make([]Predicate, 0, len(exprs))
	for _, expr := range exprs {
		p, err := parseOne(expr, numeric)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return Conj(preds...), nil
}

func parseOne(expr string, numeric map[string]bool) (Predicate, error) {
	field, raw, ok := strings.Cut(expr, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return nil, &ParseError{Expr: expr, Message: "expected field=value"}
	}
	if !numeric[field] {
		return Equals{Field: field, Value: raw}, nil
	}

	if lo, hi, isRange := strings.Cut(raw, ".."); isRange {
		b := Between{Field: field}
		var err error
		if b.Lo, err = parseBound(expr, lo); err != nil {
			return nil, err
		}
		if b.Hi, err = parseBound(expr, hi); err != nil {
			return nil, err
		}
		if b.Lo == nil && b.Hi == nil {
			return nil, &ParseError{Expr: expr, Message: "range needs at least one bound"}
		}
		return b, nil
	}

	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, &ParseError{Expr: expr, Message: "expected an integer"}
	}
	return Equals{Field: field, Value: n}, nil
}

func parseBound(expr, s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, &ParseError{Expr: expr, Message: fmt.Sprintf("bound %q is not an integer", s)}
	}
	return n, nil
}
