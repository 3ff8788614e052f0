package queryir

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationResult lists every problem found in a query.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks q against the allowed field names.
//
// It reports unknown fields, unsupported value types, missing bounds and
// a Select without a source. It never mutates q.
func Validate(q Query, allowed map[string]bool) ValidationResult {
	v := &validator{allowed: allowed}
	v.query(q)
	return ValidationResult{Valid: len(v.errs) == 0, Errors: v.errs}
}

// ValidatePredicate is Validate for a bare predicate.
func ValidatePredicate(p Predicate, allowed map[string]bool) ValidationResult {
	v := &validator{allowed: allowed}
	v.predicate(p)
	return ValidationResult{Valid: len(v.errs) == 0, Errors: v.errs}
}

// Err folds the result into a single error, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("invalid filter: %s", strings.Join(r.Errors, "; "))
}

type validator struct {
	allowed map[string]bool
	errs    []string
}

func (v *validator) add(format string, args ...any) {
	v.errs = append(v.errs, fmt.Sprintf(format, args...))
}

func (v *validator) query(q Query) {
	switch sel := q.(type) {
	case Select:
		if sel.From == "" {
			v.add("select has no source")
		}
		for _, c := range sel.Columns {
			v.field(c)
		}
		for _, c := range sel.OrderBy {
			v.field(c)
		}
		v.predicate(sel.Filter)
	case nil:
		v.add("nil query")
	default:
		v.add("unsupported query type %T", q)
	}
}

func (v *validator) predicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.field(pred.Field)
		v.value(pred.Field, pred.Value)
	case Between:
		v.field(pred.Field)
		if pred.Lo == nil && pred.Hi == nil {
			v.add("field %q: range has no bounds", pred.Field)
		}
		if pred.Lo != nil {
			v.value(pred.Field, pred.Lo)
		}
		if pred.Hi != nil {
			v.value(pred.Field, pred.Hi)
		}
	case And:
		for _, sub := range pred.Predicates {
			v.predicate(sub)
		}
	default:
		v.add("unsupported predicate type %T", p)
	}
}

func (v *validator) field(name string) {
	if !v.allowed[name] {
		v.add("unknown field %q (known: %s)", name, strings.Join(v.known(), ", "))
	}
}

func (v *validator) value(field string, val any) {
	switch val.(type) {
	case string, int64, bool:
	case nil:
		v.add("field %q: null values are not supported", field)
	default:
		v.add("field %q: unsupported value type %T", field, val)
	}
}

func (v *validator) known() []string {
	out := make([]string, 0, len(v.allowed))
	for k := range v.allowed {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
