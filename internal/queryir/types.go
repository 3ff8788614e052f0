package queryir

// Query is the sealed interface for query nodes.
type Query interface {
	queryNode()
}

// Predicate is the sealed interface for filter nodes.
type Predicate interface {
	predicateNode()
}

// Select reads Columns from a source, filtered and ordered.
//
// An empty OrderBy is not allowed to reach a backend; backends add a
// deterministic default.
type Select struct {
	From    string
	Columns []string
	Filter  Predicate
	OrderBy []string
}

func (Select) queryNode() {}

// Equals matches rows whose Field equals Value.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// Between matches rows whose Field lies in [Lo, Hi]. A nil bound is open.
type Between struct {
	Field string
	Lo    any
	Hi    any
}

func (Between) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Conj builds an And, dropping nil predicates and flattening nested Ands.
// It returns nil when nothing is left.
func Conj(preds ...Predicate) Predicate {
	var out []Predicate
	for _, p := range preds {
		switch v := p.(type) {
		case nil:
		case And:
			inner := Conj(v.Predicates...)
			if a, ok := inner.(And); ok {
				out = append(out, a.Predicates...)
			} else if inner != nil {
				out = append(out, inner)
			}
		default:
			out = append(out, v)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return And{Predicates: out}
}

// Fields returns the field names referenced by p in traversal order.
func Fields(p Predicate) []string {
	var out []string
	var walk func(Predicate)
	walk = func(p Predicate) {
		switch v := p.(type) {
		case Equals:
			out = append(out, v.Field)
		case Between:
			out = append(out, v.Field)
		case And:
			for _, sub := range v.Predicates {
				walk(sub)
			}
		}
	}
	walk(p)
	return out
}
