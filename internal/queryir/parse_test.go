package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var numeric = map[string]bool{"at": true, "seq": true}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		exprs []string
		want  Predicate
	}{
		{"none", nil, nil},
		{"string", []string{"type=error"}, Equals{Field: "type", Value: "error"}},
		{"empty value", []string{"error="}, Equals{Field: "error", Value: ""}},
		{"value keeps equals", []string{"action=A=B"}, Equals{Field: "action", Value: "A=B"}},
		{"integer", []string{"seq=4"}, Equals{Field: "seq", Value: int64(4)}},
		{"range", []string{"at=100..200"}, Between{Field: "at", Lo: int64(100), Hi: int64(200)}},
		{"open low", []string{"at=..200"}, Between{Field: "at", Hi: int64(200)}},
		{"open high", []string{"at=100.."}, Between{Field: "at", Lo: int64(100)}},
		{"string range is literal", []string{"to=A..B"}, Equals{Field: "to", Value: "A..B"}},
		{"conjunction", []string{"type=stateChange", "to=FLOWING"}, And{Predicates: []Predicate{
			Equals{Field: "type", Value: "stateChange"},
			Equals{Field: "to", Value: "FLOWING"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.exprs, numeric)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, expr := range []string{"type", "=x", "seq=four", "at=..", "at=1..x", "at=x..1"} {
		t.Run(expr, func(t *testing.T) {
			_, err := Parse([]string{expr}, numeric)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, expr, pe.Expr)
		})
	}
}
