package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allowed = map[string]bool{"type": true, "component": true, "at": true, "seq": true}

func TestValidate_ValidSelect(t *testing.T) {
	q := Select{
		From:    "events",
		Columns: []string{"seq", "type"},
		Filter:  Conj(Equals{Field: "type", Value: "error"}, Between{Field: "at", Lo: int64(0)}),
		OrderBy: []string{"seq"},
	}
	res := Validate(q, allowed)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.NoError(t, res.Err())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	q := Select{
		Columns: []string{"bogus"},
		Filter: And{Predicates: []Predicate{
			Equals{Field: "type", Value: nil},
			Equals{Field: "component", Value: 1.5},
			Between{Field: "at"},
		}},
	}
	res := Validate(q, allowed)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 5)
	assert.Equal(t, "select has no source", res.Errors[0])
	assert.Contains(t, res.Errors[1], `unknown field "bogus"`)
	assert.Contains(t, res.Errors[1], "known: at, component, seq, type")
	assert.Contains(t, res.Errors[2], "null values are not supported")
	assert.Contains(t, res.Errors[3], "unsupported value type float64")
	assert.Contains(t, res.Errors[4], "range has no bounds")

	err := res.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter: select has no source; ")
}

func TestValidate_NilQuery(t *testing.T) {
	res := Validate(nil, allowed)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"nil query"}, res.Errors)
}

func TestValidatePredicate(t *testing.T) {
	assert.True(t, ValidatePredicate(nil, allowed).Valid)
	assert.True(t, ValidatePredicate(Equals{Field: "seq", Value: int64(3)}, allowed).Valid)

	res := ValidatePredicate(Equals{Field: "payload", Value: "{}"}, allowed)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], `unknown field "payload"`)
}
