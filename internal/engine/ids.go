package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator produces unique scheduled-event ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 ids.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequentialGenerator returns "<prefix>-1", "<prefix>-2", ...
//
// Used by the harness and tests so traces and golden files are reproducible.
type SequentialGenerator struct {
	prefix string
	n      int64
}

// NewSequentialGenerator creates a generator with the given prefix.
// An empty prefix defaults to "evt".
func NewSequentialGenerator(prefix string) *SequentialGenerator {
	if prefix == "" {
		prefix = "evt"
	}
	return &SequentialGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialGenerator) Generate() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
