package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const ms = time.Millisecond

// createTestStore opens a file-backed store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	st, err := Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func createTestRun(t *testing.T, st *Store, id string, started time.Time) Run {
	t.Helper()
	run, err := st.CreateRun(context.Background(), Run{
		ID:        id,
		Pipeline:  "default",
		Scenario:  "single-delivery",
		Speed:     1,
		StartedAt: started,
	})
	require.NoError(t, err)
	return run
}
