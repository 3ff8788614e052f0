package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipesim/internal/pipeline"
)

func TestGraphFamily(t *testing.T) {
	out, err := execute(t, "graph", "actor")
	require.NoError(t, err)
	assert.Contains(t, out, `digraph "actor"`)
	assert.Contains(t, out, `"WAITING" -> "RUNNING" [label="START_RUN"]`)
}

func TestGraphCustomFamily(t *testing.T) {
	out, err := execute(t, "--pipeline", gatedPipeline, "graph", "gate")
	require.NoError(t, err)
	assert.Contains(t, out, `"OPEN" -> "CLOSING" [label="CLOSE"]`)
}

func TestGraphChains(t *testing.T) {
	out, err := execute(t, "graph")
	require.NoError(t, err)
	assert.Contains(t, out, `digraph "default"`)
	assert.Contains(t, out, `"actor-1" -> "pipe-1" [label="DELIVERING +200ms START_FLOW"]`)
	assert.Contains(t, out, `"actor-1" -> "actor-1" [label="DELIVERING +1000ms DELIVERY_COMPLETE"]`)
}

func TestGraphUnknownFamily(t *testing.T) {
	_, err := execute(t, "graph", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "unknown family")
}

func TestGraphOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chains.dot")

	out, err := execute(t, "--format", "json", "graph", "--out", path)
	require.NoError(t, err)
	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "ok", resp.Status)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ChainsDOT(pipeline.Default()), string(data))
}

func TestGraphJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "graph", "sink")
	require.NoError(t, err)

	var result GraphResult
	decodeResponse(t, out, &result)
	assert.Equal(t, "sink", result.Name)
	assert.Contains(t, result.DOT, `digraph "sink"`)
}

func TestChainsDOT_Deterministic(t *testing.T) {
	topo := pipeline.Default()
	assert.Equal(t, ChainsDOT(topo), ChainsDOT(topo))
}
