package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	ctx = context.Background()

	gatedPipeline   = filepath.Join("..", "..", "pipelines", "gated")
	defaultPipeline = filepath.Join("..", "..", "pipelines", "default")
	harnessCases    = filepath.Join("..", "harness", "testdata", "cases")
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse parses a JSON envelope and decodes its data into v.
func decodeResponse(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	if v != nil && resp.Data != nil {
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, v))
	}
	return resp
}
