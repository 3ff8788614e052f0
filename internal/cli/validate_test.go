package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipesim/internal/compiler"
	"github.com/roach88/pipesim/internal/pipeline"
)

func TestValidateBuiltin(t *testing.T) {
	out, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Pipeline built-in valid")
}

func TestValidateShippedPipelines(t *testing.T) {
	for _, dir := range []string{defaultPipeline, gatedPipeline} {
		t.Run(filepath.Base(dir), func(t *testing.T) {
			out, err := execute(t, "validate", dir)
			require.NoError(t, err)
			assert.Contains(t, out, "✓ Pipeline "+dir+" valid")
			assert.NotContains(t, out, "warning")
		})
	}
}

func TestValidatePipelineFlag(t *testing.T) {
	out, err := execute(t, "--pipeline", gatedPipeline, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, gatedPipeline)
}

func TestValidateJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", gatedPipeline)
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)
}

func TestValidateReportsLoops(t *testing.T) {
	dir := filepath.Join("testdata", "loop")

	out, err := execute(t, "validate", dir)
	require.NoError(t, err, "loops do not fail validation")
	assert.Contains(t, out, "warning: Zero-delay chain loop detected")

	out, err = execute(t, "--format", "json", "validate", dir)
	require.NoError(t, err)
	var result ValidationResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, compiler.LevelWarning, result.Warnings[0].Level)
}

func TestValidateInvalidTopology(t *testing.T) {
	dir := filepath.Join("testdata", "invalid")

	out, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, pipeline.ErrUnknownFamily)

	out, err = execute(t, "--format", "json", "validate", dir)
	require.Error(t, err)
	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, pipeline.ErrUnknownFamily, resp.Error.Code)
}

func TestValidateLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		dir  string
		code string
	}{
		{"missing", filepath.Join("testdata", "nope"), ErrCodeNotFound},
		{"empty", filepath.Join("testdata", "empty"), ErrCodeNoFiles},
		{"broken", filepath.Join("testdata", "broken"), ErrCodeBuildFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "validate", tt.dir)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "✗ Pipeline could not be loaded")
			assert.Contains(t, out, tt.code)

			out, err = execute(t, "--format", "json", "validate", tt.dir)
			require.Error(t, err)
			resp := decodeResponse(t, out, nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}
