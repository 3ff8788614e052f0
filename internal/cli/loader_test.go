package cli

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipesim/internal/pipeline"
)

func TestLoadPipeline_Builtin(t *testing.T) {
	loaded, err := LoadPipeline("")
	require.NoError(t, err)
	assert.Equal(t, BuiltinPipeline, loaded.Source)
	assert.Zero(t, loaded.FileCount)
	assert.Equal(t, pipeline.Default().ScenarioNames(), loaded.Topology.ScenarioNames())
}

func TestLoadPipeline_Dir(t *testing.T) {
	loaded, err := LoadPipeline(gatedPipeline)
	require.NoError(t, err)
	assert.Equal(t, gatedPipeline, loaded.Source)
	assert.Equal(t, 1, loaded.FileCount)
	assert.Equal(t, "gated", loaded.Topology.Name)
}

func TestLoadPipeline_Errors(t *testing.T) {
	tests := []struct {
		name string
		dir  string
		code string
	}{
		{"missing", filepath.Join("testdata", "nope"), ErrCodeNotFound},
		{"file", filepath.Join("testdata", "loop", "pipeline.cue"), ErrCodeNotFound},
		{"empty", filepath.Join("testdata", "empty"), ErrCodeNoFiles},
		{"broken", filepath.Join("testdata", "broken"), ErrCodeBuildFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPipeline(tt.dir)
			require.Error(t, err)

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr), "got %T", err)
			assert.Equal(t, tt.code, loadErr.Code)
		})
	}
}

func TestLoadError_Format(t *testing.T) {
	err := &LoadError{Code: ErrCodeNoFiles, Message: "no CUE files found in x"}
	assert.Equal(t, "E003: no CUE files found in x", err.Error())
	assert.Zero(t, err.Line())
}

func TestFindCUEFiles(t *testing.T) {
	files, err := FindCUEFiles(gatedPipeline)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(gatedPipeline, "pipeline.cue")}, files)

	files, err = FindCUEFiles(filepath.Join("testdata", "empty"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestMapFieldToErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeBuildFailed, MapFieldToErrorCode("cue"))
	assert.Equal(t, ErrCodeSchema, MapFieldToErrorCode("families.gate.initial"))
	assert.Equal(t, ErrCodeGeneric, MapFieldToErrorCode(""))
}
