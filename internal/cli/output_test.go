package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError(t *testing.T) {
	err := NewExitError(ExitFailure, "2 case(s) failed")
	assert.Equal(t, "2 case(s) failed", err.Error())
	assert.Nil(t, err.Unwrap())

	cause := errors.New("disk full")
	wrapped := WrapExitError(ExitCommandError, "failed to open database", cause)
	assert.Equal(t, "failed to open database: disk full", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitFailure},
		{"failure", NewExitError(ExitFailure, "x"), ExitFailure},
		{"command", NewExitError(ExitCommandError, "x"), ExitCommandError},
		{"wrapped", fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "x")), ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestOutputFormatter_SuccessJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]int{"count": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"count": float64(3)}, resp.Data)
}

func TestOutputFormatter_SuccessText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Success("done"))
	assert.Equal(t, "done\n", buf.String())
}

func TestOutputFormatter_Error(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, f.Error(ErrCodeNotFound, "missing", nil))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "E005", resp.Error.Code)
		assert.Equal(t, "missing", resp.Error.Message)
	})

	t.Run("text with details", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}
		require.NoError(t, f.Error(ErrCodeNotFound, "missing", "dir=x"))
		assert.Equal(t, "Error [E005]: missing\nDetails: dir=x\n", buf.String())
	})
}

func TestOutputFormatter_Failure(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, f.Failure("E001", "1 of 2 case(s) failed", TestResult{Total: 2, Failed: 1}))

	var result TestResult
	resp := decodeResponse(t, buf.String(), &result)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Failed)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	quiet := &OutputFormatter{Writer: out, ErrWriter: errOut}
	quiet.VerboseLog("hidden %d", 1)
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())

	loud := &OutputFormatter{Writer: out, ErrWriter: errOut, Verbose: true}
	loud.VerboseLog("shown %d", 2)
	assert.Empty(t, out.String())
	assert.Equal(t, "shown 2\n", errOut.String())

	noErr := &OutputFormatter{Writer: out, Verbose: true}
	assert.Equal(t, out, noErr.GetErrWriter())
}
