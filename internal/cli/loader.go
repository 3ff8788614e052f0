package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue/token"

	"github.com/roach88/pipesim/internal/compiler"
	"github.com/roach88/pipesim/internal/pipeline"
)

// BuiltinPipeline names the built-in topology in output.
const BuiltinPipeline = "built-in"

// LoadResult contains a loaded topology and where it came from.
type LoadResult struct {
	Topology  *pipeline.Topology
	Source    string // directory, or BuiltinPipeline
	FileCount int    // number of CUE files found
}

// LoadError represents an error that occurred while loading a pipeline.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Line returns the CUE line of the error, or 0.
func (e *LoadError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// LoadPipeline compiles the CUE files in dir. An empty dir returns the
// built-in topology. The topology is compiled but not validated.
func LoadPipeline(dir string) (*LoadResult, error) {
	if dir == "" {
		return &LoadResult{Topology: pipeline.Default(), Source: BuiltinPipeline}, nil
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("pipeline directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing pipeline directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	topo, err := compiler.CompileDir(dir)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return &LoadResult{Topology: topo, Source: dir, FileCount: len(cueFiles)}, nil
}

// FindCUEFiles returns the .cue files directly in dir, sorted. CUE loads a
// single package per directory, so subdirectories are not scanned.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// Error code constants - unified across all CLI commands. Topology
// validation codes (E100-E199) come from internal/pipeline.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build or schema unification failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeSchema      = "E008" // Pipeline shape error (missing or malformed field)
	ErrCodeDatabase    = "E009" // Run database error
	ErrCodeScenario    = "E010" // Unknown scenario
	ErrCodeFilter      = "E011" // Malformed trace filter
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "cue":
		return ErrCodeBuildFailed
	case "":
		return ErrCodeGeneric
	default:
		return ErrCodeSchema
	}
}

// exitForLoad wraps a LoadPipeline error as a command error.
func exitForLoad(err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return WrapExitError(ExitCommandError, "failed to load pipeline", loadErr)
	}
	return WrapExitError(ExitCommandError, "failed to load pipeline", err)
}
