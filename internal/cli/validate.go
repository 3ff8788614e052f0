package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pipesim/internal/compiler"
	"github.com/roach88/pipesim/internal/pipeline"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Pipeline string                     `json:"pipeline"`
	Errors   []pipeline.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [pipeline-dir]",
		Short: "Validate a pipeline definition",
		Long: `Validate a CUE pipeline definition without running it.

Compiles the CUE files against the pipeline schema, checks the topology
(families, components, chains, speed bounds, scenarios) and reports chain
loops found by static analysis. Without a directory the --pipeline flag or
the built-in pipeline is validated.

Exit codes:
  0 - Pipeline valid (loops are reported but do not fail)
  1 - Topology validation failed
  2 - Pipeline could not be loaded`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.Pipeline
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, err := LoadPipeline(dir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr)
		}
		return outputValidateError(formatter, &LoadError{Code: ErrCodeGeneric, Message: err.Error()})
	}
	formatter.VerboseLog("Loaded %s (%d CUE file(s))", loaded.Source, loaded.FileCount)

	result := ValidationResult{
		Valid:    true,
		Pipeline: loaded.Source,
		Errors:   pipeline.Validate(loaded.Topology),
	}
	if len(result.Errors) > 0 {
		result.Valid = false
		return outputValidationErrors(formatter, result)
	}

	result.Warnings = compiler.AnalyzeChains(loaded.Topology)
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Pipeline %s valid\n", result.Pipeline)
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", w.Level, w.Message)
	}
	return nil
}

// outputValidateError outputs a load error. Load errors are command-level
// errors (exit code 2).
func outputValidateError(formatter *OutputFormatter, loadErr *LoadError) error {
	if formatter.JSON() {
		_ = formatter.Error(loadErr.Code, loadErr.Message, map[string]int{"line": loadErr.Line()})
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Pipeline could not be loaded")
		if line := loadErr.Line(); line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", loadErr.Code, loadErr.Message)
	}
	return WrapExitError(ExitCommandError, "failed to load pipeline", loadErr)
}

// outputValidationErrors outputs topology validation errors (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.JSON() {
		if err := formatter.Failure(errs[0].Code, errs[0].Message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
