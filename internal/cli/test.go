package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pipesim/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // case filter (glob pattern on the file name)
}

// CaseResult holds the result of a single case execution.
type CaseResult struct {
	Name      string   `json:"name"`
	File      string   `json:"file"`
	Pass      bool     `json:"pass"`
	Errors    []string `json:"errors,omitempty"`
	TraceHash string   `json:"trace_hash,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Cases  []CaseResult `json:"cases"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Total  int          `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <cases-path>",
		Short: "Run conformance cases",
		Long: `Run conformance cases using the harness.

Each case runs on a fresh scene with a manual clock, so results are
deterministic. Assertions are checked and, when golden/<name>.golden exists
next to the case file, the trace is compared against it. Cases without a
pipeline use --pipeline or the built-in pipeline.

Exit codes:
  0 - All cases passed
  1 - One or more cases failed
  2 - Command error (invalid paths, etc.)

Examples:
  pipesim test ./cases
  pipesim test ./cases --filter "fault*"
  pipesim test ./cases --update
  pipesim test ./cases --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter cases by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, casesPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if _, err := os.Stat(casesPath); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("cases path not found: %s", casesPath))
	}

	files, err := findCaseFiles(casesPath, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find cases", err)
	}

	result := TestResult{Cases: make([]CaseResult, 0, len(files)), Total: len(files)}
	if len(files) == 0 {
		if formatter.JSON() {
			return formatter.Success(result)
		}
		fmt.Fprintln(formatter.Writer, "No cases found.")
		return nil
	}

	for _, file := range files {
		cr := runCase(opts, file)
		result.Cases = append(result.Cases, cr)
		if cr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		if !formatter.JSON() {
			printCaseResult(formatter, cr, opts.Update)
		}
	}

	if formatter.JSON() {
		if result.Failed > 0 {
			if err := formatter.Failure(ErrCodeGeneric, fmt.Sprintf("%d of %d case(s) failed", result.Failed, result.Total), result); err != nil {
				return err
			}
		} else if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintf(formatter.Writer, "%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d case(s) failed", result.Failed))
	}
	return nil
}

// findCaseFiles lists case files and applies the name filter.
func findCaseFiles(path, filter string) ([]string, error) {
	files, err := harness.FindCases(path)
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return files, nil
	}

	var out []string
	for _, f := range files {
		base := filepath.Base(f)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		matched, err := filepath.Match(filter, name)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			out = append(out, f)
		}
	}
	return out, nil
}

func runCase(opts *TestOptions, file string) CaseResult {
	cr := CaseResult{Name: filepath.Base(file), File: file}

	c, err := harness.LoadCase(file)
	if err != nil {
		cr.Errors = []string{fmt.Sprintf("failed to load case: %v", err)}
		return cr
	}
	cr.Name = c.Name
	if c.Pipeline == "" {
		c.Pipeline = opts.Pipeline
	}

	result, err := harness.Run(c)
	if err != nil {
		cr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return cr
	}

	trace, err := harness.RenderTrace(result)
	if err != nil {
		cr.Errors = []string{fmt.Sprintf("render trace: %v", err)}
		return cr
	}
	if cr.TraceHash, err = harness.TraceHash(result); err != nil {
		cr.Errors = []string{fmt.Sprintf("hash trace: %v", err)}
		return cr
	}

	goldenPath := goldenFilePath(file, c.Name)
	switch {
	case opts.Update:
		if err := writeGolden(goldenPath, trace); err != nil {
			cr.Errors = []string{fmt.Sprintf("%s: failed to update golden file: %v", ErrCodeWriteFailed, err)}
			return cr
		}
	default:
		want, err := os.ReadFile(goldenPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			cr.Errors = []string{fmt.Sprintf("golden comparison failed: %v", err)}
			return cr
		case !bytes.Equal(want, trace):
			result.AddError("trace does not match golden file (run with --update to regenerate)")
		}
	}

	cr.Pass = result.Pass
	cr.Errors = result.Errors
	return cr
}

func goldenFilePath(caseFile, name string) string {
	return filepath.Join(filepath.Dir(caseFile), "golden", name+".golden")
}

func writeGolden(path string, trace []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, trace, 0o644)
}

func printCaseResult(formatter *OutputFormatter, cr CaseResult, updated bool) {
	w := formatter.Writer
	if cr.Pass {
		if updated {
			fmt.Fprintf(w, "✓ %s (golden updated)\n", cr.Name)
		} else {
			fmt.Fprintf(w, "✓ %s\n", cr.Name)
		}
		formatter.VerboseLog("  %s trace %s", cr.File, cr.TraceHash)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", cr.Name)
	for _, e := range cr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
