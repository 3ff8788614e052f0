package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/pipesim/internal/config"
	"github.com/roach88/pipesim/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	LogLevel string
	Config   string // settings YAML
	Pipeline string // CUE pipeline directory; empty means built-in
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the pipesim CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pipesim",
		Short: "pipesim - pipeline state simulator",
		Long: `Simulate a data pipeline of state machines driven by a time-ordered
event queue, with dependent events chained from state changes.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.LogLevel != "" {
				if _, err := logging.ParseLevel(opts.LogLevel); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error); overrides the settings file")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to a settings YAML file")
	cmd.PersistentFlags().StringVar(&opts.Pipeline, "pipeline", "", "directory of CUE pipeline files (default: built-in pipeline)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewGraphCommand(opts))
	cmd.AddCommand(NewScenariosCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// settings loads the settings file, if any, and applies global overrides.
func (o *RootOptions) settings() (config.Settings, error) {
	s := config.Default()
	if o.Config != "" {
		loaded, err := config.Load(o.Config)
		if err != nil {
			return config.Settings{}, WrapExitError(ExitCommandError, "failed to load settings", err)
		}
		s = loaded
	}
	if o.Pipeline != "" {
		s.Pipeline = o.Pipeline
	}
	if o.LogLevel != "" {
		s.LogLevel = o.LogLevel
	}
	return s, nil
}

// logger builds the command logger. --verbose forces debug.
func (o *RootOptions) logger(s config.Settings, w io.Writer) (*slog.Logger, error) {
	if o.Verbose {
		return logging.NewLogger(slog.LevelDebug, w), nil
	}
	level, err := logging.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid log level", err)
	}
	return logging.NewLogger(level, w), nil
}

// formatter returns an output formatter bound to the command's writers.
// Verbose logs go to stderr to avoid corrupting JSON.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
