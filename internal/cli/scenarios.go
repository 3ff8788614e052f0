package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ScenarioInfo describes one scenario of a pipeline.
type ScenarioInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
	Events      int    `json:"events"`
}

// NewScenariosCommand creates the scenarios command.
func NewScenariosCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "scenarios",
		Short:         "List the pipeline's scenarios",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(rootOpts, cmd)
		},
	}
	return cmd
}

func runScenarios(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, err := LoadPipeline(opts.Pipeline)
	if err != nil {
		return exitForLoad(err)
	}

	infos := make([]ScenarioInfo, 0, len(loaded.Topology.Scenarios))
	for _, s := range loaded.Topology.Scenarios {
		infos = append(infos, ScenarioInfo{
			Name:        s.Name,
			Description: s.Description,
			DurationMS:  s.End().Milliseconds(),
			Events:      len(s.Events),
		})
	}

	if formatter.JSON() {
		return formatter.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintf(formatter.Writer, "No scenarios in %s.\n", loaded.Source)
		return nil
	}
	for _, s := range infos {
		fmt.Fprintf(formatter.Writer, "%-18s %6dms  %2d event(s)  %s\n", s.Name, s.DurationMS, s.Events, s.Description)
	}
	return nil
}
