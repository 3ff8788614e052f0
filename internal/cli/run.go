package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/roach88/pipesim/internal/config"
	"github.com/roach88/pipesim/internal/engine"
	"github.com/roach88/pipesim/internal/pipeline"
	"github.com/roach88/pipesim/internal/render"
	"github.com/roach88/pipesim/internal/scheduler"
	"github.com/roach88/pipesim/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database      string
	Scenario      string
	Speed         float64
	TargetFPS     int
	Duration      time.Duration
	ReducedMotion bool
	Headless      bool
	Width, Height int
}

// RunSummary is printed when a run ends.
type RunSummary struct {
	RunID     string            `json:"run_id,omitempty"`
	Pipeline  string            `json:"pipeline"`
	Scenario  string            `json:"scenario,omitempty"`
	Speed     float64           `json:"speed"`
	Status    string            `json:"status"`
	Elapsed   int64             `json:"elapsed_ms"`
	Final     map[string]string `json:"final"`
	Frames    int               `json:"frames"`
	TraceHash string            `json:"trace_hash,omitempty"`
}

// palette colors sprite sheets in declaration order.
var palette = []string{"39", "214", "82", "205", "141", "196", "229"}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation in real time",
		Long: `Run a pipeline in real time, drawing it in the terminal.

The engine and renderer share one scheduler loop. With --scenario the
scenario is loaded before the loop starts and the run ends when the
scenario's duration (scaled by speed) has elapsed; otherwise it runs until
--duration or Ctrl-C. With --db every engine notification is recorded.

Example:
  pipesim run --scenario single-delivery
  pipesim run --pipeline ./pipelines/gated --scenario gate --speed 2
  pipesim run --scenario capture --db ./runs.db --headless`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run to this SQLite database")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario to load at startup")
	cmd.Flags().Float64Var(&opts.Speed, "speed", config.DefaultSpeed, "initial speed factor")
	cmd.Flags().IntVar(&opts.TargetFPS, "fps", render.DefaultTargetFPS, "renderer target frames per second")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this much wall time (default: scenario length)")
	cmd.Flags().BoolVar(&opts.ReducedMotion, "reduced-motion", false, "disable animation redraws")
	cmd.Flags().BoolVar(&opts.Headless, "headless", false, "do not draw frames")
	cmd.Flags().IntVar(&opts.Width, "width", 0, "terminal grid width (default: fit components)")
	cmd.Flags().IntVar(&opts.Height, "height", 0, "terminal grid height (default: fit components)")

	return cmd
}

// applyFlags overrides settings with the flags the user actually set.
func (o *RunOptions) applyFlags(cmd *cobra.Command, s *config.Settings) {
	flags := cmd.Flags()
	if flags.Changed("db") {
		s.Database = o.Database
	}
	if flags.Changed("scenario") {
		s.Scenario = o.Scenario
	}
	if flags.Changed("speed") {
		s.Speed = o.Speed
	}
	if flags.Changed("fps") {
		s.TargetFPS = o.TargetFPS
	}
	if flags.Changed("reduced-motion") {
		s.ReducedMotion = o.ReducedMotion
	}
}

func runSimulation(opts *RunOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := opts.settings()
	if err != nil {
		return err
	}
	opts.applyFlags(cmd, &s)
	if err := s.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}
	logger, err := opts.logger(s, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	loaded, err := LoadPipeline(s.Pipeline)
	if err != nil {
		return exitForLoad(err)
	}
	topo := loaded.Topology
	if errs := pipeline.Validate(topo); len(errs) > 0 {
		return WrapExitError(ExitFailure, fmt.Sprintf("pipeline %s is invalid (%d error(s))", loaded.Source, len(errs)), errs[0])
	}

	var scenario engine.Scenario
	if s.Scenario != "" {
		sc, ok := topo.Scenario(s.Scenario)
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("%s: unknown scenario %q (have %v)", ErrCodeScenario, s.Scenario, topo.ScenarioNames()))
		}
		scenario = sc
	}

	clock := engine.NewWallClock()
	loop := scheduler.NewLoop(s.TickInterval, clock.Now, logger)

	var surface *render.TerminalSurface
	if !opts.Headless && !formatter.JSON() {
		width, height := gridSize(topo, opts.Width, opts.Height)
		surface = render.NewTerminalSurface(cmd.OutOrStdout(), width, height, sheetStyles(topo))
	}

	buildOpts := pipeline.BuildOptions{
		Clock:        clock,
		Scheduler:    loop,
		TargetFPS:    s.TargetFPS,
		Logger:       logger,
		InitialSpeed: s.Speed,
	}
	if surface != nil {
		buildOpts.Surface = surface
	}
	scene, err := pipeline.Build(topo, buildOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build scene", err)
	}
	defer func() {
		if err := scene.Destroy(); err != nil {
			logger.Error("error destroying scene", "error", err)
		}
	}()
	scene.SetReducedMotion(s.ReducedMotion)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	var rec *store.Recorder
	if s.Database != "" {
		logger.Info("opening database", "path", s.Database)
		st, err := store.Open(s.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		rec, err = store.NewRecorder(parentCtx, st, scene.Engine, store.Run{
			Pipeline: loaded.Source,
			Scenario: s.Scenario,
			Speed:    scene.Engine.Speed(),
		}, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start recording", err)
		}
	}

	duration := opts.Duration
	if s.Scenario != "" {
		if _, err := scene.LoadScenario(s.Scenario); err != nil {
			return WrapExitError(ExitCommandError, "failed to load scenario", err)
		}
		if duration == 0 {
			duration = wallDuration(scenario.End(), scene.Engine.Speed(), s.TickInterval)
		}
	}

	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	if err := scene.Start(); err != nil {
		return WrapExitError(ExitCommandError, "failed to start scene", err)
	}
	logger.Info("simulation running", "pipeline", loaded.Source, "scenario", s.Scenario,
		"speed", scene.Engine.Speed(), "duration", duration)

	redrawStatic(scene, s.ReducedMotion, logger)

	runErr := loop.Run(ctx)
	scene.Stop()
	redrawStatic(scene, s.ReducedMotion, logger)

	status := store.StatusStopped
	if errors.Is(runErr, context.DeadlineExceeded) {
		status = store.StatusComplete
	} else if runErr != nil && !errors.Is(runErr, context.Canceled) {
		status = store.StatusFailed
	}

	summary := RunSummary{
		Pipeline: loaded.Source,
		Scenario: s.Scenario,
		Speed:    scene.Engine.Speed(),
		Status:   status,
		Elapsed:  clock.Now().Milliseconds(),
		Final:    finalStates(scene),
	}
	if surface != nil {
		summary.Frames = surface.Frames()
	}
	if rec != nil {
		// The run context is done by now; finishing uses the parent.
		hash, err := rec.Finish(parentCtx, status)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to finish recording", err)
		}
		summary.RunID = rec.RunID()
		summary.TraceHash = hash
		if rec.Err() != nil {
			summary.Status = store.StatusFailed
		}
	}

	logger.Info("simulation finished", "status", summary.Status, "elapsed_ms", summary.Elapsed)
	if err := outputRunSummary(formatter, summary); err != nil {
		return err
	}
	if summary.Status == store.StatusFailed {
		return NewExitError(ExitFailure, "run failed")
	}
	return nil
}

// redrawStatic shows a single frame when reduced motion keeps the renderer
// from ticking.
func redrawStatic(scene *pipeline.Scene, reducedMotion bool, logger *slog.Logger) {
	if !reducedMotion || scene.Renderer == nil {
		return
	}
	if err := scene.Renderer.Redraw(); err != nil {
		logger.Warn("redraw failed", "error", err)
	}
}

// wallDuration converts a scenario length in simulation time to the wall
// time it takes at speed, plus one tick so the last event is processed.
func wallDuration(end time.Duration, speed float64, tick time.Duration) time.Duration {
	if speed <= 0 || math.IsNaN(speed) {
		speed = 1
	}
	return time.Duration(float64(end)/speed) + tick
}

// gridSize fits the terminal grid around the component layout unless the
// user set a size.
func gridSize(t *pipeline.Topology, width, height int) (int, int) {
	maxX, maxY := 0.0, 0.0
	for _, c := range t.Components {
		maxX = math.Max(maxX, c.X)
		maxY = math.Max(maxY, c.Y)
	}
	if width <= 0 {
		width = int(math.Ceil(maxX)) + 4
	}
	if height <= 0 {
		height = int(math.Ceil(maxY)) + 3
	}
	return width, height
}

// sheetStyles assigns a palette color to every sprite sheet.
func sheetStyles(t *pipeline.Topology) map[string]lipgloss.Style {
	styles := make(map[string]lipgloss.Style, len(t.Sheets))
	for i, sheet := range t.Sheets {
		color := palette[i%len(palette)]
		styles[sheet.Name] = lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
	}
	return styles
}

func finalStates(scene *pipeline.Scene) map[string]string {
	out := make(map[string]string)
	for id, state := range scene.States() {
		out[id] = string(state)
	}
	return out
}

func outputRunSummary(formatter *OutputFormatter, s RunSummary) error {
	if formatter.JSON() {
		return formatter.Success(s)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s after %dms (pipeline %s, speed %g)\n", s.Status, s.Elapsed, s.Pipeline, s.Speed)
	if s.RunID != "" {
		fmt.Fprintf(w, "  run id: %s\n", s.RunID)
		fmt.Fprintf(w, "  trace:  %s\n", s.TraceHash)
	}

	ids := make([]string, 0, len(s.Final))
	for id := range s.Final {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "  %-14s %s\n", id, s.Final[id])
	}
	return nil
}
