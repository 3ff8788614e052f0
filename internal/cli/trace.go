package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pipesim/internal/engine"
	"github.com/roach88/pipesim/internal/ir"
	"github.com/roach88/pipesim/internal/queryir"
	"github.com/roach88/pipesim/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	RunID     string
	Component string   // optional filter
	Where     []string // field=value or field=lo..hi filters
	Limit     int      // runs listed without --run
}

// TraceEvent is one entry of a run timeline.
type TraceEvent struct {
	Seq       int64          `json:"seq"`
	At        int64          `json:"at_ms"`
	Type      string         `json:"type"`
	Component string         `json:"component,omitempty"`
	From      string         `json:"from,omitempty"`
	To        string         `json:"to,omitempty"`
	Action    string         `json:"action,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// CauseEdge links a chained state change to the change that caused it.
type CauseEdge struct {
	Cause      string `json:"cause"`
	CauseState string `json:"cause_state"`
	Component  string `json:"component"`
	Action     string `json:"action"`
	Seq        int64  `json:"seq"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run      RunInfo      `json:"run"`
	Timeline []TraceEvent `json:"timeline"`
	Causes   []CauseEdge  `json:"causes"`
	Stats    TraceStats   `json:"stats"`
}

// RunInfo is the listing form of a recorded run.
type RunInfo struct {
	ID        string  `json:"id"`
	Pipeline  string  `json:"pipeline"`
	Scenario  string  `json:"scenario,omitempty"`
	Speed     float64 `json:"speed"`
	Status    string  `json:"status"`
	StartedAt string  `json:"started_at"`
	TraceHash string  `json:"trace_hash,omitempty"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents  int            `json:"total_events"`
	StateChanges int            `json:"state_changes"`
	Chained      int            `json:"chained"`
	Errors       int            `json:"errors"`
	ByComponent  map[string]int `json:"by_component"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded runs",
		Long: `Show runs recorded with "pipesim run --db".

Without --run, lists the most recent runs. With --run, prints the run's
timeline in emission order, the cause links of chained state changes and
summary statistics.

Examples:
  pipesim trace --db ./runs.db
  pipesim trace --db ./runs.db --run 0190f3c2-...
  pipesim trace --db ./runs.db --run 0190f3c2-... --component pipe-1 --format json
  pipesim trace --db ./runs.db --run 0190f3c2-... --where type=stateChange --where at=0..500`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show")
	cmd.Flags().StringVar(&opts.Component, "component", "", "filter the timeline to one component")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "filter events by field=value or field=lo..hi (repeatable)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "number of runs to list")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("%s: database not found: %s", ErrCodeDatabase, opts.Database), err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, st, opts.Limit, formatter)
	}

	run, err := st.GetRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return WrapExitError(ExitCommandError, ErrCodeDatabase, err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	filter, err := traceFilter(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("%s: invalid filter", ErrCodeFilter), err)
	}
	events, err := st.QueryEvents(ctx, run.ID, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	result := buildTrace(run, events)
	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputTraceText(formatter, result)
}

// traceFilter combines --component and --where into one validated predicate.
func traceFilter(opts *TraceOptions) (queryir.Predicate, error) {
	where, err := queryir.Parse(opts.Where, store.NumericEventFields)
	if err != nil {
		return nil, err
	}
	var component queryir.Predicate
	if opts.Component != "" {
		component = queryir.Equals{Field: "component", Value: opts.Component}
	}
	filter := queryir.Conj(component, where)
	if err := queryir.ValidatePredicate(filter, store.EventFields()).Err(); err != nil {
		return nil, err
	}
	return filter, nil
}

func listRuns(ctx context.Context, st *store.Store, limit int, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	infos := make([]RunInfo, 0, len(runs))
	for _, r := range runs {
		infos = append(infos, runInfo(r))
	}
	if formatter.JSON() {
		return formatter.Success(infos)
	}

	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range infos {
		scenario := r.Scenario
		if scenario == "" {
			scenario = "-"
		}
		fmt.Fprintf(formatter.Writer, "%s  %-9s %s  %s/%s  speed %g\n",
			r.ID, r.Status, r.StartedAt, r.Pipeline, scenario, r.Speed)
	}
	return nil
}

func runInfo(r store.Run) RunInfo {
	return RunInfo{
		ID:        r.ID,
		Pipeline:  r.Pipeline,
		Scenario:  r.Scenario,
		Speed:     r.Speed,
		Status:    r.Status,
		StartedAt: r.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		TraceHash: r.TraceHash,
	}
}

// buildTrace converts stored events into a timeline, cause links and stats.
func buildTrace(run store.Run, events []store.Event) TraceResult {
	result := TraceResult{
		Run:      runInfo(run),
		Timeline: make([]TraceEvent, 0, len(events)),
		Causes:   []CauseEdge{},
		Stats:    TraceStats{ByComponent: make(map[string]int)},
	}

	for _, ev := range events {
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:       ev.Seq,
			At:        ev.At.Milliseconds(),
			Type:      ev.Type,
			Component: ev.Component,
			From:      ev.From,
			To:        ev.To,
			Action:    ev.Action,
			Payload:   ev.Payload,
			Error:     ev.Error,
		})

		switch ev.Type {
		case string(engine.NotifyStateChange):
			result.Stats.StateChanges++
			result.Stats.ByComponent[ev.Component]++
			if cause, ok := ev.Payload["cause"].(string); ok {
				causeState, _ := ev.Payload["causeState"].(string)
				result.Causes = append(result.Causes, CauseEdge{
					Cause:      cause,
					CauseState: causeState,
					Component:  ev.Component,
					Action:     ev.Action,
					Seq:        ev.Seq,
				})
				result.Stats.Chained++
			}
		case string(engine.NotifyError):
			result.Stats.Errors++
		}
	}
	result.Stats.TotalEvents = len(result.Timeline)
	return result
}

func outputTraceText(formatter *OutputFormatter, result TraceResult) error {
	w := formatter.Writer
	r := result.Run
	fmt.Fprintf(w, "Run %s (%s)\n", r.ID, r.Status)
	fmt.Fprintf(w, "  pipeline %s, scenario %q, speed %g\n", r.Pipeline, r.Scenario, r.Speed)
	if r.TraceHash != "" {
		fmt.Fprintf(w, "  trace %s\n", r.TraceHash)
	}
	fmt.Fprintln(w)

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No events recorded.")
		return nil
	}

	fmt.Fprintln(w, "Timeline:")
	for _, ev := range result.Timeline {
		fmt.Fprintf(w, "  %4d %7dms  %s\n", ev.Seq, ev.At, describeEvent(ev, formatter.Verbose))
	}

	if len(result.Causes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Causes:")
		for _, c := range result.Causes {
			fmt.Fprintf(w, "  %s:%s -> %s %s (#%d)\n", c.Cause, c.CauseState, c.Component, c.Action, c.Seq)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d events, %d state changes (%d chained), %d errors\n",
		result.Stats.TotalEvents, result.Stats.StateChanges, result.Stats.Chained, result.Stats.Errors)

	ids := make([]string, 0, len(result.Stats.ByComponent))
	for id := range result.Stats.ByComponent {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "  %-14s %d\n", id, result.Stats.ByComponent[id])
	}
	return nil
}

func describeEvent(ev TraceEvent, verbose bool) string {
	var b strings.Builder
	b.WriteString(ev.Type)
	switch {
	case ev.Type == string(engine.NotifyStateChange):
		fmt.Fprintf(&b, " %s %s -%s-> %s", ev.Component, ev.From, ev.Action, ev.To)
	case ev.Error != "":
		fmt.Fprintf(&b, " %s", ev.Error)
	case ev.Component != "":
		fmt.Fprintf(&b, " %s", ev.Component)
	}
	if verbose && len(ev.Payload) > 0 {
		if p, err := ir.MarshalCanonical(ev.Payload); err == nil {
			fmt.Fprintf(&b, " %s", p)
		}
	}
	return b.String()
}
