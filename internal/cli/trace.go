package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/revtrack/internal/harness"
	"github.com/roach88/revtrack/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Scenario string // optional - only runs of this scenario
	Pass     int    // optional - only ops of this pass
	Op       string // optional - only ops of this kind
}

// RunSummary describes one recorded run.
type RunSummary struct {
	ID        string   `json:"id"`
	Scenario  string   `json:"scenario"`
	KeyPath   string   `json:"key_path,omitempty"`
	Passes    int      `json:"passes"`
	Passed    bool     `json:"passed"`
	Errors    []string `json:"errors,omitempty"`
	CreatedAt string   `json:"created_at"`
}

// RunList is the listing of recorded runs, newest last.
type RunList []RunSummary

// RenderText prints one line per run.
func (l RunList) RenderText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	for _, s := range l {
		fmt.Fprintf(w, "%s  %s  %-24s %d pass(es)  %s\n",
			truncateID(s.ID), s.CreatedAt, s.Scenario, s.Passes, passedStatus(s.Passed))
	}
	return nil
}

// OpEntry is a single recorded op in the trace timeline.
type OpEntry struct {
	Seq    int64  `json:"seq"`
	Pass   int    `json:"pass"`
	Op     string `json:"op"`
	Key    string `json:"key,omitempty"`
	Before string `json:"before,omitempty"`
}

// TraceResult holds the complete trace output for one run.
type TraceResult struct {
	Run   RunSummary `json:"run"`
	Ops   []OpEntry  `json:"ops"`
	Stats TraceStats `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalOps int            `json:"total_ops"`
	ByOp     map[string]int `json:"by_op"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Show recorded runs",
		Long: `Show runs recorded by "revtrack run --db".

Without a run id, lists recorded runs, optionally only those of one
scenario. With a run id, prints the run's
ops in sequence order, optionally filtered to one pass or one op kind.

Example:
  revtrack trace --db ./runs.db
  revtrack trace --db ./runs.db --scenario rotate
  revtrack trace --db ./runs.db 019283a4-...
  revtrack trace --db ./runs.db 019283a4-... --pass 2 --op move`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runListRuns(opts, cmd)
			}
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "only list runs of this scenario")
	cmd.Flags().IntVar(&opts.Pass, "pass", 0, "only show ops of this pass (1-based)")
	cmd.Flags().StringVar(&opts.Op, "op", "", "only show ops of this kind")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runListRuns(opts *TraceOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(commandContext(cmd), opts.Scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summaries := make(RunList, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, toRunSummary(run))
	}
	return newFormatter(opts.RootOptions, cmd).Respond(CLIResponse{Status: "ok", Data: summaries})
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if opts.Pass < 0 || opts.Pass > run.Passes {
		return NewExitError(ExitCommandError, fmt.Sprintf("pass %d out of range 1..%d", opts.Pass, run.Passes))
	}

	records, err := st.ReadOps(ctx, runID, opts.Pass)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read ops", err)
	}

	result := TraceResult{
		Run:   toRunSummary(run),
		Ops:   buildTimeline(records, opts.Op),
		Stats: TraceStats{ByOp: make(map[string]int)},
	}
	result.Stats.TotalOps = len(result.Ops)
	for _, op := range result.Ops {
		result.Stats.ByOp[op.Op]++
	}

	return newFormatter(opts.RootOptions, cmd).Respond(CLIResponse{Status: "ok", Data: result, RunID: run.ID})
}

// buildTimeline converts store records to timeline entries, keeping only
// ops named opFilter when it is set.
func buildTimeline(records []store.OpRecord, opFilter string) []OpEntry {
	timeline := make([]OpEntry, 0, len(records))
	for _, rec := range records {
		if opFilter != "" && rec.Op != opFilter {
			continue
		}
		timeline = append(timeline, OpEntry{
			Seq:    rec.Seq,
			Pass:   rec.Pass,
			Op:     rec.Op,
			Key:    rec.Key,
			Before: rec.Before,
		})
	}
	return timeline
}

func toRunSummary(run store.Run) RunSummary {
	return RunSummary{
		ID:        run.ID,
		Scenario:  run.Scenario,
		KeyPath:   run.KeyPath,
		Passes:    run.Passes,
		Passed:    run.Passed,
		Errors:    run.Errors,
		CreatedAt: run.CreatedAt,
	}
}

// RenderText prints the run header, its timeline grouped by pass, the
// run's errors and per-op counts.
func (r TraceResult) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Trace for Run: %s\n", r.Run.ID)
	fmt.Fprintf(w, "Scenario: %s\n", r.Run.Scenario)
	if r.Run.KeyPath != "" {
		fmt.Fprintf(w, "Key: %s\n", r.Run.KeyPath)
	}
	fmt.Fprintf(w, "Status: %s\n", passedStatus(r.Run.Passed))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(r.Ops) == 0 {
		fmt.Fprintln(w, "  (no ops)")
	}
	pass := 0
	for _, op := range r.Ops {
		if op.Pass != pass {
			pass = op.Pass
			fmt.Fprintf(w, "  pass %d\n", pass)
		}
		fmt.Fprintf(w, "    [%d] %s\n", op.Seq, formatOp(op))
	}
	fmt.Fprintln(w)

	if len(r.Run.Errors) > 0 {
		fmt.Fprintln(w, "=== Errors ===")
		for _, e := range r.Run.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Ops: %d\n", r.Stats.TotalOps)
	names := make([]string, 0, len(r.Stats.ByOp))
	for name := range r.Stats.ByOp {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-9s %d\n", name+":", r.Stats.ByOp[name])
	}

	return nil
}

// formatOp renders an op the way scenario expectations spell it.
func formatOp(op OpEntry) string {
	return harness.TraceEvent{Op: op.Op, Key: op.Key, Before: op.Before}.String()
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

// passedStatus returns a human-readable run status.
func passedStatus(passed bool) string {
	if passed {
		return "Passed"
	}
	return "Failed"
}
