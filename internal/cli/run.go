package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/revtrack/internal/harness"
	"github.com/roach88/revtrack/internal/store"
	"github.com/roach88/revtrack/internal/telemetry"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Metrics  bool

	// IDGenerator allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator store.IDGenerator
}

// RunOutput is the payload of a single scenario run.
type RunOutput struct {
	Scenario string               `json:"scenario"`
	Pass     bool                 `json:"pass"`
	Passes   []harness.PassResult `json:"passes"`
	Order    []string             `json:"order"`
	Errors   []string             `json:"errors,omitempty"`
	Metrics  *telemetry.Snapshot  `json:"metrics,omitempty"`

	runID    string
	counters *telemetry.Metrics
}

// RenderText prints every pass's ops, the final order, the recorded run
// and the counters when they were asked for, then the verdict.
func (o RunOutput) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Scenario: %s\n", o.Scenario)
	for _, pass := range o.Passes {
		fmt.Fprintf(w, "\nPass %d\n", pass.Pass)
		for _, op := range pass.Ops {
			fmt.Fprintf(w, "  %s\n", op)
		}
		if pass.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", pass.Error)
		}
	}
	fmt.Fprintf(w, "\nOrder: [%s]\n", strings.Join(o.Order, " "))

	if o.runID != "" {
		fmt.Fprintf(w, "Recorded run: %s\n", o.runID)
	}
	if o.Metrics != nil && o.counters != nil {
		fmt.Fprintln(w)
		if err := o.counters.WriteText(w); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	if o.Pass {
		_, err := fmt.Fprintln(w, "✓ Scenario passed")
		return err
	}
	fmt.Fprintln(w, "✗ Scenario failed")
	for _, e := range o.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return nil
}

// response wraps the run in its envelope. A failed scenario carries
// E_SCENARIO_FAILED with the first error as its message.
func (o RunOutput) response() CLIResponse {
	resp := CLIResponse{Status: "ok", Data: o, RunID: o.runID}
	if !o.Pass {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    ErrCodeScenarioFailed,
			Message: o.Errors[0],
			Details: o.Errors,
		}
	}
	return resp
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file>",
		Short: "Run one scenario and print its ops",
		Long: `Run a single scenario and print the ops every pass produced.

With --db the run and its ops are recorded in a SQLite database (created if
it doesn't exist) for later inspection with the trace command.

Example:
  revtrack run ./scenarios/rotate.yaml
  revtrack run --db ./runs.db ./scenarios/rotate.yaml --metrics`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print op and pass counters")

	return cmd
}

// newLogger builds a text logger at level, or debug when verbose.
func newLogger(w io.Writer, level slog.Level, verbose bool) *slog.Logger {
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(cmd.ErrOrStderr(), slog.LevelInfo, opts.Verbose)

	logger.Info("loading scenario", "path", path)
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	metrics := telemetry.New(prometheus.NewRegistry())
	result, err := harness.Run(scenario,
		harness.WithMetrics(metrics),
		harness.WithLogger(logger),
	)
	if err != nil {
		_ = formatter.Error(ErrCodeRunFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}
	logger.Info("scenario complete", "name", scenario.Name, "pass", result.Pass, "ops", len(result.Trace))

	var runID string
	if opts.Database != "" {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		gen := opts.IDGenerator
		if gen == nil {
			gen = store.UUIDv7Generator{}
		}

		runID, err = recordRun(ctx, opts.Database, gen, scenario, result)
		if err != nil {
			_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		logger.Info("run recorded", "id", runID, "db", opts.Database)
	}

	output := RunOutput{
		Scenario: scenario.Name,
		Pass:     result.Pass,
		Passes:   result.Passes,
		Order:    result.Order,
		Errors:   result.Errors,
		runID:    runID,
		counters: metrics,
	}
	if opts.Metrics {
		output.Metrics = &result.Metrics
	}

	if err := formatter.Respond(output.response()); err != nil {
		return err
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %q failed with %d error(s)", scenario.Name, len(result.Errors)))
	}
	return nil
}

// recordRun persists a finished run and returns its id.
func recordRun(ctx context.Context, path string, gen store.IDGenerator, scenario *harness.Scenario, result *harness.Result) (string, error) {
	st, err := store.Open(path)
	if err != nil {
		return "", err
	}
	defer st.Close() //nolint:errcheck

	run := store.Run{
		ID:       gen.Generate(),
		Scenario: scenario.Name,
		KeyPath:  scenario.Key,
		Passes:   len(scenario.Passes),
		Passed:   result.Pass,
		Errors:   result.Errors,
	}

	ops := make([]store.OpRecord, 0, len(result.Trace))
	for _, ev := range result.Trace {
		ops = append(ops, store.OpRecord{
			Seq:    ev.Seq,
			Pass:   ev.Pass,
			Op:     ev.Op,
			Key:    ev.Key,
			Before: ev.Before,
		})
	}

	if err := st.WriteRun(ctx, run, ops); err != nil {
		return "", err
	}
	return run.ID, nil
}
