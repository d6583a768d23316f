package harness

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/revtrack/internal/iterable"
	"github.com/roach88/revtrack/internal/reconcile"
	"github.com/roach88/revtrack/internal/reference"
	"github.com/roach88/revtrack/internal/tag"
	"github.com/roach88/revtrack/internal/telemetry"
)

// Option configures a harness run.
type Option func(*Harness)

// WithMetrics reports the run to m instead of a private registry.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(h *Harness) {
		h.metrics = m
	}
}

// WithLogger sets the synchronizer logger. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Harness is the scenario execution pipeline: a mutable source list, a
// cached read of it, an Iterable keyed by the scenario's key strategy, and
// one Synchronizer driving a recording delegate.
type Harness struct {
	ctx     *tag.Context
	source  *reference.Mutable[any]
	list    *reference.Cached[any]
	art     *reconcile.Artifacts
	sync    *reconcile.Synchronizer[*Result]
	rec     *recorder
	result  *Result
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// New builds the pipeline for scenario without running any pass.
func New(scenario *Scenario, opts ...Option) (*Harness, error) {
	h := &Harness{
		ctx:    tag.NewContext(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		rec:    newRecorder(),
		result: NewResult(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = telemetry.New(prometheus.NewRegistry())
	}

	h.source = reference.NewMutable[any](h.ctx, []any{})
	h.list = reference.NewCached(h.ctx, func() any {
		return h.source.Value()
	}, reference.WithObserver(h.metrics))

	it, err := iterable.New(h.ctx, h.list, scenario.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to create iterable: %w", err)
	}
	h.art = reconcile.NewArtifacts(it)

	h.sync = reconcile.New(reconcile.Config[*Result]{
		Delegate:  h.rec,
		Artifacts: h.art,
		Env:       h.result,
	}, reconcile.WithObserver(h.metrics), reconcile.WithLogger(h.logger))

	return h, nil
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh tag context with fresh artifacts, so runs
// are isolated and their traces are reproducible.
//
// Execution flow:
// 1. Build the pipeline for the scenario's key strategy
// 2. For each pass, replace the source list and run one Sync
// 3. Check each pass against its expect clause
// 4. Evaluate assertions over the whole trace
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h, err := New(scenario, opts...)
	if err != nil {
		return nil, err
	}

	result := h.result
	for i, pass := range scenario.Passes {
		if err := h.runPass(i+1, pass); err != nil {
			return nil, err
		}
	}
	result.Order = h.order()

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	snapshot, err := h.metrics.Snapshot()
	if err != nil {
		return nil, err
	}
	result.Metrics = snapshot

	return result, nil
}

// runPass synchronizes to one list state. Sync failures are recorded on the
// result; only pipeline errors are returned.
func (h *Harness) runPass(n int, pass Pass) error {
	result := h.result
	if err := h.source.ForceUpdate(pass.Items); err != nil {
		return fmt.Errorf("pass %d: update source: %w", n, err)
	}

	h.rec.start(n, pass.FailOn)
	syncErr := h.sync.Sync()

	pr := PassResult{Pass: n, Ops: []string{}, Order: h.order()}
	for _, e := range result.PassTrace(n) {
		if e.Op != string(reconcile.OpDone) {
			pr.Ops = append(pr.Ops, e.String())
		}
	}
	if syncErr != nil {
		pr.Error = syncErr.Error()
	}
	result.Passes = append(result.Passes, pr)

	if pass.Expect != nil {
		for _, msg := range checkExpect(result, pr, pass.Expect) {
			result.AddError(msg)
		}
	}
	if syncErr != nil && (pass.Expect == nil || pass.Expect.Error == "") {
		result.AddError(fmt.Sprintf("pass %d: %v", n, syncErr))
	}
	return nil
}

func (h *Harness) order() []string {
	keys := h.art.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = h.rec.labels.label(k)
	}
	return out
}

// checkExpect compares one pass with its expect clause.
func checkExpect(result *Result, pr PassResult, exp *Expect) []string {
	var errs []string
	trace := result.PassTrace(pr.Pass)

	if exp.Ops != nil && !slices.Equal(exp.Ops, pr.Ops) {
		errs = append(errs, (&AssertionError{
			Type:     fmt.Sprintf("pass %d: expect.ops", pr.Pass),
			Expected: fmt.Sprintf("%q", exp.Ops),
			Actual:   fmt.Sprintf("%q", pr.Ops),
			Trace:    trace,
		}).Error())
	}

	for _, op := range sortedKeys(exp.Counts) {
		if got := countOps(trace, op); got != exp.Counts[op] {
			errs = append(errs, (&AssertionError{
				Type:     fmt.Sprintf("pass %d: expect.counts", pr.Pass),
				Expected: fmt.Sprintf("%d %s", exp.Counts[op], op),
				Actual:   fmt.Sprintf("%d %s", got, op),
				Trace:    trace,
			}).Error())
		}
	}

	if exp.Order != nil && !slices.Equal(exp.Order, pr.Order) {
		errs = append(errs, (&AssertionError{
			Type:     fmt.Sprintf("pass %d: expect.order", pr.Pass),
			Expected: fmt.Sprintf("%q", exp.Order),
			Actual:   fmt.Sprintf("%q", pr.Order),
			Trace:    trace,
		}).Error())
	}

	switch {
	case exp.Error == "":
	case pr.Error == "":
		errs = append(errs, fmt.Sprintf("pass %d: expected error containing %q, pass succeeded", pr.Pass, exp.Error))
	case !strings.Contains(pr.Error, exp.Error):
		errs = append(errs, fmt.Sprintf("pass %d: expected error containing %q, got %q", pr.Pass, exp.Error, pr.Error))
	}

	return errs
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
