package harness

import (
	"fmt"

	"github.com/roach88/revtrack/internal/telemetry"
)

// TraceEvent is one delegate callback.
type TraceEvent struct {
	Pass   int    `json:"pass"`
	Seq    int64  `json:"seq"`
	Op     string `json:"op"`
	Key    string `json:"key,omitempty"`
	Before string `json:"before,omitempty"`
}

// String formats the event as an op line, e.g. "insert c before a".
func (e TraceEvent) String() string {
	switch {
	case e.Key == "":
		return e.Op
	case e.Before == "":
		return fmt.Sprintf("%s %s", e.Op, e.Key)
	default:
		return fmt.Sprintf("%s %s before %s", e.Op, e.Key, e.Before)
	}
}

// PassResult summarizes one pass.
type PassResult struct {
	Pass  int      `json:"pass"`
	Ops   []string `json:"ops"`
	Order []string `json:"order"`
	Error string   `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains every delegate callback of every pass, in order.
	Trace []TraceEvent `json:"trace"`

	// Passes holds one summary per pass, in order.
	Passes []PassResult `json:"passes"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Order is the artifact key order after the last pass.
	Order []string `json:"order"`

	// Metrics are the telemetry counters gathered after the last pass.
	Metrics telemetry.Snapshot `json:"metrics"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Passes: []PassResult{},
		Errors: []string{},
		Order:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// PassTrace returns the events of one pass (1-based). Zero returns the
// whole trace.
func (r *Result) PassTrace(pass int) []TraceEvent {
	if pass == 0 {
		return r.Trace
	}
	var events []TraceEvent
	for _, e := range r.Trace {
		if e.Pass == pass {
			events = append(events, e)
		}
	}
	return events
}
