// Package telemetry counts synchronizer and cache activity with Prometheus
// collectors.
//
// Metrics satisfies both reconcile.Observer and reference.Observer, so one
// instance can be handed to every synchronizer and cached reference of a
// run. Collectors are registered on the registry given to New, never on
// the global default registry.
package telemetry

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/revtrack/internal/reconcile"
)

const namespace = "revtrack"

// Metric names as exposed by the registry.
const (
	OpsTotalName        = namespace + "_sync_ops_total"
	PassesTotalName     = namespace + "_sync_passes_total"
	PassOpsName         = namespace + "_sync_pass_ops"
	RecomputesTotalName = namespace + "_reference_recomputes_total"
)

// Metrics holds the collectors of one run.
type Metrics struct {
	gatherer prometheus.Gatherer

	OpsTotal        *prometheus.CounterVec
	PassesTotal     prometheus.Counter
	PassOps         prometheus.Histogram
	RecomputesTotal prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		gatherer: reg,

		OpsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "ops_total",
			Help:      "Delegate callbacks issued by synchronizers, by op",
		}, []string{"op"}),

		PassesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "passes_total",
			Help:      "Completed synchronization passes",
		}),

		PassOps: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "pass_ops",
			Help:      "Structural ops per synchronization pass",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
		}),

		RecomputesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reference",
			Name:      "recomputes_total",
			Help:      "Cached reference recomputations",
		}),
	}

	// Pre-create every op label so zero counts are exported too.
	for _, op := range reconcile.Ops {
		m.OpsTotal.WithLabelValues(string(op))
	}
	return m
}

// ObserveOp counts one delegate callback.
func (m *Metrics) ObserveOp(op reconcile.Op) {
	m.OpsTotal.WithLabelValues(string(op)).Inc()
}

// ObservePass counts a finished pass and its structural op count.
func (m *Metrics) ObservePass(ops int) {
	m.PassesTotal.Inc()
	m.PassOps.Observe(float64(ops))
}

// ObserveRecompute counts a cached reference recomputation.
func (m *Metrics) ObserveRecompute() {
	m.RecomputesTotal.Inc()
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Ops        map[string]float64 `json:"ops"`
	Passes     float64            `json:"passes"`
	Recomputes float64            `json:"recomputes"`
}

// Snapshot gathers the current counter values from the registry.
func (m *Metrics) Snapshot() (Snapshot, error) {
	families, err := m.gatherer.Gather()
	if err != nil {
		return Snapshot{}, fmt.Errorf("gather metrics: %w", err)
	}

	s := Snapshot{Ops: make(map[string]float64)}
	for _, mf := range families {
		switch mf.GetName() {
		case OpsTotalName:
			for _, metric := range mf.GetMetric() {
				for _, label := range metric.GetLabel() {
					if label.GetName() == "op" {
						s.Ops[label.GetValue()] = metric.GetCounter().GetValue()
					}
				}
			}
		case PassesTotalName:
			s.Passes = sumCounters(mf.GetMetric())
		case RecomputesTotalName:
			s.Recomputes = sumCounters(mf.GetMetric())
		}
	}
	return s, nil
}

func sumCounters(metrics []*dto.Metric) float64 {
	var total float64
	for _, m := range metrics {
		total += m.GetCounter().GetValue()
	}
	return total
}

// WriteText writes every gathered metric family in the Prometheus text
// exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
