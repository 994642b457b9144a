package engine

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetricsRecorder exports run and per-construction counters to a
// prometheus registry. It fulfills MetricsRecorder for deployments that
// scrape rather than poll expvar.
type PrometheusMetricsRecorder struct {
	runs        *prometheus.CounterVec
	nodes       *prometheus.CounterVec
	nodeSeconds prometheus.Histogram
}

// NewPrometheusMetricsRecorder registers the engine collectors with reg and
// returns the recorder. A nil registerer uses the default registry.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusMetricsRecorder{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "siegelcore",
			Name:      "runs_total",
			Help:      "Completed engine runs by status.",
		}, []string{"status"}),
		nodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "siegelcore",
			Name:      "nodes_total",
			Help:      "Processed constructions by outcome.",
		}, []string{"outcome"}),
		nodeSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "siegelcore",
			Name:      "node_seconds",
			Help:      "Per-construction processing time in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.025, 0.1, 0.5, 2.5, 10, 60, 300},
		}),
	}
}

// Observe implements the MetricsRecorder interface. Run observations land in
// runs_total; node observations land in nodes_total and the duration
// histogram.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := "error"
	if success {
		status = "success"
	}
	if operation == opRun {
		r.runs.WithLabelValues(status).Inc()
		return
	}
	if outcome, ok := strings.CutPrefix(operation, "node_"); ok {
		r.nodes.WithLabelValues(outcome).Inc()
		r.nodeSeconds.Observe(duration.Seconds())
	}
}
