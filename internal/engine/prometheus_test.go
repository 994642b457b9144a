package engine

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"siegelcore/internal/cache"
	"siegelcore/pkg/construction"
)

func TestPrometheusMetricsRecorderCountsRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := NewPrometheusMetricsRecorder(reg)

	recorder.Observe(context.Background(), opRun, true, 20*time.Millisecond)
	recorder.Observe(context.Background(), opRun, true, 5*time.Millisecond)
	recorder.Observe(context.Background(), opRun, false, time.Millisecond)

	if got := testutil.ToFloat64(recorder.runs.WithLabelValues("success")); got != 2 {
		t.Fatalf("runs_total{status=success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(recorder.runs.WithLabelValues("error")); got != 1 {
		t.Fatalf("runs_total{status=error} = %v, want 1", got)
	}
}

func TestPrometheusMetricsRecorderCountsNodes(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := NewPrometheusMetricsRecorder(reg)

	recorder.Observe(context.Background(), "node_"+string(OutcomeComputed), true, 40*time.Millisecond)
	recorder.Observe(context.Background(), "node_"+string(OutcomeReused), true, time.Millisecond)
	recorder.Observe(context.Background(), "node_"+string(OutcomeFailed), false, time.Millisecond)
	recorder.Observe(context.Background(), "unrelated_op", true, time.Millisecond)

	if got := testutil.ToFloat64(recorder.nodes.WithLabelValues(string(OutcomeComputed))); got != 1 {
		t.Fatalf("nodes_total{outcome=computed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(recorder.nodes.WithLabelValues(string(OutcomeReused))); got != 1 {
		t.Fatalf("nodes_total{outcome=reused} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(recorder.nodes.WithLabelValues(string(OutcomeFailed))); got != 1 {
		t.Fatalf("nodes_total{outcome=failed} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(recorder.nodeSeconds); got != 1 {
		t.Fatalf("expected one histogram metric, got %d", got)
	}
}

func TestPrometheusMetricsRecorderDrivesFromRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := NewPrometheusMetricsRecorder(reg)
	calc := New(cache.NewMemory(), newFakeBackend(), WithMetricsRecorder(recorder))

	leaf := mustLeaf(t, 2, 0, []int{4}, []int{6})
	if _, err := calc.Run(context.Background(), []construction.Node{leaf}, 2, RunOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := calc.Run(context.Background(), []construction.Node{leaf}, 2, RunOptions{}); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if got := testutil.ToFloat64(recorder.runs.WithLabelValues("success")); got != 2 {
		t.Fatalf("runs_total{status=success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(recorder.nodes.WithLabelValues(string(OutcomeComputed))); got != 1 {
		t.Fatalf("nodes_total{outcome=computed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(recorder.nodes.WithLabelValues(string(OutcomeReused))); got != 1 {
		t.Fatalf("nodes_total{outcome=reused} = %v, want 1", got)
	}
}
