package engine

import (
	"context"
	"time"
)

// Clock supplies timestamps for run reports and audit entries. Production
// code uses the real clock; tests freeze it through WithClock.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface. A nil ClockFunc falls
// back to the real clock in UTC.
type ClockFunc func() time.Time

// Now returns the current time from the wrapped function.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f()
}

// MetricsRecorder aggregates operation outcomes. The engine reports one
// observation per run under the "run" operation and one per construction
// under "node_<outcome>".
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer opens spans around engine operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan terminates a span opened by a Tracer.
type TraceSpan interface {
	End(err error)
}

// AuditStatus classifies an audit entry.
type AuditStatus string

const (
	// AuditStatusSuccess marks an operation that completed.
	AuditStatusSuccess AuditStatus = "success"
	// AuditStatusError marks an operation that failed.
	AuditStatusError AuditStatus = "error"
)

// AuditEntry is one audit trail record. Run-level entries carry the run id;
// node-level entries additionally name the construction hash, the demanded
// precision and the outcome.
type AuditEntry struct {
	Operation string        `json:"operation"`
	RunID     string        `json:"run_id,omitempty"`
	NodeHash  string        `json:"node_hash,omitempty"`
	Precision int           `json:"precision,omitempty"`
	Outcome   string        `json:"outcome,omitempty"`
	Status    AuditStatus   `json:"status"`
	Detail    string        `json:"detail,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}
