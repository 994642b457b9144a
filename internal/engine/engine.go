// Package engine executes construction batches: it plans precisions over the
// dependency closure, walks constructions in dependency order, reuses
// sufficient cache entries and computes the rest through an algebra backend,
// persisting every artifact under its identity hash. Workers coordinate
// through the durable cache only.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"siegelcore/internal/cache"
	"siegelcore/internal/ctxlog"
	"siegelcore/pkg/algebra"
	"siegelcore/pkg/construction"
	"siegelcore/pkg/label"
)

const (
	opRun  = "run"
	opNode = "process_construction"
)

// Calculator drives construction batches against an algebra backend,
// memoized through a durable artifact cache. A Calculator is safe for
// concurrent use; per-run state lives in the run itself.
type Calculator struct {
	store   cache.Store
	backend algebra.Backend
	logger  *slog.Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	clock   Clock
	workers int
}

// Option customizes Calculator construction.
type Option func(*Calculator)

// WithLogger fixes the logger. Without it the calculator takes the logger
// from the run context.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Calculator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetricsRecorder wires a metrics recorder.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(c *Calculator) {
		if rec != nil {
			c.metrics = rec
		}
	}
}

// WithTracer wires a tracer.
func WithTracer(tracer Tracer) Option {
	return func(c *Calculator) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithAuditRecorder wires an audit recorder.
func WithAuditRecorder(rec AuditRecorder) Option {
	return func(c *Calculator) {
		if rec != nil {
			c.audit = rec
		}
	}
}

// WithWorkers sets the worker count for parallel runs. Values below one are
// raised to one.
func WithWorkers(n int) Option {
	return func(c *Calculator) {
		if n < 1 {
			n = 1
		}
		c.workers = n
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock Clock) Option {
	return func(c *Calculator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// New constructs a Calculator over the given store and backend.
func New(store cache.Store, backend algebra.Backend, opts ...Option) *Calculator {
	c := &Calculator{
		store:   store,
		backend: backend,
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		audit:   noopAuditRecorder{},
		clock:   ClockFunc(nil),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// RunOptions selects per-run behavior.
type RunOptions struct {
	// Force recomputes every construction even when a sufficient cache entry
	// exists. Results still overwrite the previous entries.
	Force bool
	// Parallel executes independent constructions concurrently on the
	// calculator's worker pool. Dependencies are still strictly ordered: a
	// construction starts only after every dependency artifact was saved.
	Parallel bool
	// Verbose raises per-construction progress logging from Debug to Info.
	Verbose bool
}

func (c *Calculator) loggerFor(ctx context.Context) *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return ctxlog.FromContext(ctx)
}

func progressLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

// Run executes one batch: every construction reachable from roots at the
// precision the plan demands of it. Failures before any construction runs
// (unreachable store, invalid graph, identity collision) return a nil report;
// once execution starts the report always comes back describing every
// construction's outcome, alongside the first root-cause error if the run
// aborted.
func (c *Calculator) Run(ctx context.Context, roots []construction.Node, target int, opts RunOptions) (*Report, error) {
	logger := c.loggerFor(ctx)
	started := c.clock.Now()

	ctx, span := c.tracer.Start(ctx, opRun)
	var runErr error
	defer func() { span.End(runErr) }()

	fail := func(err error) (*Report, error) {
		runErr = err
		c.metrics.Observe(ctx, opRun, false, c.clock.Now().Sub(started))
		c.audit.Record(ctx, AuditEntry{
			Operation: opRun,
			Status:    AuditStatusError,
			Detail:    err.Error(),
			Duration:  c.clock.Now().Sub(started),
			Timestamp: c.clock.Now(),
		})
		return nil, err
	}

	if err := c.store.Ping(ctx); err != nil {
		return fail(MissingPreconditionError{
			Reason: fmt.Sprintf("cache store (%s driver) unavailable", c.store.Driver()),
			Err:    err,
		})
	}
	plan, err := construction.PlanPrecisions(target, roots...)
	if err != nil {
		return fail(err)
	}
	if err := construction.CheckCollisions(plan.Order()); err != nil {
		return fail(err)
	}

	report := newReport(target, string(c.store.Driver()), opts.Parallel, started)
	level := progressLevel(opts.Verbose)
	logger.Log(ctx, level, "run started",
		"run_id", report.RunID,
		"target", target,
		"constructions", len(plan.Order()),
		"driver", report.Driver,
		"parallel", opts.Parallel)

	r := &runner{calc: c, plan: plan, report: report, opts: opts, logger: logger}
	if opts.Parallel {
		runErr = r.parallel(ctx)
	} else {
		runErr = r.sequential(ctx)
	}

	report.finish(c.clock.Now())
	status := AuditStatusSuccess
	var detail string
	if runErr != nil {
		status = AuditStatusError
		detail = runErr.Error()
	}
	c.metrics.Observe(ctx, opRun, runErr == nil, c.clock.Now().Sub(started))
	c.audit.Record(ctx, AuditEntry{
		Operation: opRun,
		RunID:     report.RunID,
		Status:    status,
		Detail:    detail,
		Duration:  c.clock.Now().Sub(started),
		Timestamp: report.FinishedAt,
	})
	logger.Log(ctx, level, "run finished",
		"run_id", report.RunID,
		"reused", report.Reused,
		"computed", report.Computed,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"wall_ms", report.WallMS)
	return report, runErr
}

// runner is the per-run execution state shared by the sequential and
// parallel paths.
type runner struct {
	calc   *Calculator
	plan   *construction.Plan
	report *Report
	opts   RunOptions
	logger *slog.Logger
}

func (r *runner) sequential(ctx context.Context) error {
	order := r.plan.Order()
	for i, n := range order {
		if err := ctx.Err(); err != nil {
			r.skipRemaining(ctx, order[i:], "run canceled")
			return err
		}
		res, err := r.processNode(ctx, n)
		r.report.add(res)
		if err != nil {
			r.skipRemaining(ctx, order[i+1:], "skipped after failure of "+n.Key().String())
			return err
		}
	}
	return nil
}

func (r *runner) skipRemaining(ctx context.Context, rest []construction.Node, reason string) {
	for _, n := range rest {
		demand, _ := r.plan.Demand(n)
		r.report.add(r.skipResult(ctx, n, demand, reason))
	}
}

// processNode takes one construction through the reuse-or-compute cycle and
// returns its report entry. The returned error, when non-nil, is the
// node-annotated root cause.
func (r *runner) processNode(ctx context.Context, n construction.Node) (NodeResult, error) {
	c := r.calc
	demand, ok := r.plan.Demand(n)
	if !ok {
		demand = r.plan.Target()
	}
	hash := n.Key().Hash()
	res := NodeResult{Hash: hash, Label: label.Name(n), Precision: demand}
	start := c.clock.Now()

	finish := func(err error) (NodeResult, error) {
		dur := c.clock.Now().Sub(start)
		res.DurationMS = float64(dur) / float64(time.Millisecond)
		status := AuditStatusSuccess
		if err != nil {
			res.Outcome = OutcomeFailed
			res.Error = err.Error()
			status = AuditStatusError
		}
		c.metrics.Observe(ctx, "node_"+string(res.Outcome), err == nil, dur)
		c.audit.Record(ctx, AuditEntry{
			Operation: opNode,
			RunID:     r.report.RunID,
			NodeHash:  hash,
			Precision: demand,
			Outcome:   string(res.Outcome),
			Status:    status,
			Detail:    res.Error,
			Duration:  dur,
			Timestamp: c.clock.Now(),
		})
		return res, err
	}
	nodeErr := func(err error) (NodeResult, error) {
		return finish(NodeError{Key: n.Key(), Precision: demand, Err: err})
	}

	if !r.opts.Force {
		sufficient, err := c.store.Sufficient(ctx, hash, demand)
		if err != nil {
			return nodeErr(fmt.Errorf("cache check: %w", err))
		}
		if sufficient {
			r.logger.Debug("reusing cached artifact", "key", n.Key().String(), "precision", demand)
			res.Outcome = OutcomeReused
			return finish(nil)
		}
	}

	r.logger.Log(ctx, progressLevel(r.opts.Verbose), "computing construction",
		"key", n.Key().String(),
		"label", res.Label,
		"precision", demand)

	deps := n.Dependencies()
	forms := make([]algebra.Form, len(deps))
	for i, dep := range deps {
		_, payload, err := c.store.Load(ctx, dep.Key().Hash())
		if err != nil {
			return nodeErr(fmt.Errorf("loading dependency %s: %w", dep.Key(), err))
		}
		f, err := c.backend.Decode(payload)
		if err != nil {
			return nodeErr(fmt.Errorf("decoding dependency %s: %w", dep.Key(), err))
		}
		forms[i] = f
	}

	form, err := n.Compute(ctx, c.backend, demand, forms)
	if err != nil {
		return nodeErr(err)
	}
	payload, err := c.backend.Encode(form)
	if err != nil {
		return nodeErr(fmt.Errorf("encoding artifact: %w", err))
	}
	if _, err := c.store.Save(ctx, hash, form.Precision(), payload); err != nil {
		return nodeErr(fmt.Errorf("saving artifact: %w", err))
	}
	res.Outcome = OutcomeComputed
	return finish(nil)
}

// skipResult builds and records the report entry for a construction that
// never ran.
func (r *runner) skipResult(ctx context.Context, n construction.Node, demand int, reason string) NodeResult {
	c := r.calc
	res := NodeResult{
		Hash:      n.Key().Hash(),
		Label:     label.Name(n),
		Precision: demand,
		Outcome:   OutcomeSkipped,
		Error:     reason,
	}
	c.metrics.Observe(ctx, "node_"+string(OutcomeSkipped), false, 0)
	c.audit.Record(ctx, AuditEntry{
		Operation: opNode,
		RunID:     r.report.RunID,
		NodeHash:  res.Hash,
		Precision: demand,
		Outcome:   string(OutcomeSkipped),
		Status:    AuditStatusError,
		Detail:    reason,
		Timestamp: c.clock.Now(),
	})
	return res
}
