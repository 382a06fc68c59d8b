// Package router provides the alert pipeline orchestration entry point.
// It classifies incoming events, deduplicates and rate-limits them, batches
// non-critical alerts, and hands finished notifications to the delivery sink.
package router

import (
	"context"
	"fmt"
	"log/slog"

	"telemon/internal/batch"
	"telemon/internal/config"
	"telemon/internal/dedup"
	"telemon/internal/events"
	"telemon/internal/fingerprint"
	"telemon/internal/ratelimit"
)

// Outcome is the routing decision for one event.
type Outcome int

const (
	// OutcomeDelivered means the alert was handed to the sink immediately.
	OutcomeDelivered Outcome = iota
	// OutcomeBatched means the alert was accumulated into a batch window.
	OutcomeBatched
	// OutcomeSuppressed means the alert was intentionally dropped.
	OutcomeSuppressed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeBatched:
		return "batched"
	case OutcomeSuppressed:
		return "suppressed"
	}
	return "unknown"
}

// SuppressReason explains an OutcomeSuppressed decision. Suppression is a
// normal routing outcome, not an error.
type SuppressReason string

const (
	ReasonDuplicateWithinWindow SuppressReason = "duplicate_within_window"
	ReasonRateLimited           SuppressReason = "rate_limited"
	ReasonIgnored               SuppressReason = "ignored"
	ReasonDisabled              SuppressReason = "disabled"
)

// Result is the decision returned to the caller for one routed event.
type Result struct {
	Outcome Outcome
	Reason  SuppressReason
}

// Sink consumes a finished notification. Delivery failures are surfaced to
// the Route caller; the router never retries internally.
type Sink interface {
	Deliver(ctx context.Context, text string, level events.AlertLevel) error
}

// Router is the orchestration entry point of the alert pipeline. It is safe
// for concurrent use: every state transition is a single atomic operation
// against the shared state store.
type Router struct {
	cfg     *config.Config
	dedup   *dedup.Deduplicator
	limiter *ratelimit.Limiter
	batcher *batch.Batcher
	sink    Sink
	metrics MetricsRecorder
}

// New creates a Router with no-op metrics.
func New(cfg *config.Config, d *dedup.Deduplicator, l *ratelimit.Limiter, b *batch.Batcher, sink Sink) *Router {
	return NewWithMetrics(cfg, d, l, b, sink, nil)
}

// NewWithMetrics creates a Router with the provided metrics recorder.
// If m is nil, a no-op implementation is used.
func NewWithMetrics(cfg *config.Config, d *dedup.Deduplicator, l *ratelimit.Limiter, b *batch.Batcher, sink Sink, m MetricsRecorder) *Router {
	if m == nil {
		m = &NoOpMetrics{}
	}
	return &Router{
		cfg:     cfg,
		dedup:   d,
		limiter: l,
		batcher: b,
		sink:    sink,
		metrics: m,
	}
}

// Route classifies ev and either delivers it, batches it, or suppresses it.
// On every call it also flushes batch windows that have become due, so
// flush scheduling is amortized across normal traffic.
//
// A returned error is always a delivery failure; the routing decision in
// Result is valid either way and pipeline state is unaffected by sink
// errors.
func (r *Router) Route(ctx context.Context, ev *events.Event) (Result, error) {
	r.metrics.RecordReceived()

	if !r.cfg.LevelEnabled(ev.Level) {
		r.metrics.RecordSuppressed(string(ReasonDisabled))
		return Result{Outcome: OutcomeSuppressed, Reason: ReasonDisabled}, nil
	}

	if r.ignored(ev) {
		r.metrics.RecordSuppressed(string(ReasonIgnored))
		return Result{Outcome: OutcomeSuppressed, Reason: ReasonIgnored}, nil
	}

	defer r.FlushDue(ctx)

	fp := fingerprint.Fingerprint(ev)

	// Critical alerts bypass dedup and rate limiting entirely: they are
	// never suppressed, and no dedup record is written for them.
	if ev.Level == events.LevelCritical {
		if err := r.deliver(ctx, r.formatAlert(ev), ev.Level); err != nil {
			return Result{Outcome: OutcomeDelivered}, fmt.Errorf("failed to deliver critical alert: %w", err)
		}
		slog.Info("Delivered critical alert", "fingerprint", fp, "kind", ev.Kind)
		return Result{Outcome: OutcomeDelivered}, nil
	}

	// Store-bound checks run under a short timeout so a slow store never
	// stalls the host request path; a timeout fails open inside each check.
	storeCtx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()

	if r.dedup.ShouldSuppress(storeCtx, fp) {
		slog.Debug("Suppressed duplicate alert", "fingerprint", fp)
		r.metrics.RecordSuppressed(string(ReasonDuplicateWithinWindow))
		return Result{Outcome: OutcomeSuppressed, Reason: ReasonDuplicateWithinWindow}, nil
	}

	if !r.limiter.Allow(storeCtx, fp) {
		slog.Debug("Suppressed rate limited alert", "fingerprint", fp)
		r.metrics.RecordSuppressed(string(ReasonRateLimited))
		return Result{Outcome: OutcomeSuppressed, Reason: ReasonRateLimited}, nil
	}

	w, count, err := r.batcher.Add(storeCtx, ev.Level, ev.Summary())
	if err != nil {
		// Fail open: deliver immediately rather than lose the alert while
		// the store is degraded.
		slog.Warn("Batch append failed, delivering immediately",
			"fingerprint", fp,
			"error", err,
		)
		if derr := r.deliver(ctx, r.formatAlert(ev), ev.Level); derr != nil {
			return Result{Outcome: OutcomeDelivered}, fmt.Errorf("failed to deliver alert: %w", derr)
		}
		return Result{Outcome: OutcomeDelivered}, nil
	}

	if r.batcher.Full(count) {
		r.flushWindow(ctx, w)
	}

	r.metrics.RecordBatched()
	return Result{Outcome: OutcomeBatched}, nil
}

// FlushDue flushes every batch window whose period has ended. It is called
// on every Route invocation and from the periodic timer tick; re-checks are
// idempotent because draining an already empty window is a no-op.
func (r *Router) FlushDue(ctx context.Context) {
	for _, w := range r.batcher.DueWindows(ctx) {
		r.flushWindow(ctx, w)
	}
}

func (r *Router) flushWindow(ctx context.Context, w batch.Window) {
	items, err := r.batcher.Flush(ctx, w)
	if err != nil {
		slog.Warn("Failed to flush batch window",
			"level", w.Level,
			"window", w.ID(),
			"error", err,
		)
		return
	}
	if len(items) == 0 {
		return
	}

	text := r.batcher.Compose(w, items)
	if err := r.deliver(ctx, r.formatBatch(text), w.Level); err != nil {
		slog.Error("Failed to deliver batched alerts",
			"level", w.Level,
			"window", w.ID(),
			"count", len(items),
			"error", err,
		)
		return
	}
	slog.Info("Delivered batched alerts",
		"level", w.Level,
		"window", w.ID(),
		"count", len(items),
	)
}

func (r *Router) deliver(ctx context.Context, text string, level events.AlertLevel) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.DeliveryTimeout)
	defer cancel()
	if err := r.sink.Deliver(ctx, text, level); err != nil {
		r.metrics.RecordDeliveryError()
		return err
	}
	r.metrics.RecordDelivered()
	return nil
}

func (r *Router) ignored(ev *events.Event) bool {
	switch ev.Kind {
	case events.KindException:
		return !r.cfg.ShouldMonitorException(ev.ExceptionType)
	case events.KindSlowRequest:
		return !r.cfg.ShouldMonitorPath(ev.Route)
	case events.KindTaskFailure, events.KindTaskSlow:
		return !r.cfg.ShouldMonitorTask(ev.TaskName)
	}
	return false
}

func (r *Router) formatAlert(ev *events.Event) string {
	return fmt.Sprintf("[%s] %s: %s", r.cfg.Environment, ev.Level, ev.Summary())
}

func (r *Router) formatBatch(text string) string {
	return fmt.Sprintf("[%s] %s", r.cfg.Environment, text)
}
