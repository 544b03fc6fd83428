package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vowly/internal/activity"
	"vowly/internal/activity/metrics"
)

const (
	defaultMaxAttempts    = 3
	defaultAttemptTimeout = 2 * time.Second
	defaultRetryBackoff   = 100 * time.Millisecond
)

// Worker persists records taken off a lane, retrying a bounded number of
// times. A record that exhausts its attempts is dropped.
type Worker struct {
	store          activity.Store
	gate           Gate
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	maxAttempts    int
	attemptTimeout time.Duration
	retryBackoff   time.Duration
}

type WorkerOption func(*Worker)

func WithMaxAttempts(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

func WithAttemptTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.attemptTimeout = d
		}
	}
}

// WithRetryBackoff sets the base delay; attempt n waits n times the base.
func WithRetryBackoff(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d >= 0 {
			w.retryBackoff = d
		}
	}
}

// WithWorkerGate feeds persistence outcomes back into the circuit breaker.
func WithWorkerGate(gate Gate) WorkerOption {
	return func(w *Worker) {
		if gate != nil {
			w.gate = gate
		}
	}
}

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithWorkerMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

func NewWorker(store activity.Store, opts ...WorkerOption) *Worker {
	w := &Worker{
		store:          store,
		gate:           openGate{},
		logger:         slog.Default(),
		tracer:         otel.Tracer("vowly/activity"),
		maxAttempts:    defaultMaxAttempts,
		attemptTimeout: defaultAttemptTimeout,
		retryBackoff:   defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run persists records until the channel is closed and drained, or ctx is
// cancelled. Callers that want a full drain on shutdown close the lane and
// keep ctx alive.
func (w *Worker) Run(ctx context.Context, records <-chan activity.Record) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			// Exhaustion is already logged and counted.
			_ = w.Handle(ctx, rec)
			w.metrics.SetLaneDepth(len(records))
		}
	}
}

// Handle persists one record. Every failed attempt, including a timeout,
// counts against the breaker.
func (w *Worker) Handle(ctx context.Context, rec activity.Record) error {
	ctx, span := w.tracer.Start(ctx, "activity.persist", trace.WithAttributes(
		attribute.String("activity.id", rec.ID),
		attribute.String("activity.event", string(rec.Event)),
		attribute.String("activity.subject_type", rec.SubjectType),
	))
	defer span.End()

	var err error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if err = w.persist(ctx, rec); err == nil {
			w.gate.RecordSuccess(ctx)
			w.metrics.IncPersisted()
			return nil
		}
		// shutdown says nothing about the store's health
		if ctx.Err() != nil {
			break
		}
		w.gate.RecordFailure(ctx)
		if attempt == w.maxAttempts {
			break
		}
		w.metrics.IncPersistRetries()
		w.logger.DebugContext(ctx, "activity persist attempt failed",
			"activity_id", rec.ID,
			"attempt", attempt,
			"error", err,
		)
		if !wait(ctx, time.Duration(attempt)*w.retryBackoff) {
			err = ctx.Err()
			break
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "activity persist failed")
	w.metrics.IncPersistFailures()
	w.logger.ErrorContext(ctx, "activity record dropped after persist failures",
		"activity_id", rec.ID,
		"event", rec.Event,
		"subject_type", rec.SubjectType,
		"subject_id", rec.SubjectID,
		"attempts", w.maxAttempts,
		"error", err,
	)
	return fmt.Errorf("persist activity %s: %w", rec.ID, err)
}

func (w *Worker) persist(ctx context.Context, rec activity.Record) error {
	start := time.Now()
	defer w.metrics.ObservePersist(start)

	attemptCtx, cancel := context.WithTimeout(ctx, w.attemptTimeout)
	defer cancel()
	return w.store.Append(attemptCtx, rec)
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
