// Package pipeline turns captured changes into activity records and hands
// them to a background lane behind a circuit breaker. Nothing in here ever
// fails the business operation that triggered the log.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vowly/internal/activity"
	"vowly/internal/activity/metrics"
	"vowly/pkg/requestcontext"
)

//go:generate mockgen -source=pipeline.go -destination=mocks/pipeline-mocks.go -package=mocks Gate

// Gate is the circuit breaker contract the pipeline depends on.
// *circuit.Breaker satisfies it.
type Gate interface {
	Allow(ctx context.Context) bool
	RecordSuccess(ctx context.Context)
	RecordFailure(ctx context.Context)
}

type openGate struct{}

func (openGate) Allow(context.Context) bool    { return true }
func (openGate) RecordSuccess(context.Context) {}
func (openGate) RecordFailure(context.Context) {}

// Entry is what a caller asks to log. A nil Causer means the actor on the
// request context, or the system when there is none.
type Entry struct {
	Event       activity.Event
	SubjectType string
	SubjectID   string
	Causer      *activity.Actor
	Properties  activity.Properties
	Description string
}

type Pipeline struct {
	lane    Lane
	gate    Gate
	events  activity.EventSet
	enabled bool
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithEnabled switches logging globally. Disabled pipelines do nothing.
func WithEnabled(enabled bool) Option {
	return func(p *Pipeline) {
		p.enabled = enabled
	}
}

// New builds a pipeline writing to lane. A nil gate admits everything.
func New(lane Lane, gate Gate, events activity.EventSet, opts ...Option) *Pipeline {
	if gate == nil {
		gate = openGate{}
	}
	if events == nil {
		events = activity.NewEventSet()
	}
	p := &Pipeline{
		lane:    lane,
		gate:    gate,
		events:  events,
		enabled: true,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Enabled() bool {
	return p.enabled
}

func (p *Pipeline) Events() activity.EventSet {
	return p.events
}

// Log records entry in the background. It returns after one non-blocking
// hand-off attempt and never panics into the caller.
func (p *Pipeline) Log(ctx context.Context, entry Entry) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorContext(ctx, "activity log panicked",
				"event", entry.Event,
				"subject_type", entry.SubjectType,
				"panic", r,
			)
		}
	}()

	if !p.enabled {
		return
	}

	rec, err := p.record(ctx, entry)
	if err == nil {
		err = rec.Validate(p.events)
	}
	if err != nil {
		p.metrics.IncDropped(metrics.ReasonInvalid)
		p.logger.WarnContext(ctx, "activity record rejected",
			"event", entry.Event,
			"subject_type", entry.SubjectType,
			"subject_id", entry.SubjectID,
			"error", err,
		)
		return
	}

	if !p.gate.Allow(ctx) {
		p.metrics.IncDropped(metrics.ReasonCircuitOpen)
		return
	}

	if err := p.lane.Enqueue(ctx, rec); err != nil {
		p.gate.RecordFailure(ctx)
		p.metrics.IncDropped(dropReason(err))
		p.logger.WarnContext(ctx, "activity enqueue failed",
			"activity_id", rec.ID,
			"event", rec.Event,
			"subject_type", rec.SubjectType,
			"subject_id", rec.SubjectID,
			"error", err,
		)
		return
	}
	p.gate.RecordSuccess(ctx)
	p.metrics.IncEnqueued(string(rec.Event))
	if l, ok := p.lane.(interface{ Len() int }); ok {
		p.metrics.SetLaneDepth(l.Len())
	}
}

func (p *Pipeline) record(ctx context.Context, entry Entry) (activity.Record, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return activity.Record{}, err
	}

	rec := activity.Record{
		ID:          id.String(),
		LogChannel:  activity.Channel(entry.SubjectType),
		Event:       entry.Event,
		SubjectType: activity.Channel(entry.SubjectType),
		SubjectID:   entry.SubjectID,
		Description: entry.Description,
		IPAddress:   requestcontext.ClientIP(ctx),
		UserAgent:   requestcontext.UserAgent(ctx),
		URL:         requestcontext.URL(ctx),
		HTTPMethod:  requestcontext.Method(ctx),
		RequestID:   requestcontext.RequestID(ctx),
		CreatedAt:   p.now().UTC(),
	}
	if entry.Properties != nil {
		rec.Properties = entry.Properties.Map()
	} else {
		rec.Properties = map[string]any{}
	}

	causer := resolveCauser(ctx, entry.Causer)
	rec.CauserType, rec.CauserID = causer.Type, causer.ID

	if rec.Description == "" {
		rec.Description = activity.Describe(rec.SubjectType, rec.Event, changedFields(rec.Properties))
	}
	return rec, nil
}

func resolveCauser(ctx context.Context, explicit *activity.Actor) activity.Actor {
	if explicit != nil {
		return *explicit
	}
	if p, ok := requestcontext.Actor(ctx); ok {
		return activity.Actor{Type: p.Type, ID: p.ID}
	}
	return activity.Actor{}
}

func changedFields(props map[string]any) []string {
	switch v := props[activity.KeyChangedFields].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, f := range v {
			if s, ok := f.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrLaneFull):
		return metrics.ReasonLaneFull
	case errors.Is(err, ErrLaneClosed):
		return metrics.ReasonLaneClosed
	default:
		return metrics.ReasonEnqueue
	}
}
