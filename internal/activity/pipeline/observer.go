package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"vowly/internal/activity"
	"vowly/internal/activity/capture"
	"vowly/internal/activity/metrics"
)

// Observer connects entity lifecycle callbacks to the pipeline. Any ORM hook
// can call it; capture problems are logged and the entry is dropped.
type Observer struct {
	capturer *capture.Capturer
	pipeline *Pipeline
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewObserver(capturer *capture.Capturer, pipeline *Pipeline, logger *slog.Logger, m *metrics.Metrics) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{capturer: capturer, pipeline: pipeline, logger: logger, metrics: m}
}

func (o *Observer) Registry() *capture.Registry {
	return o.capturer.Registry()
}

func (o *Observer) AfterCreate(ctx context.Context, entity capture.Loggable) {
	if !o.pipeline.Enabled() {
		return
	}
	props, err := o.capturer.Created(entity)
	o.log(ctx, entity, activity.EventCreated, props, err)
}

// AfterUpdate diffs entity against original, the attributes loaded before
// the write.
func (o *Observer) AfterUpdate(ctx context.Context, entity capture.Loggable, original map[string]any) {
	if !o.pipeline.Enabled() {
		return
	}
	props, err := o.capturer.Updated(entity, original)
	o.log(ctx, entity, activity.EventUpdated, props, err)
}

func (o *Observer) AfterSoftDelete(ctx context.Context, entity capture.Loggable) {
	if !o.pipeline.Enabled() {
		return
	}
	props, err := o.capturer.Deleted(entity)
	o.log(ctx, entity, activity.EventDeleted, props, err)
}

// Custom logs a named milestone such as published.
func (o *Observer) Custom(ctx context.Context, entity capture.Loggable, event activity.Event, extra map[string]any) {
	if !o.pipeline.Enabled() {
		return
	}
	props, err := o.capturer.Custom(entity, event, extra)
	o.log(ctx, entity, event, props, err)
}

func (o *Observer) log(ctx context.Context, entity capture.Loggable, event activity.Event, props activity.Properties, err error) {
	switch {
	case errors.Is(err, capture.ErrSkip):
		return
	case err != nil:
		o.metrics.IncDropped(metrics.ReasonCapture)
		o.logger.WarnContext(ctx, "activity capture failed",
			"event", event,
			"error", err,
		)
		return
	}

	var changed []string
	if u, ok := props.(activity.UpdatedProperties); ok {
		changed = u.ChangedFields
	}
	kind := activity.Channel(entity.ActivityKind())
	o.pipeline.Log(ctx, Entry{
		Event:       event,
		SubjectType: kind,
		SubjectID:   entity.ActivityID(),
		Properties:  props,
		Description: activity.Describe(kind, event, changed),
	})
}
