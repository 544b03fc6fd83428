// Package query is the read side of the activity log.
package query

import (
	"context"
	"log/slog"

	"vowly/internal/activity"
	dErrors "vowly/pkg/domain-errors"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Page bounds a listing. Unbounded is only honoured for a single subject,
// whose history is small enough to return whole.
type Page struct {
	Limit     int
	Offset    int
	Order     activity.Order
	Unbounded bool
}

// Result is one page of records. HasMore is set when a further page exists.
type Result struct {
	Records []activity.Record `json:"records"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
	HasMore bool              `json:"has_more"`
}

type Service struct {
	store  activity.Store
	events activity.EventSet
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(store activity.Store, events activity.EventSet, opts ...Option) *Service {
	if events == nil {
		events = activity.NewEventSet()
	}
	s := &Service{store: store, events: events, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs an arbitrary filter. The limit is clamped to MaxLimit.
func (s *Service) Search(ctx context.Context, filter activity.Filter) (*Result, error) {
	filter.LogChannel = activity.Channel(filter.LogChannel)
	filter.SubjectType = activity.Channel(filter.SubjectType)
	if err := s.validate(filter); err != nil {
		return nil, err
	}
	filter.Limit, filter.Offset = clamp(filter.Limit, filter.Offset)
	return s.run(ctx, filter)
}

// ForSubject lists the history of one entity.
func (s *Service) ForSubject(ctx context.Context, subject activity.SubjectRef, page Page) (*Result, error) {
	if subject.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "subject type and id are required")
	}
	filter := activity.Filter{
		SubjectType: activity.Channel(subject.Type),
		SubjectID:   subject.ID,
		Order:       page.Order,
	}
	if err := s.validate(filter); err != nil {
		return nil, err
	}
	if page.Unbounded {
		filter.Offset = max(page.Offset, 0)
		return s.run(ctx, filter)
	}
	filter.Limit, filter.Offset = clamp(page.Limit, page.Offset)
	return s.run(ctx, filter)
}

// ForCauser lists what one actor did.
func (s *Service) ForCauser(ctx context.Context, causer activity.Actor, page Page) (*Result, error) {
	if causer.Type == "" || causer.ID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "causer type and id are required")
	}
	filter := activity.Filter{
		CauserType: causer.Type,
		CauserID:   causer.ID,
		Order:      page.Order,
	}
	if err := s.validate(filter); err != nil {
		return nil, err
	}
	filter.Limit, filter.Offset = clamp(page.Limit, page.Offset)
	return s.run(ctx, filter)
}

func (s *Service) validate(f activity.Filter) error {
	if !f.Since.IsZero() && !f.Until.IsZero() && f.Since.After(f.Until) {
		return dErrors.New(dErrors.CodeBadRequest, "since must not be after until")
	}
	for _, e := range f.Events {
		if !s.events.Has(e) {
			return dErrors.New(dErrors.CodeBadRequest, "unknown event: "+string(e))
		}
	}
	switch f.Order {
	case "", activity.OrderNewest, activity.OrderOldest:
	default:
		return dErrors.New(dErrors.CodeBadRequest, "order must be newest or oldest")
	}
	return nil
}

// run fetches one extra row to learn whether another page exists.
func (s *Service) run(ctx context.Context, filter activity.Filter) (*Result, error) {
	limit := filter.Limit
	if limit > 0 {
		filter.Limit = limit + 1
	}
	records, err := s.store.Search(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "activity search failed", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search activity")
	}

	res := &Result{Limit: limit, Offset: filter.Offset}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
		res.HasMore = true
	}
	if records == nil {
		records = []activity.Record{}
	}
	res.Records = records
	return res, nil
}

func clamp(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
