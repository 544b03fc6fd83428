package wedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"vowly/internal/activity"
	"vowly/internal/activity/capture"
	"vowly/internal/activity/pipeline"
	dErrors "vowly/pkg/domain-errors"
	"vowly/pkg/requestcontext"
)

// Milestones emits named activity events. *pipeline.Observer satisfies it.
type Milestones interface {
	Custom(ctx context.Context, entity capture.Loggable, event activity.Event, extra map[string]any)
}

var _ Milestones = (*pipeline.Observer)(nil)

// Service runs the flows that end in a named milestone. Field changes are
// captured by the gorm hooks; the milestone is logged on top.
type Service struct {
	db         *gorm.DB
	milestones Milestones
}

func NewService(db *gorm.DB, milestones Milestones) *Service {
	return &Service{db: db, milestones: milestones}
}

// Publish makes the microsite public and logs the published event.
func (s *Service) Publish(ctx context.Context, weddingID uint) (*Wedding, error) {
	var w Wedding
	if err := s.db.WithContext(ctx).First(&w, weddingID).Error; err != nil {
		return nil, notFound(err, "wedding")
	}
	if w.IsPublished {
		return nil, dErrors.New(dErrors.CodeConflict, "wedding is already published")
	}

	now := requestcontext.Now(ctx)
	w.IsPublished = true
	w.PublishedAt = &now
	if err := s.db.WithContext(ctx).Save(&w).Error; err != nil {
		return nil, fmt.Errorf("publish wedding %d: %w", w.ID, err)
	}

	s.milestones.Custom(ctx, &w, activity.EventPublished, map[string]any{"slug": w.Slug})
	return &w, nil
}

// RecordRSVP stores a guest's answer and logs rsvp_received.
func (s *Service) RecordRSVP(ctx context.Context, guestID uint, answer, message string) (*Guest, error) {
	answer = strings.ToLower(strings.TrimSpace(answer))
	switch answer {
	case "yes", "no", "maybe":
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "rsvp must be yes, no or maybe")
	}

	var g Guest
	if err := s.db.WithContext(ctx).First(&g, guestID).Error; err != nil {
		return nil, notFound(err, "guest")
	}
	g.RSVP = answer
	g.Message = message
	if err := s.db.WithContext(ctx).Save(&g).Error; err != nil {
		return nil, fmt.Errorf("record rsvp for guest %d: %w", g.ID, err)
	}

	s.milestones.Custom(ctx, &g, EventRSVPReceived, map[string]any{
		"wedding_id": g.WeddingID,
		"rsvp":       answer,
	})
	return &g, nil
}

func notFound(err error, kind string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dErrors.New(dErrors.CodeNotFound, kind+" not found")
	}
	return fmt.Errorf("load %s: %w", kind, err)
}
