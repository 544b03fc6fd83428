//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"vowly/internal/activity"
	"vowly/internal/activity/store/postgres"
	"vowly/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "activity_log"))
}

func (s *PostgresStoreSuite) record(event activity.Event, subjectID string, at time.Time) activity.Record {
	return activity.Record{
		ID:          uuid.Must(uuid.NewV7()).String(),
		LogChannel:  "wedding",
		Event:       event,
		SubjectType: "wedding",
		SubjectID:   subjectID,
		CauserType:  "user",
		CauserID:    "42",
		Properties:  map[string]any{"model": "wedding", "model_id": subjectID},
		Description: activity.Describe("wedding", event, nil),
		IPAddress:   "203.0.113.9",
		CreatedAt:   at,
	}
}

func (s *PostgresStoreSuite) TestAppendAndSearchRoundTrip() {
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	r := s.record(activity.EventUpdated, "7", at)
	r.Properties = activity.UpdatedProperties{
		Model:         "wedding",
		ModelID:       "7",
		Changes:       map[string]any{"is_published": true},
		Original:      map[string]any{"is_published": false},
		ChangedFields: []string{"is_published"},
		ChangeSummary: []string{"is_published: false → true"},
	}.Map()
	s.Require().NoError(s.store.Append(ctx, r))

	got, err := s.store.Search(ctx, activity.Filter{SubjectType: "wedding", SubjectID: "7"})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(r.ID, got[0].ID)
	s.Equal(activity.EventUpdated, got[0].Event)
	s.Equal("203.0.113.9", got[0].IPAddress)
	s.Empty(got[0].UserAgent)
	s.True(at.Equal(got[0].CreatedAt))
	s.Equal([]any{"is_published: false → true"}, got[0].Properties["change_summary"])
}

func (s *PostgresStoreSuite) TestAppendIsIdempotent() {
	ctx := context.Background()
	r := s.record(activity.EventCreated, "7", time.Now())

	s.Require().NoError(s.store.Append(ctx, r))
	s.Require().NoError(s.store.Append(ctx, r))

	got, err := s.store.Search(ctx, activity.Filter{})
	s.Require().NoError(err)
	s.Len(got, 1)
}

func (s *PostgresStoreSuite) TestSearchFiltersOrderingAndPaging() {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	created := s.record(activity.EventCreated, "7", base)
	updated := s.record(activity.EventUpdated, "7", base.Add(time.Minute))
	updated.Properties = map[string]any{"changed_fields": []string{"title"}}
	deleted := s.record(activity.EventDeleted, "7", base.Add(2*time.Minute))
	other := s.record(activity.EventCreated, "8", base.Add(3*time.Minute))
	other.CauserID = "43"
	for _, r := range []activity.Record{created, updated, deleted, other} {
		s.Require().NoError(s.store.Append(ctx, r))
	}

	got, err := s.store.Search(ctx, activity.Filter{SubjectType: "wedding", SubjectID: "7", Order: activity.OrderOldest})
	s.Require().NoError(err)
	s.Equal([]activity.Event{activity.EventCreated, activity.EventUpdated, activity.EventDeleted}, events(got))

	got, err = s.store.Search(ctx, activity.Filter{Events: []activity.Event{activity.EventCreated, activity.EventDeleted}})
	s.Require().NoError(err)
	s.Equal([]string{other.ID, deleted.ID, created.ID}, recordIDs(got))

	got, err = s.store.Search(ctx, activity.Filter{CauserType: "user", CauserID: "43"})
	s.Require().NoError(err)
	s.Equal([]string{other.ID}, recordIDs(got))

	got, err = s.store.Search(ctx, activity.Filter{Since: base.Add(time.Minute), Until: base.Add(2 * time.Minute)})
	s.Require().NoError(err)
	s.Equal([]string{deleted.ID, updated.ID}, recordIDs(got))

	got, err = s.store.Search(ctx, activity.Filter{Limit: 2, Offset: 1})
	s.Require().NoError(err)
	s.Equal([]string{deleted.ID, updated.ID}, recordIDs(got))
}

func (s *PostgresStoreSuite) TestSearchByChannelAndEvent() {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	first := s.record(activity.EventCreated, "7", base)
	updated := s.record(activity.EventUpdated, "7", base.Add(time.Minute))
	second := s.record(activity.EventCreated, "8", base.Add(2*time.Minute))
	order := s.record(activity.EventCreated, "9", base.Add(3*time.Minute))
	order.LogChannel = "order"
	order.SubjectType = "order"
	for _, r := range []activity.Record{first, updated, second, order} {
		s.Require().NoError(s.store.Append(ctx, r))
	}

	got, err := s.store.Search(ctx, activity.Filter{
		LogChannel: "wedding",
		Events:     []activity.Event{activity.EventCreated},
	})
	s.Require().NoError(err)
	s.Equal([]string{second.ID, first.ID}, recordIDs(got))

	got, err = s.store.Search(ctx, activity.Filter{LogChannel: "order"})
	s.Require().NoError(err)
	s.Equal([]string{order.ID}, recordIDs(got))
}

func events(records []activity.Record) []activity.Event {
	out := make([]activity.Event, len(records))
	for i, r := range records {
		out[i] = r.Event
	}
	return out
}

func recordIDs(records []activity.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
