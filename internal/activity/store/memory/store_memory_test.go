package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vowly/internal/activity"
)

func seed(t *testing.T, s *Store) time.Time {
	t.Helper()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	records := []activity.Record{
		{ID: "01", Event: activity.EventCreated, LogChannel: "wedding", SubjectType: "wedding", SubjectID: "7", CauserType: "user", CauserID: "42", CreatedAt: base},
		{ID: "02", Event: activity.EventUpdated, LogChannel: "wedding", SubjectType: "wedding", SubjectID: "7", CauserType: "user", CauserID: "42", CreatedAt: base.Add(time.Minute)},
		{ID: "03", Event: activity.EventCreated, LogChannel: "order", SubjectType: "order", SubjectID: "9", CauserType: "user", CauserID: "43", CreatedAt: base.Add(time.Minute)},
		{ID: "04", Event: activity.EventDeleted, LogChannel: "wedding", SubjectType: "wedding", SubjectID: "7", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range records {
		require.NoError(t, s.Append(context.Background(), r))
	}
	return base
}

func ids(records []activity.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestSearchOrdering(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()

	newest, err := s.Search(ctx, activity.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"04", "03", "02", "01"}, ids(newest), "ties on created_at resolve by id")

	oldest, err := s.Search(ctx, activity.Filter{Order: activity.OrderOldest})
	require.NoError(t, err)
	assert.Equal(t, []string{"01", "02", "03", "04"}, ids(oldest))
}

func TestSearchFiltersAndPaging(t *testing.T) {
	s := New()
	base := seed(t, s)
	ctx := context.Background()

	got, err := s.Search(ctx, activity.Filter{SubjectType: "wedding", SubjectID: "7", Events: []activity.Event{activity.EventCreated, activity.EventDeleted}})
	require.NoError(t, err)
	assert.Equal(t, []string{"04", "01"}, ids(got))

	got, err = s.Search(ctx, activity.Filter{CauserType: "user", CauserID: "42"})
	require.NoError(t, err)
	assert.Equal(t, []string{"02", "01"}, ids(got))

	got, err = s.Search(ctx, activity.Filter{Since: base.Add(time.Minute), Until: base.Add(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, []string{"03", "02"}, ids(got))

	got, err = s.Search(ctx, activity.Filter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"03", "02"}, ids(got))

	got, err = s.Search(ctx, activity.Filter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAppendIsIdempotent(t *testing.T) {
	s := New()
	r := activity.Record{ID: "dup", Event: activity.EventCreated, SubjectType: "guest", SubjectID: "1"}

	require.NoError(t, s.Append(context.Background(), r))
	require.NoError(t, s.Append(context.Background(), r))

	assert.Equal(t, 1, s.Len())
}

func TestAppendStampsCreatedAt(t *testing.T) {
	s := New()
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.Append(context.Background(), activity.Record{ID: "a", SubjectType: "guest", SubjectID: "1"}))

	got, err := s.Search(context.Background(), activity.Filter{})
	require.NoError(t, err)
	assert.Equal(t, fixed, got[0].CreatedAt)
}
