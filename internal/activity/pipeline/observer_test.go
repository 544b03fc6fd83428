package pipeline

import (
	"context"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vowly/internal/activity"
	"vowly/internal/activity/capture"
	"vowly/internal/activity/metrics"
	"vowly/internal/activity/store/memory"
	"vowly/pkg/requestcontext"
)

type wedding struct {
	id    string
	attrs map[string]any
}

func (w wedding) ActivityKind() string               { return "wedding" }
func (w wedding) ActivityID() string                 { return w.id }
func (w wedding) ActivityAttributes() map[string]any { return w.attrs }

func newObserver(t *testing.T, enabled bool) (*Observer, *memory.Store, *metrics.Metrics) {
	t.Helper()
	store := memory.New()
	m := newMetrics()
	clock := fixedNow
	registry := capture.NewRegistry(capture.WithDeleteAllowList("wedding")).Register("wedding")
	p := New(NewSyncLane(NewWorker(store, WithWorkerLogger(discardLogger()))), nil, activity.NewEventSet(),
		WithEnabled(enabled),
		WithMetrics(m),
		WithLogger(discardLogger()),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)
	return NewObserver(capture.NewCapturer(registry), p, discardLogger(), m), store, m
}

func TestObserverLifecycle(t *testing.T) {
	o, store, _ := newObserver(t, true)
	ctx := requestcontext.WithActor(context.Background(), requestcontext.Principal{Type: "user", ID: "42"})

	w := wedding{id: "7", attrs: map[string]any{"title": "Ana & Ben", "venue": "Jakarta", "is_published": false}}
	o.AfterCreate(ctx, w)

	updated := wedding{id: "7", attrs: map[string]any{"title": "Ana & Ben", "venue": "Bali", "is_published": true}}
	o.AfterUpdate(ctx, updated, w.attrs)
	// Nothing changed: no record.
	o.AfterUpdate(ctx, updated, updated.attrs)

	o.Custom(ctx, updated, activity.EventPublished, map[string]any{"slug": "ana-ben"})
	o.AfterSoftDelete(ctx, updated)

	records, err := store.Search(ctx, activity.Filter{
		SubjectType: "wedding",
		SubjectID:   "7",
		Order:       activity.OrderOldest,
	})
	require.NoError(t, err)
	require.Len(t, records, 4)

	events := make([]activity.Event, 0, len(records))
	for _, r := range records {
		events = append(events, r.Event)
		assert.Equal(t, "42", r.CauserID)
	}
	assert.Equal(t, []activity.Event{
		activity.EventCreated,
		activity.EventUpdated,
		activity.EventPublished,
		activity.EventDeleted,
	}, events)

	upd := records[1]
	assert.Equal(t, "wedding updated: is_published, venue", upd.Description)
	assert.Equal(t, []string{"is_published: false → true", "venue: Jakarta → Bali"}, upd.Properties[activity.KeyChangeSummary])
	assert.Equal(t, "ana-ben", records[2].Properties["slug"])
}

func TestObserverCaptureErrors(t *testing.T) {
	o, store, m := newObserver(t, true)

	o.AfterCreate(context.Background(), wedding{id: "7", attrs: map[string]any{"bad": func() {}}})
	o.AfterCreate(context.Background(), wedding{attrs: map[string]any{"title": "unsaved"}})

	assert.Zero(t, store.Len())
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Dropped.WithLabelValues(metrics.ReasonCapture)), "skips are not counted")
}

func TestObserverDisabled(t *testing.T) {
	o, store, _ := newObserver(t, false)

	o.AfterCreate(context.Background(), wedding{id: "7", attrs: map[string]any{"title": "Ana & Ben"}})

	assert.Zero(t, store.Len())
}
