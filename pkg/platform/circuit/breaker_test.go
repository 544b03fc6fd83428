package circuit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(clock *fakeClock, opts ...Option) *Breaker {
	base := []Option{
		WithFailureThreshold(3),
		WithCooldown(30 * time.Second),
		WithClock(clock.Now),
	}
	return New("activity-log", append(base, opts...)...)
}

func TestBreaker_InitialState(t *testing.T) {
	ctx := context.Background()
	b := New("test")

	assert.Equal(t, StateClosed, b.State(ctx))
	assert.False(t, b.IsOpen(ctx))
	assert.True(t, b.Allow(ctx))
	assert.Equal(t, "test", b.Name())
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	b := newTestBreaker(clock)

	b.RecordFailure(ctx)
	b.RecordFailure(ctx)
	assert.Equal(t, StateClosed, b.State(ctx))
	assert.True(t, b.Allow(ctx))

	b.RecordFailure(ctx)
	assert.Equal(t, StateOpen, b.State(ctx))
	assert.False(t, b.Allow(ctx))

	snap := b.Snapshot(ctx)
	assert.Equal(t, 3, snap.Failures)
	assert.Equal(t, 1, snap.Trips)
	assert.Equal(t, clock.Now().Add(30*time.Second), snap.OpenedUntil)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	ctx := context.Background()
	b := newTestBreaker(newFakeClock())

	b.RecordFailure(ctx)
	b.RecordFailure(ctx)
	b.RecordSuccess(ctx)
	assert.Equal(t, 0, b.Snapshot(ctx).Failures)

	b.RecordFailure(ctx)
	b.RecordFailure(ctx)
	assert.Equal(t, StateClosed, b.State(ctx))
}

func TestBreaker_HalfOpenAdmitsSingleTrial(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	b := newTestBreaker(clock)
	for range 3 {
		b.RecordFailure(ctx)
	}

	clock.Advance(29 * time.Second)
	assert.False(t, b.Allow(ctx), "still cooling down")

	clock.Advance(time.Second)
	assert.True(t, b.Allow(ctx), "first call after cooldown is the trial")
	assert.Equal(t, StateHalfOpen, b.State(ctx))
	assert.False(t, b.Allow(ctx), "second call waits for the trial outcome")
	assert.False(t, b.Allow(ctx))
}

func TestBreaker_TrialSuccessCloses(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	b := newTestBreaker(clock)
	for range 3 {
		b.RecordFailure(ctx)
	}
	clock.Advance(30 * time.Second)
	require.True(t, b.Allow(ctx))

	b.RecordSuccess(ctx)

	assert.Equal(t, StateClosed, b.State(ctx))
	snap := b.Snapshot(ctx)
	assert.Zero(t, snap.Failures)
	assert.Zero(t, snap.Trips)
	assert.True(t, b.Allow(ctx))
}

func TestBreaker_TrialFailureReopens(t *testing.T) {
	t.Run("exponential backoff doubles the cooldown", func(t *testing.T) {
		ctx := context.Background()
		clock := newFakeClock()
		b := newTestBreaker(clock, WithBackoff(BackoffExponential))
		for range 3 {
			b.RecordFailure(ctx)
		}
		clock.Advance(30 * time.Second)
		require.True(t, b.Allow(ctx))

		b.RecordFailure(ctx)

		assert.Equal(t, StateOpen, b.State(ctx))
		assert.Equal(t, 2, b.Snapshot(ctx).Trips)
		clock.Advance(59 * time.Second)
		assert.False(t, b.Allow(ctx))
		clock.Advance(time.Second)
		assert.True(t, b.Allow(ctx))
	})

	t.Run("fixed backoff keeps the cooldown", func(t *testing.T) {
		ctx := context.Background()
		clock := newFakeClock()
		b := newTestBreaker(clock, WithBackoff(BackoffFixed))
		for range 3 {
			b.RecordFailure(ctx)
		}
		clock.Advance(30 * time.Second)
		require.True(t, b.Allow(ctx))

		b.RecordFailure(ctx)

		clock.Advance(30 * time.Second)
		assert.True(t, b.Allow(ctx))
	})

	t.Run("exponential cooldown is capped", func(t *testing.T) {
		ctx := context.Background()
		clock := newFakeClock()
		b := newTestBreaker(clock, WithMaxCooldown(45*time.Second))
		for range 3 {
			b.RecordFailure(ctx)
		}
		for range 4 {
			clock.Advance(45 * time.Second)
			require.True(t, b.Allow(ctx))
			b.RecordFailure(ctx)
		}
		snap := b.Snapshot(ctx)
		assert.Equal(t, 45*time.Second, snap.OpenedUntil.Sub(snap.OpenedAt))
	})
}

func TestBreaker_AbandonedTrialIsReplaced(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	b := newTestBreaker(clock)
	for range 3 {
		b.RecordFailure(ctx)
	}
	clock.Advance(30 * time.Second)
	require.True(t, b.Allow(ctx))

	clock.Advance(10 * time.Second)
	assert.False(t, b.Allow(ctx))

	clock.Advance(20 * time.Second)
	assert.True(t, b.Allow(ctx), "a trial that never reports back is abandoned after one cooldown")
}

func TestBreaker_Reset(t *testing.T) {
	ctx := context.Background()
	b := newTestBreaker(newFakeClock())
	for range 3 {
		b.RecordFailure(ctx)
	}
	require.True(t, b.IsOpen(ctx))

	b.Reset(ctx)

	assert.False(t, b.IsOpen(ctx))
	assert.True(t, b.Allow(ctx))
}

func TestBreaker_StateChangeHook(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()

	type transition struct{ from, to State }
	var got []transition
	b := newTestBreaker(clock, WithStateChangeHook(func(_ string, from, to State) {
		got = append(got, transition{from, to})
	}))

	for range 3 {
		b.RecordFailure(ctx)
	}
	clock.Advance(30 * time.Second)
	b.Allow(ctx)
	b.RecordSuccess(ctx)

	assert.Equal(t, []transition{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}, got)
}

func TestBreaker_SharedStore(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore()
	a := newTestBreaker(clock, WithStore(store))
	b := newTestBreaker(clock, WithStore(store))

	a.RecordFailure(ctx)
	b.RecordFailure(ctx)
	a.RecordFailure(ctx)

	assert.False(t, b.Allow(ctx), "failures from both instances count towards one breaker")
}

func TestBreaker_ConcurrentFailures(t *testing.T) {
	ctx := context.Background()
	b := New("concurrent", WithFailureThreshold(1000))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				b.RecordFailure(ctx)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 500, b.Snapshot(ctx).Failures)
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) (Snapshot, error) {
	return Snapshot{}, errors.New("connection refused")
}

func (failingStore) Update(context.Context, string, func(*Snapshot) error) (Snapshot, error) {
	return Snapshot{}, errors.New("connection refused")
}

func TestBreaker_FallsBackToLocalStateOnStoreErrors(t *testing.T) {
	ctx := context.Background()
	b := newTestBreaker(newFakeClock(), WithStore(failingStore{}))

	assert.True(t, b.Allow(ctx))
	for range 3 {
		b.RecordFailure(ctx)
	}
	assert.False(t, b.Allow(ctx))
	assert.Equal(t, StateOpen, b.State(ctx))
}

func TestParseBackoff(t *testing.T) {
	assert.Equal(t, BackoffFixed, ParseBackoff("fixed"))
	assert.Equal(t, BackoffExponential, ParseBackoff("exponential"))
	assert.Equal(t, BackoffExponential, ParseBackoff(""))
}
