// Package circuit implements a circuit breaker whose state lives in an
// injected Store, so several processes can share one breaker through Redis
// while tests and single-process deployments use MemoryStore.
//
// The breaker admits calls while closed. After FailureThreshold consecutive
// failures it opens for a cooldown; once the cooldown elapses exactly one
// trial call is admitted (half-open). The trial's outcome closes the breaker
// or reopens it with a fixed or exponentially growing cooldown.
package circuit

import (
	"context"
	"log/slog"
	"time"
)

// State is the breaker's position.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Backoff selects how the cooldown grows across consecutive trips.
type Backoff string

const (
	BackoffFixed       Backoff = "fixed"
	BackoffExponential Backoff = "exponential"
)

// ParseBackoff maps a configuration value onto a Backoff, defaulting to
// exponential.
func ParseBackoff(s string) Backoff {
	if Backoff(s) == BackoffFixed {
		return BackoffFixed
	}
	return BackoffExponential
}

const (
	defaultFailureThreshold = 5
	defaultCooldown         = time.Minute
	defaultMaxCooldown      = 10 * time.Minute
)

// Snapshot is the persisted breaker state.
type Snapshot struct {
	State          State     `json:"state"`
	Failures       int       `json:"failures"`
	Trips          int       `json:"trips"`
	OpenedAt       time.Time `json:"opened_at"`
	OpenedUntil    time.Time `json:"opened_until"`
	TrialStartedAt time.Time `json:"trial_started_at"`
}

// current treats the zero value as closed.
func (s Snapshot) current() State {
	if s.State == "" {
		return StateClosed
	}
	return s.State
}

// Store holds breaker snapshots keyed by breaker name. Update must apply fn
// atomically with respect to other Update calls on the same name; fn may be
// invoked more than once when the store retries an optimistic transaction.
type Store interface {
	Load(ctx context.Context, name string) (Snapshot, error)
	Update(ctx context.Context, name string, fn func(*Snapshot) error) (Snapshot, error)
}

// StateChangeFunc observes transitions.
type StateChangeFunc func(name string, from, to State)

// Breaker guards calls to a failing dependency.
type Breaker struct {
	name        string
	threshold   int
	cooldown    time.Duration
	maxCooldown time.Duration
	backoff     Backoff
	now         func() time.Time
	store       Store
	fallback    *MemoryStore
	logger      *slog.Logger
	onChange    StateChangeFunc
}

// Option configures a Breaker.
type Option func(*Breaker)

func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.threshold = n
		}
	}
}

func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

func WithMaxCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.maxCooldown = d
		}
	}
}

func WithBackoff(backoff Backoff) Option {
	return func(b *Breaker) {
		b.backoff = backoff
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithStore sets where the breaker keeps its state. Defaults to a private
// MemoryStore.
func WithStore(store Store) Option {
	return func(b *Breaker) {
		if store != nil {
			b.store = store
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Breaker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithStateChangeHook(fn StateChangeFunc) Option {
	return func(b *Breaker) {
		b.onChange = fn
	}
}

// New creates a breaker. The name keys its state in the store.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:        name,
		threshold:   defaultFailureThreshold,
		cooldown:    defaultCooldown,
		maxCooldown: defaultMaxCooldown,
		backoff:     BackoffExponential,
		now:         time.Now,
		fallback:    NewMemoryStore(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.store == nil {
		b.store = b.fallback
	}
	if b.maxCooldown < b.cooldown {
		b.maxCooldown = b.cooldown
	}
	return b
}

func (b *Breaker) Name() string {
	return b.name
}

// Allow reports whether a call may proceed. While open it returns false
// until the cooldown elapses, then admits a single trial.
func (b *Breaker) Allow(ctx context.Context) bool {
	snap := b.load(ctx)
	if snap.current() == StateClosed {
		return true
	}
	now := b.now()
	if snap.current() == StateOpen && now.Before(snap.OpenedUntil) {
		return false
	}

	var allowed bool
	b.update(ctx, func(s *Snapshot) error {
		allowed = false
		switch s.current() {
		case StateClosed:
			allowed = true
		case StateOpen:
			if now.Before(s.OpenedUntil) {
				return nil
			}
			s.State = StateHalfOpen
			s.TrialStartedAt = now
			allowed = true
		case StateHalfOpen:
			// A trial that never reported back is abandoned after one cooldown.
			if !s.TrialStartedAt.IsZero() && now.Sub(s.TrialStartedAt) < b.cooldown {
				return nil
			}
			s.TrialStartedAt = now
			allowed = true
		}
		return nil
	})
	return allowed
}

// RecordSuccess closes a half-open breaker and clears failures while closed.
func (b *Breaker) RecordSuccess(ctx context.Context) {
	snap := b.load(ctx)
	if snap.current() == StateClosed && snap.Failures == 0 {
		return
	}
	b.update(ctx, func(s *Snapshot) error {
		switch s.current() {
		case StateClosed:
			s.Failures = 0
		case StateHalfOpen:
			*s = Snapshot{State: StateClosed}
		}
		return nil
	})
}

// RecordFailure counts a failure, opening the breaker at the threshold and
// reopening it when a trial fails.
func (b *Breaker) RecordFailure(ctx context.Context) {
	now := b.now()
	b.update(ctx, func(s *Snapshot) error {
		s.Failures++
		switch s.current() {
		case StateClosed:
			if s.Failures >= b.threshold {
				b.trip(s, now)
			}
		case StateHalfOpen:
			b.trip(s, now)
		}
		return nil
	})
}

// State returns the breaker position without changing it.
func (b *Breaker) State(ctx context.Context) State {
	return b.load(ctx).current()
}

func (b *Breaker) Snapshot(ctx context.Context) Snapshot {
	snap := b.load(ctx)
	snap.State = snap.current()
	return snap
}

// IsOpen reports whether calls are currently rejected without a trial.
func (b *Breaker) IsOpen(ctx context.Context) bool {
	snap := b.load(ctx)
	return snap.current() == StateOpen && b.now().Before(snap.OpenedUntil)
}

// Reset forces the breaker closed.
func (b *Breaker) Reset(ctx context.Context) {
	b.update(ctx, func(s *Snapshot) error {
		*s = Snapshot{State: StateClosed}
		return nil
	})
}

func (b *Breaker) trip(s *Snapshot, now time.Time) {
	s.Trips++
	s.State = StateOpen
	s.OpenedAt = now
	s.OpenedUntil = now.Add(b.cooldownFor(s.Trips))
	s.TrialStartedAt = time.Time{}
}

func (b *Breaker) cooldownFor(trips int) time.Duration {
	if b.backoff != BackoffExponential || trips <= 1 {
		return b.cooldown
	}
	d := b.cooldown
	for i := 1; i < trips; i++ {
		d *= 2
		if d >= b.maxCooldown {
			return b.maxCooldown
		}
	}
	return d
}

func (b *Breaker) load(ctx context.Context) Snapshot {
	snap, err := b.store.Load(ctx, b.name)
	if err == nil {
		return snap
	}
	b.logger.WarnContext(ctx, "circuit breaker store unavailable, using local state",
		"breaker", b.name,
		"error", err,
	)
	snap, _ = b.fallback.Load(ctx, b.name)
	return snap
}

func (b *Breaker) update(ctx context.Context, fn func(*Snapshot) error) {
	var from State
	wrapped := func(s *Snapshot) error {
		from = s.current()
		return fn(s)
	}

	snap, err := b.store.Update(ctx, b.name, wrapped)
	if err != nil && b.store != Store(b.fallback) {
		b.logger.WarnContext(ctx, "circuit breaker store unavailable, using local state",
			"breaker", b.name,
			"error", err,
		)
		snap, err = b.fallback.Update(ctx, b.name, wrapped)
	}
	if err != nil {
		return
	}

	to := snap.current()
	if from == to {
		return
	}
	b.logger.InfoContext(ctx, "circuit breaker state changed",
		"breaker", b.name,
		"from", string(from),
		"to", string(to),
		"failures", snap.Failures,
		"trips", snap.Trips,
	)
	if b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}
