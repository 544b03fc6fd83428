// Package memory is an in-process activity store for tests and local runs.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"vowly/internal/activity"
)

type Store struct {
	mu      sync.RWMutex
	records []activity.Record
	ids     map[string]struct{}
	now     func() time.Time
}

func New() *Store {
	return &Store{ids: make(map[string]struct{}), now: time.Now}
}

// Append stores the record unless its ID was already seen.
func (s *Store) Append(_ context.Context, record activity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[record.ID]; dup {
		return nil
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	s.ids[record.ID] = struct{}{}
	s.records = append(s.records, record)
	return nil
}

func (s *Store) Search(_ context.Context, filter activity.Filter) ([]activity.Record, error) {
	s.mu.RLock()
	var out []activity.Record
	for _, r := range s.records {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b activity.Record) int {
		c := a.CreatedAt.Compare(b.CreatedAt)
		if c == 0 {
			c = compareIDs(a.ID, b.ID)
		}
		if filter.Order == activity.OrderOldest {
			return c
		}
		return -c
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear drops all records.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.ids = make(map[string]struct{})
}

func compareIDs(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
