package circuit

import (
	"context"
	"sync"
)

// MemoryStore keeps snapshots in process memory. Only correct when a single
// process owns the breaker.
type MemoryStore struct {
	mu    sync.Mutex
	state map[string]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: make(map[string]Snapshot)}
}

func (m *MemoryStore) Load(_ context.Context, name string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state[name], nil
}

func (m *MemoryStore) Update(_ context.Context, name string, fn func(*Snapshot) error) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.state[name]
	if err := fn(&snap); err != nil {
		return m.state[name], err
	}
	m.state[name] = snap
	return snap, nil
}
