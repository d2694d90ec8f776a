package transfer

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned by Load for unknown transfer ids.
var ErrNotFound = errors.New("transfer not found")

// Store persists transfer state between phases. Save is called after every
// phase transition; the resumability guarantee is only as durable as the
// store behind this interface.
type Store interface {
	Save(ctx context.Context, state *State) error
	Load(ctx context.Context, id string) (*State, error)
	// ListResumable returns transfers a background worker should continue,
	// oldest first, at most limit entries. A limit <= 0 means no limit; all
	// implementations honor that so pending-transfer counts are exact.
	ListResumable(ctx context.Context, limit int) ([]*State, error)
}

// MemoryStore keeps state in-process. It exists for tests and local
// development; production deployments use the Postgres or Redis store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]*State)}
}

func (m *MemoryStore) Save(_ context.Context, state *State) error {
	if state.ID == "" {
		return errors.New("transfer id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[state.ID] = state.Clone()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return state.Clone(), nil
}

func (m *MemoryStore) ListResumable(_ context.Context, limit int) ([]*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*State
	for _, state := range m.data {
		if state.Resumable() {
			out = append(out, state.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
