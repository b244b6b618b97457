package store

import (
	"context"
	"sync"

	"github.com/TimurManjosov/licadvisor/internal/rules"
)

// MemoryStore is an in-memory implementation of the Store interface.
// It keeps rules in catalog order and uses an RWMutex for concurrent access.
// Suitable for development, testing, or single-instance deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	rules []rules.Rule
	index map[string]int // id -> position in rules
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[string]int)}
}

// ListRules returns a copy of the stored catalog.
func (m *MemoryStore) ListRules(ctx context.Context) ([]rules.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]rules.Rule, len(m.rules))
	copy(out, m.rules)
	return out, nil
}

// GetRule retrieves a single rule by id.
func (m *MemoryStore) GetRule(ctx context.Context, id string) (*rules.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pos, ok := m.index[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	r := m.rules[pos]
	return &r, nil
}

// ReplaceAll swaps the whole catalog under the write lock.
func (m *MemoryStore) ReplaceAll(ctx context.Context, catalog []rules.Rule) error {
	next := make([]rules.Rule, len(catalog))
	copy(next, catalog)
	index := make(map[string]int, len(next))
	for i, r := range next {
		index[r.ID] = i
	}

	m.mu.Lock()
	m.rules = next
	m.index = index
	m.mu.Unlock()
	return nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}
