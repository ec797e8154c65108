// internal/store/memory.go
//
// In-memory registry for live game sessions.
// This is a lightweight persistence layer for ephemeral per-client games;
// durable state (the best score) lives in the score package.
//
// Characteristics:
//   - Values keyed by game ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//   - ErrNotFound is returned for missing game IDs on Get().

package store

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("store: not found")

// Store defines the registry interface for live sessions.
// Implementations may be backed by memory (this package), Redis, etc.
type Store[T any] interface {
	// Save persists or updates an entry under id.
	Save(ctx context.Context, id string, v T) error

	// Get retrieves an entry by id, or ErrNotFound.
	Get(ctx context.Context, id string) (T, error)

	// Delete removes an entry; missing ids are a no-op.
	Delete(ctx context.Context, id string)

	// Range calls fn for each entry until fn returns false. The snapshot is
	// taken up front, so fn may call back into the store.
	Range(ctx context.Context, fn func(id string, v T) bool)
}

// memory is an in-memory map-based Store implementation.
type memory[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
}

// NewMemory constructs a new in-memory Store.
func NewMemory[T any]() Store[T] {
	return &memory[T]{entries: make(map[string]T)}
}

func (m *memory[T]) Save(ctx context.Context, id string, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = v
	return nil
}

func (m *memory[T]) Get(ctx context.Context, id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.entries[id]; ok {
		return v, nil
	}
	var zero T
	return zero, ErrNotFound
}

func (m *memory[T]) Delete(ctx context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
}

func (m *memory[T]) Range(ctx context.Context, fn func(id string, v T) bool) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.entries))
	vals := make([]T, 0, len(m.entries))
	for id, v := range m.entries {
		ids = append(ids, id)
		vals = append(vals, v)
	}
	m.mu.RUnlock()

	for i := range ids {
		if !fn(ids[i], vals[i]) {
			return
		}
	}
}
