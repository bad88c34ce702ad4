package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore implements Store with an in-process map. It is the default
// when no durable backend is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	payloads map[string][]byte
	infos    map[string]Info
	closed   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payloads: make(map[string][]byte),
		infos:    make(map[string]Info),
	}
}

// Save persists a session payload.
func (m *MemoryStore) Save(ctx context.Context, info Info, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.payloads[info.ID] = append([]byte(nil), payload...)
	m.infos[info.ID] = info
	return nil
}

// Load returns the payload for a session id.
func (m *MemoryStore) Load(ctx context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	payload, ok := m.payloads[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), payload...), nil
}

// List returns metadata for all persisted sessions, newest first.
func (m *MemoryStore) List(ctx context.Context) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]Info, 0, len(m.infos))
	for _, info := range m.infos {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime > out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete removes a persisted session.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.payloads[id]; !ok {
		return ErrNotFound
	}
	delete(m.payloads, id)
	delete(m.infos, id)
	return nil
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
