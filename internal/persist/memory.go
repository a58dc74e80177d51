package persist

import (
	"context"
	"sync"
)

// MemoryBackend keeps slots in process memory. State does not survive a
// restart; it backs the "memory" storage backend and tests.
type MemoryBackend struct {
	mu    sync.Mutex
	slots map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{slots: make(map[string][]byte)}
}

func (m *MemoryBackend) Load(_ context.Context, slot string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.slots[slot]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *MemoryBackend) Save(_ context.Context, slot string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.slots[slot] = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
