package layout

import (
	"context"
	"sync"
)

// Backend stores raw slot values.
type Backend interface {
	// Load returns the value stored in slot. found is false when the
	// slot has never been written.
	Load(ctx context.Context, slot string) (data []byte, found bool, err error)

	// Save replaces the value stored in slot.
	Save(ctx context.Context, slot string, data []byte) error
}

// MemoryBackend keeps slots in memory.
type MemoryBackend struct {
	mu    sync.Mutex
	slots map[string][]byte
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{slots: make(map[string][]byte)}
}

// Load implements Backend.
func (m *MemoryBackend) Load(_ context.Context, slot string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.slots[slot]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Save implements Backend.
func (m *MemoryBackend) Save(_ context.Context, slot string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = append([]byte(nil), data...)
	return nil
}
