package store

import (
	"context"
	"sync"
)

// MemoryBackend держит документы в памяти процесса.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryBackend создаёт пустой backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

// Get реализует Backend.
func (m *MemoryBackend) Get(_ context.Context, collection string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.docs[collection]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), body...), nil
}

// Put реализует Backend.
func (m *MemoryBackend) Put(_ context.Context, collection string, body []byte) error {
	m.mu.Lock()
	m.docs[collection] = append([]byte(nil), body...)
	m.mu.Unlock()
	return nil
}
