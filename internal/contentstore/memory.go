package contentstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Backend for tests and development.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte // sha256 ref -> document
}

var _ Backend = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores data under its SHA-256. Storing the same data twice is a no-op.
func (m *MemoryStore) Put(ctx context.Context, data []byte) (string, error) {
	ref := sha256Ref(data)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[ref]; !ok {
		m.objects[ref] = append([]byte(nil), data...)
	}
	return ref, nil
}

// Get returns a copy of the object stored under ref.
func (m *MemoryStore) Get(ctx context.Context, ref string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return append([]byte(nil), data...), nil
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
