package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxEntries is the memory cache size when none is configured.
const DefaultMaxEntries = 1024

// MemoryBackend is an in-process LRU cache.
type MemoryBackend struct {
	entries *lru.Cache[string, []byte]
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an LRU holding at most maxEntries documents.
func NewMemoryBackend(maxEntries int) (*MemoryBackend, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	entries, err := lru.New[string, []byte](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &MemoryBackend{entries: entries}, nil
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := m.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key string, value []byte) error {
	m.entries.Add(key, append([]byte(nil), value...))
	return nil
}

// Len returns the number of cached documents.
func (m *MemoryBackend) Len() int {
	return m.entries.Len()
}

func (m *MemoryBackend) Close() error {
	m.entries.Purge()
	return nil
}
