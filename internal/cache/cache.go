// Package cache places a document cache in front of a feed.ContentStore.
//
// Documents named by a content identifier never change, so entries are never
// invalidated; the backends bound their size (LRU) or lifetime (TTL).
package cache

import (
	"context"

	"tipfeed/internal/feed"
)

// Backend is a key/value store for cached documents.
type Backend interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Store is a feed.ContentStore that consults a Backend before the wrapped
// store. Backend failures are logged and treated as misses.
type Store struct {
	inner   feed.ContentStore
	backend Backend
	logger  feed.Logger
}

var _ feed.ContentStore = (*Store)(nil)

// New wraps inner with backend.
func New(inner feed.ContentStore, backend Backend, logger feed.Logger) *Store {
	if logger == nil {
		logger = feed.NopLogger{}
	}
	return &Store{inner: inner, backend: backend, logger: logger}
}

func key(refOrURI string) string {
	return "tipfeed:doc:" + refOrURI
}

// Put stores data in the wrapped store and primes the cache with it.
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	ref, err := s.inner.Put(ctx, data)
	if err != nil {
		return "", err
	}
	if err := s.backend.Set(ctx, key(ref), data); err != nil {
		s.logger.Warn("cache set failed", "ref", ref, "error", err)
	}
	return ref, nil
}

// Get returns the cached document or fetches and caches it.
func (s *Store) Get(ctx context.Context, refOrURI string) ([]byte, error) {
	k := key(refOrURI)

	data, ok, err := s.backend.Get(ctx, k)
	if err != nil {
		s.logger.Warn("cache get failed", "ref", refOrURI, "error", err)
	} else if ok {
		s.logger.Debug("cache hit", "ref", refOrURI)
		return data, nil
	}

	data, err = s.inner.Get(ctx, refOrURI)
	if err != nil {
		return nil, err
	}
	if err := s.backend.Set(ctx, k, data); err != nil {
		s.logger.Warn("cache set failed", "ref", refOrURI, "error", err)
	}
	return data, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
