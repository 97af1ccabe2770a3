package cache

import (
	"context"
	"fmt"
	"time"

	"tipfeed/internal/config"
	"tipfeed/internal/feed"
)

// NewFromConfig wraps inner with the cache selected by cfg.Type. For "none"
// inner is returned unchanged along with a no-op close function.
func NewFromConfig(ctx context.Context, cfg config.CacheConfig, inner feed.ContentStore, logger feed.Logger) (feed.ContentStore, func() error, error) {
	var backend Backend
	switch cfg.Type {
	case "none", "":
		return inner, func() error { return nil }, nil
	case "memory":
		m, err := NewMemoryBackend(cfg.MaxEntries)
		if err != nil {
			return nil, nil, err
		}
		backend = m
	case "redis":
		ttl, err := parseTTL(cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		r, err := NewRedisBackend(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      ttl,
		})
		if err != nil {
			return nil, nil, err
		}
		backend = r
	default:
		return nil, nil, fmt.Errorf("unknown cache type: %q", cfg.Type)
	}

	s := New(inner, backend, logger)
	return s, s.Close, nil
}

func parseTTL(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid cache ttl %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid cache ttl %q: must not be negative", s)
	}
	return d, nil
}
