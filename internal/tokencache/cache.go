// Package tokencache stores bearer tokens between API calls.
//
// Every backend provides get-or-compute semantics: on a miss exactly one
// loader runs per key inside this process while concurrent callers for the
// same key wait for, and share, its result. Failed loads are never cached.
package tokencache

import (
	"context"
	"errors"
	"fmt"

	"crptapi/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrBackend wraps failures of the storage behind a cache, as opposed to
// failures returned by a loader.
var ErrBackend = errors.New("tokencache: backend failure")

// Loader computes a value for a missing key.
type Loader func(ctx context.Context) (string, error)

// Cache is a single-flight string cache with explicit invalidation.
type Cache interface {
	// Get returns the cached value for key, running load on a miss.
	Get(ctx context.Context, key string, load Loader) (string, error)

	// Delete invalidates key so the next Get runs the loader again. A load
	// already in flight when Delete is called will not be stored.
	Delete(ctx context.Context, key string) error

	// DeleteIf invalidates key only while it still holds stale. Callers that
	// were all handed the same rejected value cause a single reload between
	// them. It reports whether the value was removed.
	DeleteIf(ctx context.Context, key, stale string) (bool, error)

	// Close releases backend resources.
	Close() error
}

// New creates the cache backend selected by cfg.Type.
func New(cfg models.TokenCacheConfig) (Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case models.TokenCacheMemory:
		return NewMemory(cfg.TTL, cfg.MaxEntries), nil
	case models.TokenCacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		return NewRedis(client, cfg.KeyPrefix, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported token cache type: %s", cfg.Type)
	}
}

// wait blocks on a single-flight result or the caller's context, whichever
// comes first. The flight keeps running when the caller gives up.
func wait[T any](ctx context.Context, key string, ch <-chan T, unpack func(T) (string, error)) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("tokencache: waiting for %q: %w", key, ctx.Err())
	case res := <-ch:
		return unpack(res)
	}
}
