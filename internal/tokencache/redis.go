package tokencache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Redis shares tokens between processes. Single-flight applies within one
// process only; two processes missing at the same moment may both load.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration

	group singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

// NewRedis wraps an existing client. Keys are stored as prefix+key with ttl.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{
		client:      client,
		prefix:      prefix,
		ttl:         ttl,
		generations: make(map[string]uint64),
	}
}

// Get returns the value for key, loading and storing it once on a miss.
func (r *Redis) Get(ctx context.Context, key string, load Loader) (string, error) {
	v, ok, err := r.fetch(ctx, key)
	if err != nil {
		return "", err
	}
	if ok {
		return v, nil
	}

	ch := r.group.DoChan(key, func() (any, error) {
		flightCtx := context.WithoutCancel(ctx)

		v, ok, err := r.fetch(flightCtx, key)
		if err != nil {
			return "", err
		}
		if ok {
			return v, nil
		}
		gen := r.generation(key)

		v, err = load(flightCtx)
		if err != nil {
			return "", err
		}
		r.store(flightCtx, key, v, gen)
		return v, nil
	})

	return wait(ctx, key, ch, func(res singleflight.Result) (string, error) {
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	})
}

// Delete removes key from Redis and fences off any local load in flight.
func (r *Redis) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	r.generations[key]++
	r.mu.Unlock()
	r.group.Forget(key)

	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: redis del %q: %w", ErrBackend, key, err)
	}
	return nil
}

// compareAndDelete removes KEYS[1] only while it holds ARGV[1].
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DeleteIf removes key only while Redis still holds stale, so a token another
// process already replaced is left in place.
func (r *Redis) DeleteIf(ctx context.Context, key, stale string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, r.client, []string{r.prefix + key}, stale).Int()
	if err != nil {
		return false, fmt.Errorf("%w: redis compare-and-delete %q: %w", ErrBackend, key, err)
	}
	if n == 0 {
		return false, nil
	}

	r.mu.Lock()
	r.generations[key]++
	r.mu.Unlock()
	r.group.Forget(key)
	return true, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) fetch(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: redis get %q: %w", ErrBackend, key, err)
	}
	return v, true, nil
}

func (r *Redis) generation(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generations[key]
}

// store writes a loaded value unless key was invalidated meanwhile. A failed
// write only costs a handshake on the next miss, so the loaded value is still
// returned to callers.
func (r *Redis) store(ctx context.Context, key, value string, gen uint64) {
	if r.generation(key) != gen {
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		slog.Warn("Failed to store token in redis", "key", r.prefix+key, "error", err)
	}
}
