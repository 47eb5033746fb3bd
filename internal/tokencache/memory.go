package tokencache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process cache bounded by TTL and entry count. When full,
// the entry closest to expiry is evicted.
type Memory struct {
	ttl        time.Duration
	maxEntries int
	clock      func() time.Time

	group singleflight.Group

	mu          sync.Mutex
	entries     map[string]entry
	generations map[string]uint64
}

// NewMemory creates an empty in-memory cache.
func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	return &Memory{
		ttl:         ttl,
		maxEntries:  maxEntries,
		clock:       time.Now,
		entries:     make(map[string]entry),
		generations: make(map[string]uint64),
	}
}

// Get returns the value for key, loading it once on a miss.
func (m *Memory) Get(ctx context.Context, key string, load Loader) (string, error) {
	if v, ok := m.lookup(key); ok {
		return v, nil
	}

	ch := m.group.DoChan(key, func() (any, error) {
		if v, ok := m.lookup(key); ok {
			return v, nil
		}
		gen := m.generation(key)

		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		m.store(key, v, gen)
		return v, nil
	})

	return wait(ctx, key, ch, func(res singleflight.Result) (string, error) {
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	})
}

// Delete drops key and fences off any load currently in flight for it.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.generations[key]++
	m.mu.Unlock()

	m.group.Forget(key)
	return nil
}

// DeleteIf drops key only if its live value is stale. A missing entry is left
// alone: a reload is either already in flight or will run on the next Get.
func (m *Memory) DeleteIf(_ context.Context, key, stale string) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok || e.value != stale {
		m.mu.Unlock()
		return false, nil
	}
	delete(m.entries, key)
	m.generations[key]++
	m.mu.Unlock()

	m.group.Forget(key)
	return true, nil
}

// size reports the number of live entries.
func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictExpired(m.clock())
	return len(m.entries)
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) lookup(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false
	}
	if !m.clock().Before(e.expiresAt) {
		delete(m.entries, key)
		return "", false
	}
	return e.value, true
}

func (m *Memory) generation(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generations[key]
}

func (m *Memory) store(key, value string, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generations[key] != gen {
		return
	}

	now := m.clock()
	m.evictExpired(now)
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evictSoonest()
	}
	m.entries[key] = entry{value: value, expiresAt: now.Add(m.ttl)}
}

// evictExpired must be called with mu held.
func (m *Memory) evictExpired(now time.Time) {
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// evictSoonest must be called with mu held.
func (m *Memory) evictSoonest() {
	var victim string
	var soonest time.Time
	for k, e := range m.entries {
		if victim == "" || e.expiresAt.Before(soonest) {
			victim, soonest = k, e.expiresAt
		}
	}
	if victim != "" {
		delete(m.entries, victim)
	}
}
