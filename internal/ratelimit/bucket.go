package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TokenBucket is a blocking token bucket. It starts full and adds
// refillAmount permits for every whole refillPeriod that has elapsed since the
// last refill, never exceeding capacity.
//
// Waiters are not queued: each one sleeps for an estimate of the time needed
// and then re-checks, so a late waiter can overtake an earlier one.
type TokenBucket struct {
	capacity     int64
	refillAmount int64
	refillPeriod time.Duration
	clock        func() time.Time

	mu         sync.Mutex
	available  int64
	lastRefill time.Time
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(capacity, refillAmount int, refillPeriod time.Duration) *TokenBucket {
	return newTokenBucket(capacity, refillAmount, refillPeriod, time.Now)
}

func newTokenBucket(capacity, refillAmount int, refillPeriod time.Duration, clock func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:     int64(capacity),
		refillAmount: int64(refillAmount),
		refillPeriod: refillPeriod,
		clock:        clock,
		available:    int64(capacity),
		lastRefill:   clock(),
	}
}

// Acquire blocks until n permits are available and debits them atomically.
func (b *TokenBucket) Acquire(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPermits, n)
	}
	if int64(n) > b.capacity {
		return fmt.Errorf("%w: %d > %d", ErrExceedsCapacity, n, b.capacity)
	}
	if err := ctx.Err(); err != nil {
		return interrupted(err)
	}

	for {
		wait, ok := b.take(int64(n))
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return interrupted(ctx.Err())
		case <-timer.C:
		}
	}
}

// tryAcquire debits n permits if they are available right now.
func (b *TokenBucket) tryAcquire(n int) bool {
	if n <= 0 || int64(n) > b.capacity {
		return false
	}
	_, ok := b.take(int64(n))
	return ok
}

// permits reports the permits currently in the bucket after applying any
// pending refill.
func (b *TokenBucket) permits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	return int(b.available)
}

// take debits n permits or returns how long to sleep before trying again.
func (b *TokenBucket) take(n int64) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	if b.available >= n {
		b.available -= n
		return 0, true
	}
	return b.waitFor(n), false
}

// refill must be called with mu held. A refill happens once a full period has
// elapsed, including exactly one period.
func (b *TokenBucket) refill() {
	now := b.clock()
	elapsed := now.Sub(b.lastRefill)
	if elapsed < b.refillPeriod {
		return
	}

	periods := int64(elapsed / b.refillPeriod)
	b.available = min(b.capacity, b.available+periods*b.refillAmount)
	b.lastRefill = now
}

// waitFor must be called with mu held.
func (b *TokenBucket) waitFor(n int64) time.Duration {
	missing := n - b.available
	if missing <= 0 {
		return 0
	}
	refills := (missing + b.refillAmount - 1) / b.refillAmount
	return time.Duration(refills) * b.refillPeriod
}
