package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// SmoothLimiter spreads refillAmount permits evenly across refillPeriod
// instead of granting them in one step. Capacity becomes the burst size.
type SmoothLimiter struct {
	limiter *rate.Limiter
	burst   int
}

// NewSmoothLimiter creates a limiter with an initially full burst.
func NewSmoothLimiter(capacity, refillAmount int, refillPeriod time.Duration) *SmoothLimiter {
	perSecond := rate.Limit(float64(refillAmount) / refillPeriod.Seconds())
	return &SmoothLimiter{
		limiter: rate.NewLimiter(perSecond, capacity),
		burst:   capacity,
	}
}

// Acquire blocks until n permits are available.
func (s *SmoothLimiter) Acquire(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPermits, n)
	}
	if n > s.burst {
		return fmt.Errorf("%w: %d > %d", ErrExceedsCapacity, n, s.burst)
	}

	// WaitN also fails early when ctx has a deadline it cannot meet; that is
	// reported as an interruption as well.
	if err := s.limiter.WaitN(ctx, n); err != nil {
		return interrupted(err)
	}
	return nil
}
