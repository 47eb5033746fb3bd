// Package ratelimit admits outgoing API calls against a shared request budget.
// The default implementation is a blocking token bucket that refills in whole
// periods; a smoother variant backed by golang.org/x/time/rate is available
// for deployments that prefer continuous refill.
package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"crptapi/internal/models"
)

var (
	// ErrInterrupted is returned when the caller's context ends while it is
	// waiting for permits. The context error is wrapped alongside it.
	ErrInterrupted = errors.New("ratelimit: interrupted while waiting for permits")

	// ErrExceedsCapacity is returned when a caller asks for more permits than
	// the limiter can ever hold.
	ErrExceedsCapacity = errors.New("ratelimit: requested permits exceed capacity")

	// ErrInvalidPermits is returned for a non-positive permit count.
	ErrInvalidPermits = errors.New("ratelimit: permit count must be positive")
)

// Limiter blocks callers until permits are available. Implementations must be
// safe for concurrent use.
type Limiter interface {
	// Acquire blocks until n permits are available and debits them. It returns
	// an error wrapping ErrInterrupted if ctx is done first.
	Acquire(ctx context.Context, n int) error
}

// New builds the limiter selected by cfg.Strategy.
func New(cfg models.RateLimitConfig) (Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Strategy {
	case "", models.RateLimitStrategyBucket:
		return NewTokenBucket(cfg.Capacity, cfg.RefillAmount, cfg.RefillPeriod), nil
	case models.RateLimitStrategySmooth:
		return NewSmoothLimiter(cfg.Capacity, cfg.RefillAmount, cfg.RefillPeriod), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit strategy: %s", cfg.Strategy)
	}
}

func interrupted(cause error) error {
	return fmt.Errorf("%w: %w", ErrInterrupted, cause)
}
