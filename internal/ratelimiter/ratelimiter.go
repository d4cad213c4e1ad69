// Package ratelimiter provides token bucket rate limiting for the accept
// path. A fixed worker pool drains connections at a bounded pace; limiting
// the accept rate keeps a connection burst from piling up an arbitrarily
// deep dispatch queue.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter wraps golang.org/x/time/rate with the conventions used by the
// dispatch server: a rate of 0 means unlimited, and waiting respects context
// cancellation so accept loops shut down cleanly.
//
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// effectively unlimited; rate.Inf has edge cases around burst handling
const unlimitedRate = 1_000_000_000

// New creates a RateLimiter allowing eventsPerSecond sustained with the
// given burst capacity. A zero eventsPerSecond disables limiting.
func New(eventsPerSecond, burst uint) *RateLimiter {
	if eventsPerSecond == 0 {
		eventsPerSecond = unlimitedRate
		burst = eventsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(eventsPerSecond), int(burst)),
	}
}

// Wait blocks until a token is available or the context is cancelled.
// Returns the context error on cancellation.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
