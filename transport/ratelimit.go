package transport

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles outbound requests per transport connection with
// x/time/rate's token bucket, an approximation of a sliding window (burst lets a
// caller front-load a handful of requests, then settles to the steady
// rate).
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter allowing ratePerSecond sustained calls
// with a burst allowance of burst.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Wait blocks until a request may proceed or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil || r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}
