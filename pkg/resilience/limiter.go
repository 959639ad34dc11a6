package resilience

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket rate limiter over golang.org/x/time/rate.
// A zero or negative rps builds a no-op limiter.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter creates a limiter allowing rps requests per second with the
// given burst capacity.
func NewLimiter(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.rl == nil {
		return nil
	}
	return l.rl.Wait(ctx)
}

// Allow reports whether a request may proceed right now.
func (l *Limiter) Allow() bool {
	if l.rl == nil {
		return true
	}
	return l.rl.Allow()
}
