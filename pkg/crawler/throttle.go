package crawler

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle spaces fetch starts of one crawl run by at least the configured
// delay. The first Wait returns immediately.
type Throttle struct {
	limiter *rate.Limiter
	delay   time.Duration
}

// NewThrottle creates a throttle; a delay <= 0 disables throttling.
func NewThrottle(delay time.Duration) *Throttle {
	if delay <= 0 {
		return &Throttle{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Throttle{
		limiter: rate.NewLimiter(rate.Every(delay), 1),
		delay:   delay,
	}
}

// Wait blocks until the next fetch may start or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// Delay returns the configured spacing.
func (t *Throttle) Delay() time.Duration {
	return t.delay
}
