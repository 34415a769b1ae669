package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffConfig controls the retry delay schedule:
// delay = min(base * 2^attempt, max) + uniform(0, 0.3*delay).
type BackoffConfig struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff matches the extractor's intra-method retry policy.
var DefaultBackoff = BackoffConfig{
	Base: 1 * time.Second,
	Max:  30 * time.Second,
}

// Delay computes the jittered delay for a zero-based attempt number.
func (c BackoffConfig) Delay(attempt int) time.Duration {
	base := c.Base
	if base <= 0 {
		base = time.Second
	}
	max := c.Max
	if max <= 0 {
		max = 30 * time.Second
	}

	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if delay > max {
		delay = max
	}
	jitter := time.Duration(rand.Float64() * 0.3 * float64(delay))
	return delay + jitter
}

// Sleep waits for the attempt's delay or until the context is done.
func (c BackoffConfig) Sleep(ctx context.Context, attempt int) error {
	timer := time.NewTimer(c.Delay(attempt))
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
