package resilience

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer paces outbound requests to a shared upstream with a token bucket.
// When disabled, Acquire returns immediately. The bucket is process-local;
// multi-process deployments need an external limiter.
type Pacer struct {
	limiter *rate.Limiter
	enabled bool
}

// NewPacer creates a token bucket refilling at perSec tokens per second with
// the given burst capacity. Non-positive arguments select the defaults of
// 2 tokens/second and capacity 10.
func NewPacer(enabled bool, perSec float64, burst int) *Pacer {
	if perSec <= 0 {
		perSec = 2
	}
	if burst <= 0 {
		burst = 10
	}
	return &Pacer{
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
		enabled: enabled,
	}
}

// Acquire blocks until a token is available or the context is done. It never
// returns nil without having consumed a token.
func (p *Pacer) Acquire(ctx context.Context) error {
	if !p.enabled {
		return nil
	}
	return p.limiter.Wait(ctx)
}
