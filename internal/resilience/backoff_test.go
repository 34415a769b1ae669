package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelayBounds(t *testing.T) {
	cfg := BackoffConfig{Base: time.Second, Max: 30 * time.Second}

	tests := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{attempt: 0, min: time.Second, max: 1300 * time.Millisecond},
		{attempt: 1, min: 2 * time.Second, max: 2600 * time.Millisecond},
		{attempt: 3, min: 8 * time.Second, max: 10400 * time.Millisecond},
		// 2^10 seconds is clamped to the 30s ceiling before jitter.
		{attempt: 10, min: 30 * time.Second, max: 39 * time.Second},
	}

	for _, tt := range tests {
		for i := 0; i < 20; i++ {
			delay := cfg.Delay(tt.attempt)
			assert.GreaterOrEqual(t, delay, tt.min, "attempt %d", tt.attempt)
			assert.LessOrEqual(t, delay, tt.max, "attempt %d", tt.attempt)
		}
	}
}

func TestBackoffSleepHonorsCancellation(t *testing.T) {
	cfg := BackoffConfig{Base: 10 * time.Second, Max: 30 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cfg.Sleep(ctx, 3)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPacerDisabledNeverBlocks(t *testing.T) {
	p := NewPacer(false, 0.0001, 1)

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Acquire(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestPacerBlocksWhenEmpty(t *testing.T) {
	// 10 tokens/second, burst of 1: the second acquire must wait ~100ms.
	p := NewPacer(true, 10, 1)

	require.NoError(t, p.Acquire(context.Background()))

	start := time.Now()
	require.NoError(t, p.Acquire(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestPacerHonorsContext(t *testing.T) {
	p := NewPacer(true, 0.001, 1)
	require.NoError(t, p.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.Acquire(ctx)
	assert.Error(t, err, "empty bucket with expiring context must not hand out a token")
}
