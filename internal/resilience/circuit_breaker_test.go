package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	r := NewBreakerRegistry(5, 300*time.Second)

	for i := 0; i < 4; i++ {
		r.RecordFailure("watch_page")
		assert.Equal(t, StateClosed, r.State("watch_page"), "below threshold after %d failures", i+1)
	}

	r.RecordFailure("watch_page")
	assert.Equal(t, StateOpen, r.State("watch_page"))
	assert.False(t, r.CanExecute("watch_page"))
}

func TestBreakerHalfOpenAfterRecoveryWindow(t *testing.T) {
	r := NewBreakerRegistry(2, 300*time.Second)
	now := time.Now()
	r.now = func() time.Time { return now }

	r.RecordFailure("invidious")
	r.RecordFailure("invidious")
	require.Equal(t, StateOpen, r.State("invidious"))
	require.False(t, r.CanExecute("invidious"))

	// Before the window elapses the circuit stays shut.
	now = now.Add(299 * time.Second)
	assert.False(t, r.CanExecute("invidious"))

	now = now.Add(2 * time.Second)
	assert.True(t, r.CanExecute("invidious"), "recovery window elapsed admits a probe")
	assert.Equal(t, StateHalfOpen, r.State("invidious"))
}

func TestBreakerHalfOpenProbeOutcomes(t *testing.T) {
	t.Run("success closes", func(t *testing.T) {
		r := NewBreakerRegistry(2, time.Minute)
		now := time.Now()
		r.now = func() time.Time { return now }

		r.RecordFailure("piped")
		r.RecordFailure("piped")
		now = now.Add(2 * time.Minute)
		require.True(t, r.CanExecute("piped"))

		r.RecordSuccess("piped")
		assert.Equal(t, StateClosed, r.State("piped"))
		assert.True(t, r.CanExecute("piped"))
	})

	t.Run("failure reopens", func(t *testing.T) {
		r := NewBreakerRegistry(2, time.Minute)
		now := time.Now()
		r.now = func() time.Time { return now }

		r.RecordFailure("piped")
		r.RecordFailure("piped")
		now = now.Add(2 * time.Minute)
		require.True(t, r.CanExecute("piped"))

		r.RecordFailure("piped")
		assert.Equal(t, StateOpen, r.State("piped"))
		assert.False(t, r.CanExecute("piped"))
	})
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	r := NewBreakerRegistry(3, time.Minute)

	r.RecordFailure("ytdlp_subs")
	r.RecordFailure("ytdlp_subs")
	r.RecordSuccess("ytdlp_subs")
	r.RecordFailure("ytdlp_subs")
	r.RecordFailure("ytdlp_subs")

	assert.Equal(t, StateClosed, r.State("ytdlp_subs"), "failure count restarts after a success")
}

func TestBreakerRegistryIsolatesMethods(t *testing.T) {
	r := NewBreakerRegistry(1, time.Minute)

	r.RecordFailure("caption_api")
	assert.False(t, r.CanExecute("caption_api"))
	assert.True(t, r.CanExecute("innertube"), "other methods are unaffected")

	snap := r.Snapshot()
	require.Contains(t, snap, "caption_api")
	assert.Equal(t, StateOpen, snap["caption_api"].State)
	assert.Equal(t, 1, snap["caption_api"].Failures)
}
