package health

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"context deadline exceeded", ErrClassTimeout},
		{"request timeout after 35s", ErrClassTimeout},
		{"HTTP 429 Too Many Requests", ErrClassRateLimit},
		{"rate limited by upstream", ErrClassRateLimit},
		{"HTTP 403 Forbidden", ErrClassBlocked},
		{"request blocked by YouTube", ErrClassBlocked},
		{"video not found", ErrClassNotFound},
		{"HTTP 404", ErrClassNotFound},
		{"no transcript for video", ErrClassNoTranscript},
		{"no caption tracks in watch page", ErrClassNoTranscript},
		{"connection refused", ErrClassNetwork},
		{"dns lookup failed", ErrClassNetwork},
		{"something odd happened", ErrClassOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyError(tt.msg), "message %q", tt.msg)
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrClassNetwork))
	assert.True(t, IsTransient(ErrClassTimeout))
	assert.False(t, IsTransient(ErrClassNotFound))
	assert.False(t, IsTransient(ErrClassNoTranscript))
	assert.False(t, IsTransient(ErrClassBlocked))
}

func TestRecordAttemptCounters(t *testing.T) {
	m := NewMonitor(slog.Default())

	m.RecordAttempt("watch_page", true, 1200*time.Millisecond, "")
	m.RecordAttempt("watch_page", false, 400*time.Millisecond, "HTTP 429")
	m.RecordAttempt("watch_page", false, 300*time.Millisecond, "connection reset")

	snap := m.Snapshot()
	s := snap["watch_page"]
	assert.Equal(t, int64(1), s.Success)
	assert.Equal(t, int64(2), s.Failure)
	assert.Equal(t, int64(1900), s.TotalTimeMs)
	assert.Equal(t, int64(1), s.ErrorTypes[ErrClassRateLimit])
	assert.Equal(t, int64(1), s.ErrorTypes[ErrClassNetwork])
	assert.False(t, s.LastSuccessAt.IsZero())
	assert.False(t, s.LastFailureAt.IsZero())
}

func TestMethodPriorityOrdering(t *testing.T) {
	m := NewMonitor(slog.Default())
	now := time.Now()
	m.now = func() time.Time { return now }

	// fast and reliable
	for i := 0; i < 10; i++ {
		m.RecordAttempt("caption_api", true, 500*time.Millisecond, "")
	}
	// reliable but slow
	for i := 0; i < 10; i++ {
		m.RecordAttempt("ytdlp_subs", true, 9*time.Second, "")
	}
	// unreliable
	for i := 0; i < 5; i++ {
		m.RecordAttempt("piped", false, time.Second, "HTTP 403")
	}

	// Move past the recent-failure penalty window so ordering reflects
	// steady-state scores only.
	now = now.Add(10 * time.Minute)

	order := m.MethodPriority()
	require.Len(t, order, 3)
	assert.Equal(t, "caption_api", order[0])
	assert.Equal(t, "ytdlp_subs", order[1])
	assert.Equal(t, "piped", order[2])
}

func TestMethodPriorityRecentFailurePenalty(t *testing.T) {
	m := NewMonitor(slog.Default())
	now := time.Now()
	m.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		m.RecordAttempt("innertube", true, time.Second, "")
		m.RecordAttempt("watch_page", true, time.Second, "")
	}
	// One fresh failure should push watch_page below innertube despite
	// nearly identical stats.
	m.RecordAttempt("watch_page", false, time.Second, "timeout")

	order := m.MethodPriority()
	assert.Equal(t, "innertube", order[0])
	assert.Equal(t, "watch_page", order[1])
}

func TestMethodPriorityCached(t *testing.T) {
	m := NewMonitor(slog.Default())
	now := time.Now()
	m.now = func() time.Time { return now }

	m.RecordAttempt("a", true, time.Second, "")
	first := m.MethodPriority()

	// Mutating the clock without new data keeps the cached order until the
	// five-minute window lapses.
	now = now.Add(time.Minute)
	assert.Equal(t, first, m.MethodPriority())
}

func TestMethodPriorityCacheHoldsUnderTraffic(t *testing.T) {
	m := NewMonitor(slog.Default())
	now := time.Now()
	m.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		m.RecordAttempt("caption_api", true, 500*time.Millisecond, "")
		m.RecordAttempt("watch_page", true, 2*time.Second, "")
	}
	first := m.MethodPriority()
	require.Equal(t, "caption_api", first[0])

	// A burst of failures inside the cache window must not reorder.
	for i := 0; i < 20; i++ {
		m.RecordAttempt("caption_api", false, time.Second, "HTTP 429")
	}
	now = now.Add(4 * time.Minute)
	assert.Equal(t, first, m.MethodPriority())

	// Once the window lapses the ranking reflects the failures.
	now = now.Add(2 * time.Minute)
	recomputed := m.MethodPriority()
	assert.Equal(t, "watch_page", recomputed[0])
}

func TestSortByPriority(t *testing.T) {
	m := NewMonitor(slog.Default())
	now := time.Now()
	m.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		m.RecordAttempt("ytdlp_auto_subs", true, time.Second, "")
	}
	for i := 0; i < 10; i++ {
		m.RecordAttempt("ytdlp_subs", false, time.Second, "blocked")
	}
	now = now.Add(10 * time.Minute)

	sorted := m.SortByPriority([]string{"ytdlp_subs", "ytdlp_auto_subs", "unseen_method"})
	assert.Equal(t, []string{"ytdlp_auto_subs", "ytdlp_subs", "unseen_method"}, sorted)
}

func TestExportImportRoundTrip(t *testing.T) {
	m := NewMonitor(slog.Default())
	m.RecordAttempt("invidious", true, 2*time.Second, "")
	m.RecordAttempt("invidious", false, time.Second, "HTTP 429")
	m.RecordAttempt("piped", false, 3*time.Second, "no transcript")

	data, err := m.Export()
	require.NoError(t, err)

	restored := NewMonitor(slog.Default())
	require.NoError(t, restored.Import(data))

	want := m.Snapshot()
	got := restored.Snapshot()
	require.Len(t, got, len(want))
	for method, w := range want {
		g := got[method]
		assert.Equal(t, w.Success, g.Success, method)
		assert.Equal(t, w.Failure, g.Failure, method)
		assert.Equal(t, w.TotalTimeMs, g.TotalTimeMs, method)
		assert.Equal(t, w.ErrorTypes, g.ErrorTypes, method)
		// Timestamps survive serialization to the nanosecond; compare on
		// the wall clock since JSON drops the monotonic reading.
		assert.True(t, w.LastSuccessAt.Equal(g.LastSuccessAt), method)
		assert.True(t, w.LastFailureAt.Equal(g.LastFailureAt), method)
	}
}

func TestReset(t *testing.T) {
	m := NewMonitor(slog.Default())
	m.RecordAttempt("invidious", true, time.Second, "")
	m.Reset()
	assert.Empty(t, m.Snapshot())
}
