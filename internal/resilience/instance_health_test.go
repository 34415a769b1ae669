package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceDemotedAfterConsecutiveFailures(t *testing.T) {
	r := NewInstanceHealthRegistry(3, 600*time.Second)
	url := "https://yewtu.be"

	r.RecordFailure(url)
	r.RecordFailure(url)
	assert.True(t, r.IsHealthy(url))

	r.RecordFailure(url)
	assert.False(t, r.IsHealthy(url))
}

func TestInstanceSuccessResetsFailureStreak(t *testing.T) {
	r := NewInstanceHealthRegistry(3, 600*time.Second)
	url := "https://pipedapi.kavin.rocks"

	r.RecordFailure(url)
	r.RecordFailure(url)
	r.RecordSuccess(url)
	r.RecordFailure(url)
	r.RecordFailure(url)

	assert.True(t, r.IsHealthy(url), "intervening success breaks the streak")
}

func TestInstanceAutoReactivation(t *testing.T) {
	r := NewInstanceHealthRegistry(2, 600*time.Second)
	now := time.Now()
	r.now = func() time.Time { return now }
	url := "https://inv.nadeko.net"

	r.RecordFailure(url)
	r.RecordFailure(url)
	require.False(t, r.IsHealthy(url))

	now = now.Add(601 * time.Second)
	assert.True(t, r.IsHealthy(url), "re-check interval elapsed reactivates the instance")
}

func TestHealthyFirstOrdering(t *testing.T) {
	r := NewInstanceHealthRegistry(1, time.Hour)
	r.shuffle = func(n int, swap func(i, j int)) {} // deterministic order for the test

	urls := []string{"https://a.example", "https://b.example", "https://c.example"}
	r.RecordFailure("https://b.example")

	ordered := r.HealthyFirst(urls)
	require.Len(t, ordered, 3)
	assert.Equal(t, []string{"https://a.example", "https://c.example", "https://b.example"}, ordered)
}
