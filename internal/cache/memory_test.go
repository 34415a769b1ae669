package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)

	_, ok := m.Get(ctx, "transcript:dQw4w9WgXcQ")
	assert.False(t, ok, "empty cache should miss")

	m.Set(ctx, "transcript:dQw4w9WgXcQ", `{"text":"hello"}`, time.Hour)

	value, ok := m.Get(ctx, "transcript:dQw4w9WgXcQ")
	require.True(t, ok)
	assert.Equal(t, `{"text":"hello"}`, value)
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)

	now := time.Now()
	m.now = func() time.Time { return now }

	m.Set(ctx, "trusted_score:abc12345678", "0.75", time.Minute)

	_, ok := m.Get(ctx, "trusted_score:abc12345678")
	require.True(t, ok)

	// Advance past the TTL; the entry must read as a miss and be reaped.
	now = now.Add(2 * time.Minute)
	_, ok = m.Get(ctx, "trusted_score:abc12345678")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)

	now := time.Now()
	m.now = func() time.Time { return now }

	m.Set(ctx, "key", "value", 0)
	now = now.Add(1000 * time.Hour)

	_, ok := m.Get(ctx, "key")
	assert.True(t, ok)
}

func TestMemoryLRUEviction(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)

	m.Set(ctx, "a", "1", 0)
	m.Set(ctx, "b", "2", 0)
	m.Set(ctx, "c", "3", 0)

	// Touch "a" so "b" becomes the least recently used entry.
	_, ok := m.Get(ctx, "a")
	require.True(t, ok)

	m.Set(ctx, "d", "4", 0)

	_, ok = m.Get(ctx, "b")
	assert.False(t, ok, "least recently used entry should be evicted")
	for _, key := range []string{"a", "c", "d"} {
		_, ok := m.Get(ctx, key)
		assert.True(t, ok, "key %s should survive eviction", key)
	}
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)

	m.Set(ctx, "transcript:abc", "cached", time.Hour)
	m.Delete(ctx, "transcript:abc")

	_, ok := m.Get(ctx, "transcript:abc")
	assert.False(t, ok)

	// Deleting a missing key is a no-op.
	m.Delete(ctx, "transcript:missing")
}

func TestMemoryOverwriteKeepsSingleEntry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)

	for i := 0; i < 5; i++ {
		m.Set(ctx, "key", fmt.Sprintf("v%d", i), time.Hour)
	}

	value, ok := m.Get(ctx, "key")
	require.True(t, ok)
	assert.Equal(t, "v4", value)
	assert.Equal(t, 1, m.Len())
}
