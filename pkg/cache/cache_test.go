package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) Cache[string] {
	t.Helper()
	c, err := NewTTL[string](context.Background(), ttl, 10*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBasicOperations(t *testing.T) {
	c := newTestCache(t, time.Minute)

	_, exists := c.Get("key1")
	assert.False(t, exists)

	isNew, err := c.Set("key1", "value1")
	require.NoError(t, err)
	assert.True(t, isNew)

	value, exists := c.Get("key1")
	assert.True(t, exists)
	assert.Equal(t, "value1", value)

	isNew, err = c.Set("key1", "value1_updated")
	require.NoError(t, err)
	assert.False(t, isNew)

	value, _ = c.Get("key1")
	assert.Equal(t, "value1_updated", value)

	deleted, err := c.Delete("key1")
	require.NoError(t, err)
	assert.True(t, deleted)

	// Deleting an absent key is a no-op
	deleted, err = c.Delete("key1")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, exists = c.Get("key1")
	assert.False(t, exists)
}

func TestKeyValidation(t *testing.T) {
	c := newTestCache(t, time.Minute)

	_, err := c.Set("", "value")
	assert.Error(t, err)

	_, err = c.Delete("")
	assert.Error(t, err)
}

func TestExpiry(t *testing.T) {
	c := newTestCache(t, 20*time.Millisecond)

	_, err := c.Set("key1", "value1")
	require.NoError(t, err)

	value, exists := c.Get("key1")
	require.True(t, exists)
	assert.Equal(t, "value1", value)

	time.Sleep(30 * time.Millisecond)

	_, exists = c.Get("key1")
	assert.False(t, exists, "entry should be logically absent after expiry")
}

func TestSetWithTTLOverride(t *testing.T) {
	c := newTestCache(t, time.Minute)

	_, err := c.SetWithTTL("short", "v", 20*time.Millisecond)
	require.NoError(t, err)
	_, err = c.Set("long", "v")
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, exists := c.Get("short")
	assert.False(t, exists)
	_, exists = c.Get("long")
	assert.True(t, exists)
}

func TestBackgroundSweep(t *testing.T) {
	c := newTestCache(t, 15*time.Millisecond)

	for i := 0; i < 5; i++ {
		_, err := c.Set(fmt.Sprintf("key%d", i), "v")
		require.NoError(t, err)
	}
	assert.Equal(t, 5, c.Size())

	// Sweep interval is 10ms; all entries expire at 15ms
	assert.Eventually(t, func() bool {
		return c.Size() == 0
	}, time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, c.Stats().Evictions(), int64(5))
}

func TestKeysExcludesExpired(t *testing.T) {
	c := newTestCache(t, time.Minute)

	_, _ = c.SetWithTTL("expired", "v", 10*time.Millisecond)
	_, _ = c.Set("live", "v")

	time.Sleep(15 * time.Millisecond)

	keys := c.Keys()
	assert.Contains(t, keys, "live")
	assert.NotContains(t, keys, "expired")
}

func TestClear(t *testing.T) {
	c := newTestCache(t, time.Minute)

	_, _ = c.Set("a", "1")
	_, _ = c.Set("b", "2")
	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Size())
}

func TestStatsTracking(t *testing.T) {
	c := newTestCache(t, time.Minute)

	_, _ = c.Set("key1", "v")
	_, _ = c.Get("key1")
	_, _ = c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits())
	assert.Equal(t, int64(1), stats.Misses())
	assert.Equal(t, int64(1), stats.Sets())
	assert.InDelta(t, 0.5, stats.HitRate(), 0.001)
}

func TestEvictCallback(t *testing.T) {
	var mu sync.Mutex
	evicted := make(map[string]string)

	c, err := NewTTL[string](context.Background(), time.Minute, 10*time.Millisecond,
		WithEvictCallback[string](func(key, value string) {
			mu.Lock()
			evicted[key] = value
			mu.Unlock()
		}))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, _ = c.Set("key1", "value1")
	_, _ = c.Delete("key1")

	mu.Lock()
	assert.Equal(t, "value1", evicted["key1"])
	mu.Unlock()
}

func TestMetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewTTL[string](context.Background(), time.Minute, 10*time.Millisecond,
		WithMetrics[string](reg, "test_cache"))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, _ = c.Set("key1", "v")
	_, _ = c.Get("key1")

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_cache_hits_total")
	assert.Contains(t, names, "test_cache_sets_total")
}

func TestConcurrentAccess(t *testing.T) {
	c := newTestCache(t, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key%d", j%10)
				_, _ = c.Set(key, "v")
				_, _ = c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, c.Size())
}

func TestContextCancellationStopsCleanup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c, err := NewTTL[string](ctx, time.Minute, 10*time.Millisecond)
	require.NoError(t, err)

	cancel()
	// Close must not block once the cleanup goroutine has exited
	assert.NoError(t, c.Close())
}
