package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"papertrader/src/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestMemory_TTLBoundary(t *testing.T) {
	clock := newClock()
	c := NewMemory(WithClock(clock.Now))

	c.Set("history:bitcoin:30", "payload", 1000*time.Millisecond)

	clock.Advance(999 * time.Millisecond)
	v, ok := c.Get("history:bitcoin:30")
	require.True(t, ok)
	assert.Equal(t, "payload", v)

	clock.Advance(2 * time.Millisecond)
	v, ok = c.Get("history:bitcoin:30")
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, 0, c.Len(), "expired entry should be evicted on lookup")
}

func TestMemory_ExactTTLIsStillFresh(t *testing.T) {
	clock := newClock()
	c := NewMemory(WithClock(clock.Now))
	c.Set("k", 1, time.Second)

	clock.Advance(time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestMemory_PerCallTTL(t *testing.T) {
	clock := newClock()
	c := NewMemory(WithClock(clock.Now))

	c.Set("market:bitcoin", "m", time.Minute)
	c.Set("history:bitcoin:30", "h", 5*time.Minute)

	clock.Advance(2 * time.Minute)
	_, ok := c.Get("market:bitcoin")
	assert.False(t, ok)
	_, ok = c.Get("history:bitcoin:30")
	assert.True(t, ok)
}

func TestMemory_DefaultTTLWhenZero(t *testing.T) {
	clock := newClock()
	c := NewMemory(WithClock(clock.Now), WithDefaultTTL(10*time.Second))
	c.Set("k", "v", 0)

	clock.Advance(10 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestMemory_SetRefreshesStoredAt(t *testing.T) {
	clock := newClock()
	c := NewMemory(WithClock(clock.Now))
	c.Set("k", "old", time.Second)

	clock.Advance(800 * time.Millisecond)
	c.Set("k", "new", time.Second)
	clock.Advance(800 * time.Millisecond)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", v)
	assert.Equal(t, 1, c.Len())
}

func TestMemory_LRUEviction(t *testing.T) {
	c := NewMemory(WithMaxEntries(2))
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	// touch a so b becomes least recently used
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3, time.Minute)

	assert.Equal(t, 2, c.Len())
	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestMemory_SweepExpired(t *testing.T) {
	clock := newClock()
	c := NewMemory(WithClock(clock.Now))
	c.Set("short1", 1, time.Second)
	c.Set("short2", 2, time.Second)
	c.Set("long", 3, time.Hour)

	assert.Equal(t, 0, c.SweepExpired())

	clock.Advance(2 * time.Second)
	assert.Equal(t, 2, c.SweepExpired())
	assert.Equal(t, 1, c.Len())
}

func TestMemory_StartSweeper(t *testing.T) {
	clock := newClock()
	c := NewMemory(WithClock(clock.Now))
	c.Set("k", 1, time.Second)
	clock.Advance(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartSweeper(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemory_Delete(t *testing.T) {
	c := NewMemory()
	c.Set("k", 1, time.Minute)
	c.Delete("k")
	c.Delete("missing")
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestGetAs(t *testing.T) {
	c := NewMemory()
	c.Set("n", 42, time.Minute)

	n, ok := GetAs[int](c, "n")
	require.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = GetAs[string](c, "n")
	assert.False(t, ok, "type mismatch is a miss")

	_, ok = GetAs[int](c, "absent")
	assert.False(t, ok)
}

func TestMemory_RecordsLookups(t *testing.T) {
	clock := newClock()
	m := metrics.New(nil)
	c := NewMemory(WithClock(clock.Now), WithMetrics(m))

	c.Get("k")
	c.Set("k", 1, time.Second)
	c.Get("k")
	clock.Advance(2 * time.Second)
	c.Get("k")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("memory", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("memory", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("memory", "expired")))
}

func TestNewMemoryFromConfig(t *testing.T) {
	t.Setenv("CACHE_MAX_ENTRIES", "1")
	c := NewMemoryFromConfig(GetConfig())
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	assert.Equal(t, 1, c.Len())
}
