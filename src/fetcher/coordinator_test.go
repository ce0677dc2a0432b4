package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"papertrader/src/cache"
	"papertrader/src/connectors"
	"papertrader/src/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return nil
}

func newTestCoordinator(t *testing.T, opts ...Option) (*Coordinator, *fakeClock, *sleepRecorder) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rec := &sleepRecorder{}
	mem := cache.NewMemory(cache.WithClock(clock.Now))
	c := New(DefaultConfig(), mem, append([]Option{WithSleep(rec.sleep)}, opts...)...)
	return c, clock, rec
}

func TestDo_LiveThenCache(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	var calls int32
	req := Request[float64]{
		Key: "market:bitcoin",
		TTL: time.Minute,
		Fetch: func(context.Context) (float64, error) {
			atomic.AddInt32(&calls, 1)
			return 42000, nil
		},
	}

	res, err := Do(context.Background(), c, req)
	require.NoError(t, err)
	assert.Equal(t, SourceLive, res.Source)
	assert.Equal(t, 42000.0, res.Value)
	assert.Equal(t, 1, res.Attempts)
	assert.False(t, res.Demo)

	res, err = Do(context.Background(), c, req)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, 42000.0, res.Value)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_RetriesWithBackoff(t *testing.T) {
	c, _, rec := newTestCoordinator(t)
	var calls int32
	res, err := Do(context.Background(), c, Request[string]{
		Key: "history:bitcoin:30",
		TTL: time.Minute,
		Fetch: func(context.Context) (string, error) {
			if atomic.AddInt32(&calls, 1) < 3 {
				return "", &connectors.HTTPError{Provider: "test", Status: 503}
			}
			return "ok", nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Value)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, rec.delays)
}

func TestDo_NonRetryableStopsEarly(t *testing.T) {
	c, _, rec := newTestCoordinator(t)
	var calls int32
	_, err := Do(context.Background(), c, Request[int]{
		Key: "history:nope:30",
		Fetch: func(context.Context) (int, error) {
			atomic.AddInt32(&calls, 1)
			return 0, connectors.ErrDecode
		},
	})
	require.ErrorIs(t, err, ErrDataUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, rec.delays)
}

func TestDo_UnknownCoinSkipsFallbacks(t *testing.T) {
	c, clock, rec := newTestCoordinator(t)
	fail := false
	req := Request[int]{
		Key: "history:dogecoin:7",
		TTL: time.Minute,
		Fetch: func(context.Context) (int, error) {
			if fail {
				return 0, fmt.Errorf("coingecko: %w", connectors.ErrUnknownCoin)
			}
			return 5, nil
		},
		Demo: func() int { return 1 },
	}

	_, err := Do(context.Background(), c, req)
	require.NoError(t, err)

	// a stale copy and demo data exist, neither answers for a delisted id
	clock.Advance(2 * time.Minute)
	fail = true
	res, err := Do(context.Background(), c, req)
	require.ErrorIs(t, err, connectors.ErrUnknownCoin)
	assert.NotErrorIs(t, err, ErrDataUnavailable)
	assert.False(t, res.Demo)
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, rec.delays)
}

func TestDo_StaleFallback(t *testing.T) {
	c, clock, _ := newTestCoordinator(t)
	fail := false
	req := Request[float64]{
		Key: "market:ethereum",
		TTL: time.Minute,
		Fetch: func(context.Context) (float64, error) {
			if fail {
				return 0, errors.New("connection refused")
			}
			return 3000, nil
		},
		Demo: func() float64 { return 1 },
	}

	_, err := Do(context.Background(), c, req)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	fail = true

	res, err := Do(context.Background(), c, req)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.True(t, res.Stale)
	assert.False(t, res.Demo)
	assert.Equal(t, 3000.0, res.Value)
	assert.Equal(t, 3, res.Attempts)
}

func TestDo_DemoWhenNothingElse(t *testing.T) {
	m := metrics.New(nil)
	c, _, _ := newTestCoordinator(t, WithMetrics(m))
	res, err := Do(context.Background(), c, Request[[]float64]{
		Key: "history:solana:30",
		Fetch: func(context.Context) ([]float64, error) {
			return nil, &connectors.HTTPError{Status: 429}
		},
		Demo: func() []float64 { return []float64{1, 2, 3} },
	})
	require.NoError(t, err)
	assert.Equal(t, SourceDemo, res.Source)
	assert.True(t, res.Demo)
	assert.Equal(t, []float64{1, 2, 3}, res.Value)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.FetchAttempts.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchResults.WithLabelValues("demo")))

	// demo data is not cached, the next call goes to the network again
	var calls int32
	res, err = Do(context.Background(), c, Request[[]float64]{
		Key: "history:solana:30",
		Fetch: func(context.Context) ([]float64, error) {
			atomic.AddInt32(&calls, 1)
			return []float64{9}, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, SourceLive, res.Source)
	assert.Equal(t, int32(1), calls)
}

func TestDo_Unavailable(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	_, err := Do(context.Background(), c, Request[int]{
		Key:   "market:x",
		Fetch: func(context.Context) (int, error) { return 0, errors.New("boom") },
	})
	require.ErrorIs(t, err, ErrDataUnavailable)
	assert.Contains(t, err.Error(), "boom")
}

func TestDo_PerAttemptTimeout(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	c.cfg.Timeout = 20 * time.Millisecond
	c.cfg.Attempts = 2

	res, err := Do(context.Background(), c, Request[int]{
		Key: "market:slow",
		Fetch: func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		},
		Demo: func() int { return 7 },
	})
	require.NoError(t, err)
	assert.Equal(t, SourceDemo, res.Source)
	assert.Equal(t, 2, res.Attempts)
}

func TestDo_Superseded(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	started := make(chan struct{})

	type outcome struct {
		res Result[int]
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := Do(context.Background(), c, Request[int]{
			Key: "market:bitcoin",
			Fetch: func(ctx context.Context) (int, error) {
				close(started)
				<-ctx.Done()
				return 0, ctx.Err()
			},
			Demo: func() int { return -1 },
		})
		first <- outcome{res, err}
	}()
	<-started

	res, err := Do(context.Background(), c, Request[int]{
		Key:   "market:bitcoin",
		Fetch: func(context.Context) (int, error) { return 2, nil },
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Value)

	select {
	case out := <-first:
		assert.ErrorIs(t, out.err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded request did not return")
	}
	assert.Equal(t, 0, c.InFlight())
}

func TestDo_CallerCancelled(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, c, Request[int]{
		Key:   "market:bitcoin",
		Fetch: func(ctx context.Context) (int, error) { return 0, ctx.Err() },
		Demo:  func() int { return 1 },
	})
	require.ErrorIs(t, err, context.Canceled)
}

type mapRemote struct {
	mu   sync.Mutex
	data map[string]any
	left map[string]time.Duration
}

func (m *mapRemote) Get(_ context.Context, key string, dst any) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return false, 0, nil
	}
	*(dst.(*float64)) = v.(float64)
	return true, m.left[key], nil
}

func (m *mapRemote) Set(_ context.Context, key string, payload any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = payload
	return nil
}

func TestDo_RemoteTier(t *testing.T) {
	remote := &mapRemote{data: map[string]any{"market:cardano": 0.45}}
	c, _, _ := newTestCoordinator(t, WithRemote(remote))

	res, err := Do(context.Background(), c, Request[float64]{
		Key: "market:cardano",
		Fetch: func(context.Context) (float64, error) {
			t.Fatal("network must not be called on a remote hit")
			return 0, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, 0.45, res.Value)

	_, err = Do(context.Background(), c, Request[float64]{
		Key:   "market:ripple",
		Fetch: func(context.Context) (float64, error) { return 0.6, nil },
	})
	require.NoError(t, err)
	assert.Equal(t, 0.6, remote.data["market:ripple"])
}

func TestDo_RemoteHitKeepsRemainingTTL(t *testing.T) {
	remote := &mapRemote{
		data: map[string]any{"market:solana": 150.0},
		left: map[string]time.Duration{"market:solana": time.Second},
	}
	c, clock, _ := newTestCoordinator(t, WithRemote(remote))
	var calls int32
	req := Request[float64]{
		Key: "market:solana",
		TTL: time.Minute,
		Fetch: func(context.Context) (float64, error) {
			atomic.AddInt32(&calls, 1)
			return 151, nil
		},
	}

	res, err := Do(context.Background(), c, req)
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, res.Source)

	// the remote entry expires after one second; so does the local copy
	remote.mu.Lock()
	delete(remote.data, "market:solana")
	remote.mu.Unlock()
	clock.Advance(2 * time.Second)

	res, err = Do(context.Background(), c, req)
	require.NoError(t, err)
	assert.Equal(t, SourceLive, res.Source)
	assert.Equal(t, 151.0, res.Value)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_RemoteHitWithoutExpiryUsesRequestTTL(t *testing.T) {
	remote := &mapRemote{data: map[string]any{"market:cardano": 0.45}}
	c, clock, _ := newTestCoordinator(t, WithRemote(remote))
	req := Request[float64]{
		Key:   "market:cardano",
		TTL:   time.Minute,
		Fetch: func(context.Context) (float64, error) { return 0.5, nil },
	}

	_, err := Do(context.Background(), c, req)
	require.NoError(t, err)

	remote.mu.Lock()
	delete(remote.data, "market:cardano")
	remote.mu.Unlock()
	clock.Advance(30 * time.Second)

	res, err := Do(context.Background(), c, req)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, 0.45, res.Value)
}

func TestBackoff(t *testing.T) {
	c := New(Config{Attempts: 6, BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}, nil)
	assert.Equal(t, 500*time.Millisecond, c.backoff(1))
	assert.Equal(t, time.Second, c.backoff(2))
	assert.Equal(t, 4*time.Second, c.backoff(4))
	assert.Equal(t, 8*time.Second, c.backoff(5))
	assert.Equal(t, 8*time.Second, c.backoff(9))
}
