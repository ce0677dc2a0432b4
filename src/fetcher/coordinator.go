package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"papertrader/src/cache"
	"papertrader/src/connectors"
	"papertrader/src/metrics"

	logger "github.com/sirupsen/logrus"
)

type Source string

const (
	SourceLive     Source = "live"
	SourceCache    Source = "cache"
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
	SourceDemo     Source = "demo"
)

var (
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrSuperseded is returned to a caller whose request was replaced by a
	// newer one for the same key.
	ErrSuperseded = errors.New("request superseded")
)

const fallbackPrefix = "fallback:"

// Request describes one coordinated fetch. Demo is optional; without it a
// failed fetch with no fallback copy ends in ErrDataUnavailable.
type Request[T any] struct {
	Key   string
	TTL   time.Duration
	Fetch func(ctx context.Context) (T, error)
	Demo  func() T
}

type Result[T any] struct {
	Value    T
	Source   Source
	Stale    bool
	Demo     bool
	Attempts int
}

type flight struct {
	cancel     context.CancelFunc
	superseded atomic.Bool
}

// Coordinator sits between callers and market data providers: it serves
// fresh cache entries, retries the network, and degrades to stale or demo
// data instead of failing.
type Coordinator struct {
	cfg     Config
	memory  *cache.Memory
	remote  cache.Remote
	metrics *metrics.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time
	log     *logger.Entry

	mu       sync.Mutex
	inflight map[string]*flight
}

type Option func(*Coordinator)

// WithRemote adds a shared cache tier consulted after the memory cache.
func WithRemote(r cache.Remote) Option {
	return func(c *Coordinator) { c.remote = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithSleep replaces the backoff wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Coordinator) { c.sleep = sleep }
}

func New(cfg Config, memory *cache.Memory, opts ...Option) *Coordinator {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if memory == nil {
		memory = cache.NewMemory()
	}
	c := &Coordinator{
		cfg:      cfg,
		memory:   memory,
		sleep:    sleepCtx,
		now:      time.Now,
		log:      logger.WithField("component", "fetcher"),
		inflight: make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do runs req through cache, remote tier, network with retries, stale
// fallback and demo data, in that order. An unknown coin is reported as is;
// no fallback can answer for an id the provider does not list.
func Do[T any](ctx context.Context, c *Coordinator, req Request[T]) (Result[T], error) {
	start := c.now()
	log := c.log.WithField("key", req.Key)

	if v, ok := cache.GetAs[T](c.memory, req.Key); ok {
		return done(c, start, Result[T]{Value: v, Source: SourceCache}), nil
	}

	if c.remote != nil {
		var v T
		found, left, err := c.remote.Get(ctx, req.Key, &v)
		if err != nil {
			log.WithError(err).Warn("remote cache lookup failed")
		}
		if found {
			// the copy must not outlive the remote entry
			ttl := req.TTL
			if left > 0 && (ttl <= 0 || left < ttl) {
				ttl = left
			}
			c.memory.Set(req.Key, v, ttl)
			return done(c, start, Result[T]{Value: v, Source: SourceRemote}), nil
		}
	}

	flightCtx, fl := c.begin(ctx, req.Key)
	defer c.end(req.Key, fl)

	v, attempts, err := fetch(flightCtx, c, fl, req)
	if err == nil {
		store(ctx, c, req, v)
		return done(c, start, Result[T]{Value: v, Source: SourceLive, Attempts: attempts}), nil
	}
	if fl.superseded.Load() {
		log.Debug("fetch superseded by a newer request")
		return Result[T]{Attempts: attempts}, ErrSuperseded
	}
	if ctx.Err() != nil {
		return Result[T]{Attempts: attempts}, fmt.Errorf("fetch %s: %w", req.Key, ctx.Err())
	}
	if errors.Is(err, connectors.ErrUnknownCoin) {
		c.metrics.FetchResult("unknown", c.now().Sub(start).Seconds())
		return Result[T]{Attempts: attempts}, fmt.Errorf("fetch %s: %w", req.Key, err)
	}

	log.WithError(err).WithField("attempts", attempts).Warn("live fetch failed, degrading")

	if v, ok := cache.GetAs[T](c.memory, fallbackPrefix+req.Key); ok {
		return done(c, start, Result[T]{Value: v, Source: SourceFallback, Stale: true, Attempts: attempts}), nil
	}
	if req.Demo != nil {
		return done(c, start, Result[T]{Value: req.Demo(), Source: SourceDemo, Demo: true, Attempts: attempts}), nil
	}

	c.metrics.FetchResult("unavailable", c.now().Sub(start).Seconds())
	return Result[T]{Attempts: attempts}, fmt.Errorf("%w: %s: %v", ErrDataUnavailable, req.Key, err)
}

// fetch runs the attempts of one flight. Only retryable errors are retried.
func fetch[T any](ctx context.Context, c *Coordinator, fl *flight, req Request[T]) (T, int, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if c.cfg.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		}
		v, err := req.Fetch(attemptCtx)
		cancel()
		if err == nil {
			c.metrics.FetchAttempt("ok")
			return v, attempt, nil
		}
		c.metrics.FetchAttempt("error")
		lastErr = err

		if fl.superseded.Load() || ctx.Err() != nil || !connectors.IsRetryable(err) {
			return zero, attempt, lastErr
		}
		if attempt == c.cfg.Attempts {
			break
		}

		delay := c.backoff(attempt)
		c.log.WithFields(logger.Fields{
			"key":     req.Key,
			"attempt": attempt,
			"delay":   delay.String(),
		}).WithError(err).Debug("fetch attempt failed, retrying")
		if err := c.sleep(ctx, delay); err != nil {
			return zero, attempt, lastErr
		}
	}
	return zero, c.cfg.Attempts, lastErr
}

func store[T any](ctx context.Context, c *Coordinator, req Request[T], v T) {
	c.memory.Set(req.Key, v, req.TTL)
	c.memory.Set(fallbackPrefix+req.Key, v, c.cfg.StaleTTL)
	if c.remote == nil {
		return
	}
	if err := c.remote.Set(ctx, req.Key, v, req.TTL); err != nil {
		c.log.WithError(err).WithField("key", req.Key).Warn("remote cache write failed")
	}
}

func done[T any](c *Coordinator, start time.Time, r Result[T]) Result[T] {
	c.metrics.FetchResult(string(r.Source), c.now().Sub(start).Seconds())
	return r
}

// backoff is BaseDelay doubled per failed attempt, capped at MaxDelay.
func (c *Coordinator) backoff(attempt int) time.Duration {
	d := c.cfg.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if c.cfg.MaxDelay > 0 && d >= c.cfg.MaxDelay {
			return c.cfg.MaxDelay
		}
	}
	if c.cfg.MaxDelay > 0 && d > c.cfg.MaxDelay {
		return c.cfg.MaxDelay
	}
	return d
}

// begin registers a flight for key, cancelling the one it replaces.
func (c *Coordinator) begin(ctx context.Context, key string) (context.Context, *flight) {
	flightCtx, cancel := context.WithCancel(ctx)
	fl := &flight{cancel: cancel}

	c.mu.Lock()
	if prev, ok := c.inflight[key]; ok {
		prev.superseded.Store(true)
		prev.cancel()
	}
	c.inflight[key] = fl
	c.mu.Unlock()
	return flightCtx, fl
}

func (c *Coordinator) end(key string, fl *flight) {
	c.mu.Lock()
	if c.inflight[key] == fl {
		delete(c.inflight, key)
	}
	c.mu.Unlock()
	fl.cancel()
}

// InFlight reports how many keys currently have a live fetch.
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
