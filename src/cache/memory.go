package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"papertrader/src/metrics"

	logger "github.com/sirupsen/logrus"
)

type entry struct {
	key      string
	payload  any
	storedAt time.Time
	ttl      time.Duration
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// Memory is an in-process TTL cache. An entry is served while
// now-storedAt <= ttl and evicted on the first lookup after that. When
// maxEntries is exceeded the least recently used entry is dropped.
type Memory struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // front is most recently used
	defaultTTL time.Duration
	maxEntries int
	now        func() time.Time
	metrics    *metrics.Metrics
	log        *logger.Entry
}

type Option func(*Memory)

func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

func WithMaxEntries(n int) Option {
	return func(m *Memory) { m.maxEntries = n }
}

func WithDefaultTTL(ttl time.Duration) Option {
	return func(m *Memory) { m.defaultTTL = ttl }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Memory) { m.metrics = mt }
}

func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		defaultTTL: 5 * time.Minute,
		now:        time.Now,
		log:        logger.WithField("component", "cache"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewMemoryFromConfig applies the env config on top of opts.
func NewMemoryFromConfig(cfg Config, opts ...Option) *Memory {
	base := []Option{WithDefaultTTL(cfg.DefaultTTL), WithMaxEntries(cfg.MaxEntries)}
	return NewMemory(append(base, opts...)...)
}

// Get returns the payload for key while it is fresh.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		m.metrics.CacheLookup("memory", "miss")
		return nil, false
	}
	e := el.Value.(*entry)
	if e.expired(m.now()) {
		m.removeElement(el)
		m.metrics.CacheLookup("memory", "expired")
		return nil, false
	}
	m.order.MoveToFront(el)
	m.metrics.CacheLookup("memory", "hit")
	return e.payload, true
}

// Set stores payload under key. A ttl <= 0 uses the default TTL.
func (m *Memory) Set(key string, payload any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if el, ok := m.items[key]; ok {
		e := el.Value.(*entry)
		e.payload, e.storedAt, e.ttl = payload, now, ttl
		m.order.MoveToFront(el)
		return
	}

	el := m.order.PushFront(&entry{key: key, payload: payload, storedAt: now, ttl: ttl})
	m.items[key] = el

	for m.maxEntries > 0 && m.order.Len() > m.maxEntries {
		oldest := m.order.Back()
		m.log.WithField("key", oldest.Value.(*entry).key).Debug("cache full, evicting least recently used entry")
		m.removeElement(oldest)
	}
}

func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.items[key]; ok {
		m.removeElement(el)
	}
}

// Len counts stored entries, expired ones included until they are evicted.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// SweepExpired removes every expired entry and returns how many were removed.
func (m *Memory) SweepExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*entry).expired(now) {
			m.removeElement(el)
			removed++
		}
		el = next
	}
	return removed
}

// StartSweeper runs SweepExpired every interval until ctx is done.
func (m *Memory) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.SweepExpired(); n > 0 {
					m.log.WithField("removed", n).Debug("swept expired cache entries")
				}
			}
		}
	}()
}

func (m *Memory) removeElement(el *list.Element) {
	m.order.Remove(el)
	delete(m.items, el.Value.(*entry).key)
}

// GetAs is Get with a type assertion; a payload of another type is a miss.
func GetAs[T any](m *Memory, key string) (T, bool) {
	var zero T
	v, ok := m.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
