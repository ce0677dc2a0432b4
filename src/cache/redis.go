package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"papertrader/src/metrics"

	goredis "github.com/go-redis/redis/v8"
	logger "github.com/sirupsen/logrus"
)

// Remote is a shared cache tier that outlives the process.
type Remote interface {
	// Get decodes the stored payload into dst. found is false on a miss.
	// ttl is the remaining lifetime of the entry, zero when it never expires.
	Get(ctx context.Context, key string, dst any) (found bool, ttl time.Duration, err error)
	Set(ctx context.Context, key string, payload any, ttl time.Duration) error
}

// RedisStore keeps JSON encoded payloads in Redis with a native expiry.
type RedisStore struct {
	client  *goredis.Client
	prefix  string
	metrics *metrics.Metrics
	log     *logger.Entry
}

// NewRedisStore connects and pings the server. It returns nil, nil when no
// address is configured.
func NewRedisStore(ctx context.Context, cfg Config, mt *metrics.Metrics) (*RedisStore, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}

	logger.WithField("addr", cfg.RedisAddr).Info("[cache] redis tier connected")
	return NewRedisStoreWithClient(client, cfg.RedisPrefix, mt), nil
}

func NewRedisStoreWithClient(client *goredis.Client, prefix string, mt *metrics.Metrics) *RedisStore {
	return &RedisStore{
		client:  client,
		prefix:  prefix,
		metrics: mt,
		log:     logger.WithField("component", "cache_redis"),
	}
}

func (r *RedisStore) Get(ctx context.Context, key string, dst any) (bool, time.Duration, error) {
	var (
		get  *goredis.StringCmd
		pttl *goredis.DurationCmd
	)
	_, err := r.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		get = p.Get(ctx, r.prefix+key)
		pttl = p.PTTL(ctx, r.prefix+key)
		return nil
	})
	if errors.Is(get.Err(), goredis.Nil) {
		r.metrics.CacheLookup("redis", "miss")
		return false, 0, nil
	}
	if err != nil {
		r.metrics.CacheLookup("redis", "error")
		return false, 0, fmt.Errorf("redis get %s: %w", key, err)
	}
	raw, err := get.Bytes()
	if err != nil {
		r.metrics.CacheLookup("redis", "error")
		return false, 0, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		r.metrics.CacheLookup("redis", "error")
		return false, 0, fmt.Errorf("decode cached %s: %w", key, err)
	}

	// PTTL answers -1 (no expiry) or -2 (gone) as raw negative durations.
	left := pttl.Val()
	if left < 0 {
		left = 0
	}
	r.metrics.CacheLookup("redis", "hit")
	return true, left, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, payload any, ttl time.Duration) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode cached %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
