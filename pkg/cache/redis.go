package cache

import (
	"context"
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the remote key-value backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	UseTLS   bool
}

// Redis is the remote key-value cache backend. Expiration is delegated to
// the store's own TTL (SETEX semantics); storage errors are swallowed so the
// search layer degrades to a cache miss.
type Redis struct {
	client  *redis.Client
	metrics *Metrics
	logger  *slog.Logger
}

// NewRedis creates a Redis cache backend.
func NewRedis(cfg RedisConfig) *Redis {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &Redis{
		client:  redis.NewClient(opts),
		metrics: &Metrics{},
		logger:  slog.Default().With("component", "cache", "backend", "redis"),
	}
}

// Get returns the cached value if present.
func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("cache get failed", "key", key, "error", err)
		}
		r.metrics.misses.Add(1)
		return "", false
	}
	r.metrics.hits.Add(1)
	return value, true
}

// Set stores value with the store-side TTL.
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := r.client.SetEx(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Metrics returns the cache's counters.
func (r *Redis) Metrics() MetricsSnapshot { return r.metrics.Snapshot() }

// Close releases the underlying connection pool.
func (r *Redis) Close() error { return r.client.Close() }
