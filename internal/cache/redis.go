// Package cache is a JSON read-through cache on Redis. A Cache without a
// client is disabled: reads miss and writes are dropped.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"tour-booking-api/internal/config"
	"tour-booking-api/internal/logger"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// New connects to Redis using REDIS_URL or, failing that, REDIS_ADDR. When
// neither is set or the server does not answer, the cache is disabled and
// the API keeps working against the database alone.
func New(ctx context.Context, cfg config.RedisConfig) *Cache {
	c := &Cache{ttl: cfg.CacheTTL(), prefix: "tour-booking:"}

	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			logger.Warn("Invalid REDIS_URL, cache disabled", zap.Error(err), zap.String("event", "cache_disabled"))
			return c
		}
		opts = parsed
	case cfg.Addr != "":
		opts = &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	default:
		logger.Info("Redis not configured, cache disabled", zap.String("event", "cache_disabled"))
		return c
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unreachable, cache disabled", zap.Error(err), zap.String("event", "cache_disabled"))
		_ = client.Close()
		return c
	}

	logger.Info("Connected to Redis", zap.String("addr", opts.Addr), zap.String("event", "cache_connected"))
	c.client = client
	return c
}

// NewWithClient wraps an existing client. A nil client gives a disabled cache.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl, prefix: "tour-booking:"}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get decodes the value stored at key into dst. It reports false on a miss,
// on a disabled cache and on any Redis error.
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	if !c.Enabled() {
		return false
	}
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logger.Warn("Cache entry undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores value at key for the configured TTL. Failures are logged, never returned.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if !c.Enabled() {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Cache entry unencodable", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// DeletePattern removes every key matching pattern, e.g. "stats:*".
func (c *Cache) DeletePattern(ctx context.Context, pattern string) {
	if !c.Enabled() {
		return
	}
	iter := c.client.Scan(ctx, 0, c.prefix+pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Warn("Cache scan failed", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("Cache delete failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
