package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"

	"tour-booking-api/internal/config"
)

func TestDisabledCache(t *testing.T) {
	c := New(context.Background(), config.RedisConfig{})
	assert.False(t, c.Enabled())

	c.Set(context.Background(), "k", map[string]int{"a": 1})
	var out map[string]int
	assert.False(t, c.Get(context.Background(), "k", &out))
	c.DeletePattern(context.Background(), "*")
	assert.NoError(t, c.Close())
}

func TestInvalidURLDisablesCache(t *testing.T) {
	c := New(context.Background(), config.RedisConfig{URL: "not-a-redis-url"})
	assert.False(t, c.Enabled())
}

func TestUnreachableServerDisablesCache(t *testing.T) {
	c := New(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.False(t, c.Enabled())
}

func TestReadErrorsAreMisses(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	c := NewWithClient(client, time.Minute)
	defer c.Close()
	assert.True(t, c.Enabled())

	var out []string
	assert.False(t, c.Get(context.Background(), "stats", &out))
	c.Set(context.Background(), "stats", []string{"x"})
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *Cache
	assert.False(t, c.Enabled())
	var out int
	assert.False(t, c.Get(context.Background(), "k", &out))
}
