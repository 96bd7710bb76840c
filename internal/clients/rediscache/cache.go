package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
)

// Cache is a small JSON cache in front of the popularity and trending
// queries. All methods on a nil *Cache are no-ops, so the server runs
// unchanged when REDIS_ADDR is unset.
type Cache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// New connects to Redis when REDIS_ADDR is set and returns nil otherwise.
func New(log *logger.Logger) (*Cache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}

	ttl := 5 * time.Minute
	if v := strings.TrimSpace(os.Getenv("REDIS_CACHE_TTL")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			ttl = parsed
		}
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Cache{
		log: log.With("service", "RedisCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

// GetJSON loads key into out. Returns false on miss, on any redis error, or
// on a nil cache.
func (c *Cache) GetJSON(ctx context.Context, key string, out any) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("cache get failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.log.Warn("cache decode failed", "key", key, "error", err)
		return false
	}
	return true
}

// SetJSON stores value under key with the configured TTL. Errors are logged
// and swallowed.
func (c *Cache) SetJSON(ctx context.Context, key string, value any) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", "key", key, "error", err)
	}
}

// Invalidate removes keys, ignoring errors.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("cache invalidate failed", "keys", keys, "error", err)
	}
}

// Close releases the underlying connection.
func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
