// Package cache keeps dashboard counters in Redis. A nil *Cache is valid and
// behaves as an always-empty cache, which is what runs when REDIS_ADDR is unset.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const prefix = "portal:count:"

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func ConfigFromEnv() Config {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	ttl := 5 * time.Minute
	if v, err := time.ParseDuration(os.Getenv("REDIS_COUNT_TTL")); err == nil && v > 0 {
		ttl = v
	}
	return Config{Addr: os.Getenv("REDIS_ADDR"), Password: os.Getenv("REDIS_PASSWORD"), DB: db, TTL: ttl}
}

type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// Connect returns nil, nil when no address is configured.
func Connect(ctx context.Context, cfg Config, logger *zap.SugaredLogger) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, cfg.TTL, logger), nil
}

func New(client *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) *Cache {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Client exposes the underlying connection for the rate limiter.
func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// Count returns the cached value of name, computing and storing it on a miss.
// Redis failures are logged and fall through to compute.
func (c *Cache) Count(ctx context.Context, name string, compute func(context.Context) (int, error)) (int, error) {
	if c == nil {
		return compute(ctx)
	}
	key := prefix + name
	v, err := c.client.Get(ctx, key).Int()
	switch {
	case err == nil:
		return v, nil
	case !errors.Is(err, redis.Nil):
		c.logger.Warnw("count cache read failed", "key", key, "err", err)
	}
	n, err := compute(ctx)
	if err != nil {
		return 0, err
	}
	if err := c.client.Set(ctx, key, n, c.ttl).Err(); err != nil {
		c.logger.Warnw("count cache write failed", "key", key, "err", err)
	}
	return n, nil
}

// Invalidate drops the named counters, or every counter when none are named.
func (c *Cache) Invalidate(ctx context.Context, names ...string) {
	if c == nil {
		return
	}
	var keys []string
	if len(names) == 0 {
		iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			c.logger.Warnw("count cache scan failed", "err", err)
			return
		}
	} else {
		for _, n := range names {
			keys = append(keys, prefix+n)
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warnw("count cache invalidate failed", "keys", keys, "err", err)
	}
}
