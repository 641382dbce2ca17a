package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter per key. A limiter without a client
// allows everything.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

// Allow records one hit for key and reports whether it is within the limit.
// Redis errors allow the request.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	if rl == nil || rl.client == nil {
		return true
	}
	key = "portal:rl:" + key
	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		rl.client.Expire(ctx, key, rl.window)
	}
	return count <= rl.limit
}

func (rl *RateLimiter) Window() time.Duration {
	if rl == nil {
		return 0
	}
	return rl.window
}
