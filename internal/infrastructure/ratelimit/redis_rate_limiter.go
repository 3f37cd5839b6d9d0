package ratelimit

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/orbitcart/auth-service/internal/config"
)

// RedisRateLimiter implements a fixed-window counter per key. The first hit
// in a window creates the counter with the window as its TTL; the counter
// expiring resets the window.
type RedisRateLimiter struct {
	client *redis.Client
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

// Allow reports whether the caller identified by key is within rule's limit.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string, rule config.RateLimitRule) (bool, error) {
	if !rule.Enabled || rule.Limit <= 0 {
		return true, nil
	}

	redisKey := fmt.Sprintf("auth:ratelimit:%s", key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("rate limiter incr failed: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, rule.Window).Err(); err != nil {
			return false, fmt.Errorf("rate limiter expire failed: %w", err)
		}
	}

	return count <= int64(rule.Limit), nil
}
