package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-churiwal/hackathon-portal/internal/storage"
)

// RedisLimiter is the fixed-window limiter shared by every instance that
// points at the same Redis. The first INCR of a token opens its window and
// sets the expiry; later requests in the window only count.
type RedisLimiter struct {
	redis    *storage.RedisClient
	interval time.Duration
	prefix   string
}

func NewRedisLimiter(redis *storage.RedisClient, interval time.Duration) *RedisLimiter {
	return &RedisLimiter{
		redis:    redis,
		interval: interval,
		prefix:   "ratelimit:fixed:",
	}
}

func (f *RedisLimiter) Check(ctx context.Context, limit int, token string) error {
	redisKey := f.prefix + token

	pipe := f.redis.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, f.interval)
	ttl := pipe.PTTL(ctx, redisKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rate limit check for %q: %w", token, err)
	}

	if incr.Val() <= int64(limit) {
		return nil
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = f.interval
	}

	return &RateLimitExceededError{
		Token:   token,
		Limit:   limit,
		ResetAt: time.Now().Add(remaining),
	}
}

func (f *RedisLimiter) Close() error {
	return nil
}

var _ Limiter = (*RedisLimiter)(nil)
