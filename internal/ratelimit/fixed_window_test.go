package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aman-churiwal/hackathon-portal/internal/storage"
	"github.com/google/uuid"
)

func setupRedisLimiter(t *testing.T, interval time.Duration) *RedisLimiter {
	t.Helper()

	client, err := storage.NewRedis("localhost:6379", "", 15)
	if err != nil {
		t.Skip("Redis not available:", err)
	}
	t.Cleanup(func() { client.Close() })

	l := NewRedisLimiter(client, interval)
	l.prefix = "test:ratelimit:" + uuid.NewString() + ":"
	return l
}

func TestRedisLimiter_Admission(t *testing.T) {
	l := setupRedisLimiter(t, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		if err := l.Check(ctx, 10, "X"); err != nil {
			t.Fatalf("Check() #%d error = %v", i, err)
		}
	}

	err := l.Check(ctx, 10, "X")
	var rle *RateLimitExceededError
	if !errors.As(err, &rle) {
		t.Fatalf("Check() #11 error = %v, want *RateLimitExceededError", err)
	}
	if wait := rle.RetryAfter(time.Now()); wait <= 0 || wait > time.Minute {
		t.Errorf("RetryAfter() = %v, want within (0, 1m]", wait)
	}
}

func TestRedisLimiter_WindowReset(t *testing.T) {
	l := setupRedisLimiter(t, 200*time.Millisecond)
	ctx := context.Background()

	if err := l.Check(ctx, 1, "tok"); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if err := l.Check(ctx, 1, "tok"); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("Check() error = %v, want ErrRateLimitExceeded", err)
	}

	time.Sleep(300 * time.Millisecond)

	if err := l.Check(ctx, 1, "tok"); err != nil {
		t.Fatalf("Check() after window error = %v", err)
	}
}
