package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// ErrRateLimitExceeded matches every *RateLimitExceededError.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

type RateLimitExceededError struct {
	Token   string
	Limit   int
	ResetAt time.Time
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q: %d requests per window", e.Token, e.Limit)
}

func (e *RateLimitExceededError) Is(target error) bool {
	return target == ErrRateLimitExceeded
}

// RetryAfter is how long until the token's window resets, never negative.
func (e *RateLimitExceededError) RetryAfter(now time.Time) time.Duration {
	return max(0, e.ResetAt.Sub(now))
}
