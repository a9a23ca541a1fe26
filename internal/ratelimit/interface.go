package ratelimit

import (
	"context"
)

// Limiter admits at most limit requests per token within one window.
// Check returns nil when the request is admitted and counts it, or a
// *RateLimitExceededError when the token's current window is full.
type Limiter interface {
	Check(ctx context.Context, limit int, token string) error

	Close() error
}
