package middleware

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/aman-churiwal/hackathon-portal/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimit admits at most limit requests per window for each client IP.
// scope keeps the budgets of different routes apart, so the token is "scope:ip".
func RateLimit(limiter ratelimit.Limiter, limit int, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := scope + ":" + c.ClientIP()
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))

		err := limiter.Check(c.Request.Context(), limit, token)
		if err == nil {
			c.Next()
			return
		}

		var exceeded *ratelimit.RateLimitExceededError
		if errors.As(err, &exceeded) {
			retryAfter := int(math.Ceil(exceeded.RetryAfter(time.Now()).Seconds()))

			LogInfo(c.Request.Context(), "rate_limited", scope)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-RateLimit-Reset", strconv.FormatInt(exceeded.ResetAt.Unix(), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"limit":       limit,
				"retry_after": retryAfter,
			})
			return
		}

		log.Printf("[%s] Rate limit check failed for %s: %v", c.GetString(RequestIDKey), token, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Rate limit check failed",
		})
	}
}
