package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nhalm/canonlog"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// RequestID reuses an incoming X-Request-ID or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// CanonicalLog emits one structured line per request. Handlers add fields
// with LogInfo on the request context.
func CanonicalLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		ctx := canonlog.NewContext(c.Request.Context())
		canonlog.InfoAddMany(ctx, map[string]any{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"request_id": c.GetString(RequestIDKey),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		for _, e := range c.Errors {
			canonlog.ErrorAdd(ctx, e.Err)
		}

		canonlog.InfoAddMany(ctx, map[string]any{
			"route":       route,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
		})
		canonlog.Flush(ctx)
	}
}

// LogInfo adds a field to the canonical log line. It is a no-op when the
// request is not running under CanonicalLog.
func LogInfo(ctx context.Context, key string, value any) {
	if l, ok := canonlog.TryGetLogger(ctx); ok {
		l.InfoAdd(key, value)
	}
}

// LogError records err on the canonical log line when there is one.
func LogError(ctx context.Context, err error) {
	if l, ok := canonlog.TryGetLogger(ctx); ok {
		l.ErrorAdd(err)
	}
}
