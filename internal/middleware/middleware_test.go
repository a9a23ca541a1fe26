package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aman-churiwal/hackathon-portal/internal/auth"
	"github.com/aman-churiwal/hackathon-portal/internal/models"
	"github.com/aman-churiwal/hackathon-portal/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nhalm/canonlog"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	req.RemoteAddr = "203.0.113.7:5555"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit(t *testing.T) {
	now := time.Now()
	limiter := ratelimit.NewInterval(time.Minute, 100, ratelimit.WithClock(func() time.Time { return now }), ratelimit.WithoutSweeper())
	defer limiter.Close()

	r := gin.New()
	r.Use(RequestID(), CanonicalLog())
	r.POST("/register", RateLimit(limiter, 2, "register"), okHandler)
	r.GET("/lookup", RateLimit(limiter, 2, "lookup"), okHandler)

	for i := 0; i < 2; i++ {
		if rec := serve(r, http.MethodPost, "/register", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := serve(r, http.MethodPost, "/register", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Errorf("X-RateLimit-Limit = %q, want 2", got)
	}
	if got := rec.Header().Get("Retry-After"); got == "" || got == "0" {
		t.Errorf("Retry-After = %q, want a positive number of seconds", got)
	}

	// Separate scope, separate budget.
	if rec := serve(r, http.MethodGet, "/lookup", nil); rec.Code != http.StatusOK {
		t.Fatalf("lookup status = %d, want 200", rec.Code)
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Check(context.Context, int, string) error { return errors.New("redis: connection refused") }
func (brokenLimiter) Close() error { return nil }

func TestRateLimit_BackendError(t *testing.T) {
	r := gin.New()
	r.Use(CanonicalLog())
	r.GET("/", RateLimit(brokenLimiter{}, 5, "lookup"), okHandler)

	if rec := serve(r, http.MethodGet, "/", nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return token
}

func TestRequireAdmin(t *testing.T) {
	const secret = "test-secret-0123456789"
	verifier := auth.NewVerifier(secret, "admin")
	exp := time.Now().Add(time.Hour).Unix()

	r := gin.New()
	r.Use(CanonicalLog())
	r.GET("/admin", RequireAdmin(verifier), func(c *gin.Context) {
		c.String(http.StatusOK, Reviewer(c))
	})

	adminToken := signToken(t, secret, jwt.MapClaims{
		"sub": "user-1", "email": "organiser@example.edu", "exp": exp,
		"app_metadata": map[string]any{"role": "admin"},
	})
	participantToken := signToken(t, secret, jwt.MapClaims{
		"sub": "user-2", "email": "someone@example.edu", "exp": exp, "role": "authenticated",
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized},
		{name: "not an admin", header: "Bearer " + participantToken, wantStatus: http.StatusForbidden},
		{name: "admin", header: "Bearer " + adminToken, wantStatus: http.StatusOK, wantBody: "organiser@example.edu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.header != "" {
				header.Set("Authorization", tt.header)
			}

			rec := serve(r, http.MethodGet, "/admin", header)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Fatalf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRequestIDAndCanonicalLog(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), CanonicalLog(), Recovery())

	var loggerFound bool
	r.GET("/ping", func(c *gin.Context) {
		_, loggerFound = canonlog.TryGetLogger(c.Request.Context())
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	rec := serve(r, http.MethodGet, "/ping", http.Header{RequestIDHeader: []string{"abc-123"}})
	if rec.Body.String() != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("request id = %q / %q, want abc-123", rec.Body.String(), rec.Header().Get(RequestIDHeader))
	}
	if !loggerFound {
		t.Error("expected canonlog logger in request context")
	}

	rec = serve(r, http.MethodGet, "/ping", nil)
	if len(rec.Header().Get(RequestIDHeader)) != 36 {
		t.Errorf("generated request id = %q, want a uuid", rec.Header().Get(RequestIDHeader))
	}

	rec = serve(r, http.MethodGet, "/panic", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("panic status = %d, want 500", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CanonicalLog(), CORS([]string{"https://portal.example.edu"}))
	r.GET("/", okHandler)

	rec := serve(r, http.MethodOptions, "/", http.Header{"Origin": []string{"https://portal.example.edu"}})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://portal.example.edu" {
		t.Fatalf("Allow-Origin = %q", got)
	}

	rec = serve(r, http.MethodGet, "/", http.Header{"Origin": []string{"https://evil.example"}})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("Allow-Origin for unknown origin = %q, want empty", got)
	}
}

type memSink struct {
	mu      sync.Mutex
	logs    []models.RequestLog
	batches int
}

func (m *memSink) CreateBatch(_ context.Context, logs []models.RequestLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	m.logs = append(m.logs, logs...)
	return nil
}

func TestRequestLogger_FlushesOnClose(t *testing.T) {
	sink := &memSink{}
	writer := NewRequestLogWriter(sink, 100, 2, time.Hour)

	r := gin.New()
	r.Use(RequestID(), CanonicalLog(), RequestLogger(writer))
	r.GET("/api/registrations/:teamId", okHandler)

	for i := 0; i < 5; i++ {
		serve(r, http.MethodGet, "/api/registrations/IN25-001", nil)
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.logs) != 5 {
		t.Fatalf("logged %d requests, want 5", len(sink.logs))
	}
	entry := sink.logs[0]
	if entry.Route != "/api/registrations/:teamId" || entry.Path != "/api/registrations/IN25-001" {
		t.Errorf("entry route/path = %q / %q", entry.Route, entry.Path)
	}
	if entry.StatusCode != http.StatusOK || entry.RequestID == "" || entry.IPAddress != "203.0.113.7" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestRequestLogWriter_DropsWhenFull(t *testing.T) {
	// No worker is running, so the buffer fills.
	w := &RequestLogWriter{
		entries:  make(chan models.RequestLog, 1),
		dropWarn: rate.Sometimes{First: 1},
	}

	if !w.Enqueue(models.RequestLog{Path: "/a"}) {
		t.Fatal("first Enqueue() = false, want true")
	}
	if w.Enqueue(models.RequestLog{Path: "/b"}) {
		t.Fatal("second Enqueue() = true, want false")
	}
	if w.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", w.Dropped())
	}
}

func TestMiddleware_OutsideCanonicalLog(t *testing.T) {
	limiter := ratelimit.NewInterval(time.Minute, 100, ratelimit.WithoutSweeper())
	defer limiter.Close()

	r := gin.New()
	r.Use(Recovery())
	r.GET("/limited", RateLimit(limiter, 1, "lookup"), okHandler)
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	if rec := serve(r, http.MethodGet, "/limited", nil); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}
	if rec := serve(r, http.MethodGet, "/limited", nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec := serve(r, http.MethodGet, "/panic", nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("panic status = %d, want 500", rec.Code)
	}
}
