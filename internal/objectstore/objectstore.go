// Package objectstore issues time-limited signed URLs so browsers upload and
// download registration files directly from the bucket.
package objectstore

import (
	"context"
	"net/http"
	"time"
)

type SignedURL struct {
	URL       string      `json:"url"`
	Method    string      `json:"method"`
	Headers   http.Header `json:"headers,omitempty"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type Presigner interface {
	// PresignPut signs an upload of key; the client must send contentType unchanged.
	PresignPut(ctx context.Context, key, contentType string) (*SignedURL, error)

	PresignGet(ctx context.Context, key string) (*SignedURL, error)
}
