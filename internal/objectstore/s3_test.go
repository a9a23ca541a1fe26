package objectstore

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

func newTestS3(t *testing.T) *S3 {
	t.Helper()

	s, err := NewS3(context.Background(), S3Config{
		Bucket:      "registrations",
		Region:      "us-east-1",
		Endpoint:    "http://localhost:9000",
		AccessKeyID: "test-access-key",
		SecretKey:   "test-secret-key",
		Expiry:      10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewS3() error = %v", err)
	}
	return s
}

func TestS3_PresignPut(t *testing.T) {
	s := newTestS3(t)

	signed, err := s.PresignPut(context.Background(), "payment-proofs/IN25-001/receipt.png", "image/png")
	if err != nil {
		t.Fatalf("PresignPut() error = %v", err)
	}

	if signed.Method != http.MethodPut {
		t.Errorf("Method = %q, want PUT", signed.Method)
	}
	if !strings.HasPrefix(signed.URL, "http://localhost:9000/registrations/payment-proofs/IN25-001/receipt.png?") {
		t.Errorf("URL = %q, want path-style URL for the key", signed.URL)
	}
	if !strings.Contains(signed.URL, "X-Amz-Expires=600") {
		t.Errorf("URL = %q, want a 600s expiry", signed.URL)
	}
	if !strings.Contains(signed.URL, "X-Amz-Signature=") {
		t.Errorf("URL = %q, want a signature", signed.URL)
	}
}

func TestS3_PresignGet(t *testing.T) {
	s := newTestS3(t)

	signed, err := s.PresignGet(context.Background(), "payment-proofs/IN25-001/receipt.png")
	if err != nil {
		t.Fatalf("PresignGet() error = %v", err)
	}

	if signed.Method != http.MethodGet {
		t.Errorf("Method = %q, want GET", signed.Method)
	}
	if time.Until(signed.ExpiresAt) <= 9*time.Minute {
		t.Errorf("ExpiresAt = %v, want about 10 minutes out", signed.ExpiresAt)
	}
}
