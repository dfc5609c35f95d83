package mpesa

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTokenServer(t *testing.T, exchanges *int32) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		n := atomic.AddInt32(exchanges, 1)
		fmt.Fprintf(w, `{"access_token": "token-%d", "expires_in": "3599"}`, n)
	}))
}

func TestTokenCache_ExchangesOnlyOnExpiry(t *testing.T) {
	t.Parallel()

	var exchanges int32
	server := newTokenServer(t, &exchanges)
	defer server.Close()

	cache := NewTokenCache(server.URL, "key", "secret", server.Client())

	current := time.Date(2024, 8, 30, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	ctx := context.Background()

	// First call performs exactly one exchange.
	token, err := cache.Token(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "token-1" {
		t.Errorf("unexpected token: %q", token)
	}
	if got := atomic.LoadInt32(&exchanges); got != 1 {
		t.Fatalf("expected 1 exchange, got %d", got)
	}

	// Second call before expiry performs no exchange.
	token, err = cache.Token(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "token-1" {
		t.Errorf("expected cached token, got %q", token)
	}
	if got := atomic.LoadInt32(&exchanges); got != 1 {
		t.Fatalf("expected still 1 exchange, got %d", got)
	}

	// Advance past expiresAt (3599s minus the 60s margin).
	current = current.Add(3600 * time.Second)

	token, err = cache.Token(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "token-2" {
		t.Errorf("expected refreshed token, got %q", token)
	}
	if got := atomic.LoadInt32(&exchanges); got != 2 {
		t.Fatalf("expected 2 exchanges, got %d", got)
	}
}

func TestTokenCache_AppliesSafetyMargin(t *testing.T) {
	t.Parallel()

	var exchanges int32
	server := newTokenServer(t, &exchanges)
	defer server.Close()

	cache := NewTokenCache(server.URL, "key", "secret", server.Client())

	current := time.Date(2024, 8, 30, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	ctx := context.Background()
	if _, err := cache.Token(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 3599s nominal lifetime, 60s margin: a call at +3540s must refresh.
	current = current.Add(3540 * time.Second)
	if _, err := cache.Token(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&exchanges); got != 2 {
		t.Errorf("expected refresh inside the safety margin, exchanges = %d", got)
	}
}

func TestTokenCache_MissingCredentials(t *testing.T) {
	t.Parallel()

	cache := NewTokenCache("http://unused", "", "", nil)

	_, err := cache.Token(context.Background())
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestTokenCache_GatewayFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusBadRequest)
	}))
	defer server.Close()

	cache := NewTokenCache(server.URL, "key", "wrong", server.Client())

	_, err := cache.Token(context.Background())

	var gatewayErr *GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if gatewayErr.Status != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", gatewayErr.Status)
	}
}
