package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/melodysyncer/melodysyncer/internal/shared"
)

// newTokenServer returns a token endpoint that hands out tok-1, tok-2, ... and counts exchanges.
func newTokenServer(t *testing.T, expiresIn int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)

		id, secret, ok := r.BasicAuth()
		if !ok || id != "client" || secret != "secret" {
			t.Errorf("expected basic auth client:secret, got %q:%q (%v)", id, secret, ok)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if gt := r.PostForm.Get("grant_type"); gt != "client_credentials" {
			t.Errorf("expected client_credentials grant, got %s", gt)
		}

		w.Header().Set("Content-Type", "application/json")
		if expiresIn > 0 {
			fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"bearer","expires_in":%d}`, n, expiresIn)
			return
		}
		fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"bearer"}`, n)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestTokenCache(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Reuses Cached Token", func(t *testing.T) {
		srv, hits := newTokenServer(t, 3600)
		cache := NewTokenCache("client", "secret", srv.URL, DefaultTokenBuffer, srv.Client())
		cache.now = func() time.Time { return start }

		first, err := cache.Token(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		second, err := cache.Token(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if first != "tok-1" || second != "tok-1" {
			t.Errorf("expected tok-1 twice, got %s and %s", first, second)
		}
		if hits.Load() != 1 {
			t.Errorf("expected 1 exchange, got %d", hits.Load())
		}
	})

	t.Run("Refreshes After Buffered Expiry", func(t *testing.T) {
		srv, hits := newTokenServer(t, 3600)
		cache := NewTokenCache("client", "secret", srv.URL, DefaultTokenBuffer, srv.Client())
		now := start
		cache.now = func() time.Time { return now }

		if _, err := cache.Token(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := start.Add(3600*time.Second - DefaultTokenBuffer)
		if !cache.Expiry().Equal(want) {
			t.Errorf("expected expiry %v, got %v", want, cache.Expiry())
		}

		now = want.Add(-time.Second)
		if tok, _ := cache.Token(ctx); tok != "tok-1" {
			t.Errorf("expected cached token before expiry, got %s", tok)
		}

		now = want
		tok, err := cache.Token(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if tok != "tok-2" {
			t.Errorf("expected refreshed token tok-2, got %s", tok)
		}
		if hits.Load() != 2 {
			t.Errorf("expected 2 exchanges, got %d", hits.Load())
		}
	})

	t.Run("Expire Forces Single Refresh", func(t *testing.T) {
		srv, hits := newTokenServer(t, 3600)
		cache := NewTokenCache("client", "secret", srv.URL, DefaultTokenBuffer, srv.Client())
		cache.now = func() time.Time { return start }

		cache.Token(ctx)
		cache.Expire()
		cache.Token(ctx)
		cache.Token(ctx)

		if hits.Load() != 2 {
			t.Errorf("expected exactly 2 exchanges, got %d", hits.Load())
		}
	})

	t.Run("Missing Expiry Defaults To An Hour", func(t *testing.T) {
		srv, _ := newTokenServer(t, 0)
		cache := NewTokenCache("client", "secret", srv.URL, DefaultTokenBuffer, srv.Client())
		cache.now = func() time.Time { return start }

		if _, err := cache.Token(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		want := start.Add(time.Hour - DefaultTokenBuffer)
		if !cache.Expiry().Equal(want) {
			t.Errorf("expected expiry %v, got %v", want, cache.Expiry())
		}
	})

	t.Run("Buffer Floor", func(t *testing.T) {
		cache := NewTokenCache("client", "secret", "", 5*time.Second, nil)
		if cache.buffer != minTokenBuffer {
			t.Errorf("expected buffer raised to %v, got %v", minTokenBuffer, cache.buffer)
		}
		if cache.config.TokenURL != spotifyTokenURL {
			t.Errorf("expected default token url, got %s", cache.config.TokenURL)
		}
	})

	t.Run("Concurrent Callers Share One Refresh", func(t *testing.T) {
		srv, hits := newTokenServer(t, 3600)
		cache := NewTokenCache("client", "secret", srv.URL, DefaultTokenBuffer, srv.Client())

		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := cache.Token(ctx); err != nil {
					t.Errorf("expected no error, got %v", err)
				}
			}()
		}
		wg.Wait()

		if hits.Load() != 1 {
			t.Errorf("expected 1 exchange, got %d", hits.Load())
		}
	})

	t.Run("Missing Credentials", func(t *testing.T) {
		srv, hits := newTokenServer(t, 3600)
		cache := NewTokenCache("", "secret", srv.URL, DefaultTokenBuffer, srv.Client())

		_, err := cache.Token(ctx)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if hits.Load() != 0 {
			t.Errorf("expected no exchange, got %d", hits.Load())
		}
	})

	t.Run("Exchange Rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_client"}`))
		}))
		defer srv.Close()

		cache := NewTokenCache("client", "secret", srv.URL, DefaultTokenBuffer, srv.Client())
		_, err := cache.Token(ctx)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}
