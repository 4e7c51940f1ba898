package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/melodysyncer/melodysyncer/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	// DefaultTokenBuffer is subtracted from the provider's expiry so a cached token is
	// never handed out close to its real expiry.
	DefaultTokenBuffer = 120 * time.Second
	minTokenBuffer     = 60 * time.Second
	defaultTokenTTL    = 3600 * time.Second
)

// TokenCache holds one client-credentials bearer token and refreshes it on demand.
//
// The lock is held across the exchange, so concurrent callers that find the cache
// stale wait for a single refresh instead of racing their own.
type TokenCache struct {
	mu     sync.Mutex
	config *clientcredentials.Config
	client *http.Client
	buffer time.Duration
	now    func() time.Time

	token  string
	expiry time.Time
}

// NewTokenCache creates a cache for the given client credentials.
//
// An empty tokenURL uses Spotify's accounts endpoint. Buffers shorter than a minute are raised to one.
// A nil client uses [http.DefaultClient].
func NewTokenCache(clientID, clientSecret, tokenURL string, buffer time.Duration, client *http.Client) *TokenCache {
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	if buffer < minTokenBuffer {
		buffer = minTokenBuffer
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenCache{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		client: client,
		buffer: buffer,
		now:    time.Now,
	}
}

// Token returns a valid bearer token, exchanging credentials when the cache is empty or stale.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if c.config.ClientID == "" || c.config.ClientSecret == "" {
		return "", fmt.Errorf("%w: spotify client id and secret are required", shared.ErrMissingCredentials)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiry) {
		return c.token, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	tok, err := c.config.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err)
	}

	ttl := defaultTokenTTL
	switch {
	case tok.ExpiresIn > 0:
		ttl = time.Duration(tok.ExpiresIn) * time.Second
	case !tok.Expiry.IsZero():
		ttl = time.Until(tok.Expiry)
	}

	c.token = tok.AccessToken
	c.expiry = c.now().Add(ttl - c.buffer)
	return c.token, nil
}

// Expire drops the cached token so the next call to [TokenCache.Token] refreshes.
func (c *TokenCache) Expire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiry = time.Time{}
}

// Expiry reports when the cached token stops being served, zero when empty.
func (c *TokenCache) Expiry() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiry
}
