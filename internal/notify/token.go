package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2/google"
)

const (
	messagingScope = "https://www.googleapis.com/auth/firebase.messaging"
	refreshWindow  = 60 * time.Second
)

type FetchFunc func(ctx context.Context) (token string, expiry time.Time, err error)

// TokenCache keeps one OAuth access token and fetches a new one when the
// current token expires within a minute.
type TokenCache struct {
	fetch FetchFunc
	now   func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func NewTokenCache(fetch FetchFunc) *TokenCache {
	return &TokenCache{fetch: fetch, now: time.Now}
}

func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Add(refreshWindow).Before(c.expiry) {
		return c.token, nil
	}

	token, expiry, err := c.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}
	c.token, c.expiry = token, expiry
	return token, nil
}

func (c *TokenCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiry = time.Time{}
}

// GoogleTokenFetcher signs service-account JWTs for the FCM scope.
func GoogleTokenFetcher(serviceAccountJSON []byte) (FetchFunc, error) {
	cfg, err := google.JWTConfigFromJSON(serviceAccountJSON, messagingScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	return func(ctx context.Context) (string, time.Time, error) {
		tok, err := cfg.TokenSource(ctx).Token()
		if err != nil {
			return "", time.Time{}, err
		}
		return tok.AccessToken, tok.Expiry, nil
	}, nil
}
