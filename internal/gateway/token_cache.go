package gateway

import (
	"context"
	"sync"
	"time"
)

// TokenRefreshWindow is how long before expiry a cached token is renewed.
const TokenRefreshWindow = 5 * time.Minute

// TokenFetcher obtains a new bearer token and its expiry.
type TokenFetcher func(ctx context.Context) (token string, expiresAt time.Time, err error)

// TokenCache keeps one provider bearer token in memory and refreshes it lazily.
// It is owned by the adapter instance and never persisted.
type TokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	fetch     TokenFetcher
	now       func() time.Time
}

func NewTokenCache(fetch TokenFetcher) *TokenCache {
	return &TokenCache{fetch: fetch, now: time.Now}
}

// Token returns the cached token, fetching a new one when none is cached or the current
// one expires within TokenRefreshWindow. Concurrent callers share a single fetch.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt.Add(-TokenRefreshWindow)) {
		return c.token, nil
	}

	token, expiresAt, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expiresAt = expiresAt
	return token, nil
}

// Invalidate drops the cached token so the next call logs in again.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

// ExpiresAt returns the expiry of the cached token, zero when empty.
func (c *TokenCache) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}
