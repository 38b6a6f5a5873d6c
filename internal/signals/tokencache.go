package signals

import (
	"context"
	"sync"
	"time"
)

// TokenFetcher obtains a fresh access token and its expiry.
type TokenFetcher func(ctx context.Context) (token string, expiresAt time.Time, err error)

// TokenCache caches one access token until it expires. It is an explicit
// injected dependency rather than process-wide state, so tests can drive
// expiry and concurrent fetches cannot serve another request's stale
// token.
type TokenCache struct {
	mu      sync.Mutex
	fetch   TokenFetcher
	token   string
	expires time.Time
	now     func() time.Time
}

// NewTokenCache creates a cache around fetch.
func NewTokenCache(fetch TokenFetcher) *TokenCache {
	return &TokenCache{fetch: fetch, now: time.Now}
}

// Token returns the cached token, refreshing it through the fetcher when
// missing or expired. A token with a zero expiry is never cached.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	token, expiresAt, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expires = expiresAt
	return token, nil
}

// Invalidate drops the cached token so the next call refetches.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expires = time.Time{}
}
