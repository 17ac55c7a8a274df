package tokencache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TokenSource fetches a fresh access token and its lifetime from the
// provider's auth endpoint.
type TokenSource func(ctx context.Context) (token string, expiresIn time.Duration, err error)

// Cache holds one provider access token and refreshes it when expired.
// It replaces ambient global token state with an explicit expiry-aware
// service: callers always go through GetValidToken.
type Cache struct {
	mu        sync.Mutex
	source    TokenSource
	safety    time.Duration
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// New creates a token cache. The safety margin treats a token as expired
// slightly before its real deadline so in-flight requests don't race the
// provider's clock.
func New(source TokenSource, safety time.Duration) *Cache {
	return &Cache{
		source: source,
		safety: safety,
		now:    time.Now,
	}
}

// GetValidToken returns the cached token while it is still valid and
// refreshes it otherwise. Concurrent callers share one refresh.
func (c *Cache) GetValidToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Add(c.safety).Before(c.expiresAt) {
		return c.token, nil
	}

	token, expiresIn, err := c.source(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	if token == "" {
		return "", fmt.Errorf("token source returned empty token")
	}

	c.token = token
	c.expiresAt = c.now().Add(expiresIn)
	return c.token, nil
}

// Invalidate discards the cached token so the next caller refreshes.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}
