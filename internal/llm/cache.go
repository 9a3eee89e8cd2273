package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// CachedProvider wraps a Provider with an in-memory TTL cache keyed by
// the request payload. Identical prompts within the TTL are served from
// the cache without hitting the API.
type CachedProvider struct {
	provider Provider
	ttl      time.Duration
	mu       sync.Mutex
	entries  map[string]cacheEntry
	now      func() time.Time
}

type cacheEntry struct {
	resp    *CompletionResponse
	expires time.Time
}

// WithCache wraps the given provider with a TTL response cache.
func WithCache(provider Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		ttl:      ttl,
		entries:  make(map[string]cacheEntry),
		now:      time.Now,
	}
}

func (c *CachedProvider) Name() string {
	return c.provider.Name()
}

func (c *CachedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	key := cacheKey(req)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		resp := *e.resp
		return &resp, nil
	}
	c.mu.Unlock()

	resp, err := c.provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{resp: resp, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return resp, nil
}

// cacheKey hashes the full request so any difference in model, mode or
// message content produces a distinct key.
func cacheKey(req CompletionRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%.3f|%t\n", req.Model, req.MaxTokens, req.Temperature, req.JSONMode)
	for _, m := range req.Messages {
		fmt.Fprintf(h, "%s:%s\n", m.Role, m.Content)
	}
	return hex.EncodeToString(h.Sum(nil))
}
