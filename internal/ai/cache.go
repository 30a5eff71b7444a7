package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// ResponseCache is the subset of a key/value store the cached runtime needs.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedRuntime answers identical requests from a cache before calling the
// wrapped runtime. Concurrent misses for the same key share one call.
// Cache failures never fail the request.
type CachedRuntime struct {
	next  Runtime
	cache ResponseCache
	ttl   time.Duration
	group singleflight.Group
}

// NewCachedRuntime wraps next with cache.
func NewCachedRuntime(next Runtime, cache ResponseCache, ttl time.Duration) *CachedRuntime {
	return &CachedRuntime{next: next, cache: cache, ttl: ttl}
}

func (c *CachedRuntime) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	key, err := CacheKey(req)
	if err != nil {
		return c.next.Generate(ctx, req)
	}
	if b, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		var out GenerateResponse
		if err := json.Unmarshal(b, &out); err == nil {
			return &out, nil
		}
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		resp, err := c.next.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(resp); err == nil {
			_ = c.cache.Set(ctx, key, b, c.ttl)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	// Callers may mutate the response, so each gets its own copy.
	shared := v.(*GenerateResponse)
	out := *shared
	out.Choices = append([]Choice(nil), shared.Choices...)
	return &out, nil
}

// CacheKey derives a stable key from every field that affects the completion.
func CacheKey(req GenerateRequest) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	sum := sha256.Sum256(b)
	return "llm:" + hex.EncodeToString(sum[:]), nil
}
