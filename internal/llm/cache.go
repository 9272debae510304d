package llm

import (
	"context"
	"fmt"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"fitflow-backend/internal/shared/metrics"
	"fitflow-backend/internal/shared/util"
)

const DefaultCacheSize = 128

// Cached memoizes successful responses by request hash.
type Cached struct {
	base  Client
	cache *lru.Cache[string, Response]
}

// NewCached wraps base with an LRU of the given size (DefaultCacheSize when <= 0).
func NewCached(base Client, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, Response](size)
	if err != nil {
		return nil, fmt.Errorf("llm cache: %w", err)
	}
	return &Cached{base: base, cache: cache}, nil
}

func (c *Cached) Complete(ctx context.Context, req Request) (Response, error) {
	key := RequestHash(req)
	if resp, ok := c.cache.Get(key); ok {
		metrics.IncLLMCacheHit()
		return resp, nil
	}
	metrics.IncLLMCacheMiss()
	resp, err := c.base.Complete(ctx, req)
	if err != nil {
		return Response{}, err
	}
	c.cache.Add(key, resp)
	return resp, nil
}

// Len reports cached entries.
func (c *Cached) Len() int { return c.cache.Len() }

// RequestHash is a stable SHA-256 over every field that affects the completion.
func RequestHash(req Request) string {
	parts := []string{
		req.Model,
		req.System,
		req.Prompt,
		strconv.FormatFloat(req.Temperature, 'f', -1, 64),
		strconv.Itoa(req.MaxTokens),
	}
	for _, img := range req.Images {
		parts = append(parts, img.MimeType, util.HashBytes(img.Data))
	}
	return util.HashFields(parts...)
}
