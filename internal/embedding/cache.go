package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aidisdev/aidis/internal/observability"
)

// Cached wraps a Provider with an in-process LRU keyed by content hash.
// Embedding is deterministic, so cached entries never go stale.
type Cached struct {
	inner   Provider
	cache   *lru.Cache[string, []float32]
	metrics *observability.Metrics
}

// NewCached wraps provider with an LRU of the given size (default 1024).
func NewCached(provider Provider, size int, metrics *observability.Metrics) (*Cached, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: provider, cache: cache, metrics: metrics}, nil
}

func (c *Cached) Name() string   { return c.inner.Name() }
func (c *Cached) Dimension() int { return c.inner.Dimension() }

// Embed implements Provider.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		if c.metrics != nil {
			c.metrics.EmbeddingCacheHits.WithLabelValues("hit").Inc()
		}
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	if c.metrics != nil {
		c.metrics.EmbeddingCacheHits.WithLabelValues("miss").Inc()
	}
	return vec, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
