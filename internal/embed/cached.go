package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cachedEmbedderSize bounds the in-process vector cache.
const cachedEmbedderSize = 10000

// CachedEmbedder wraps an Embedder with an in-process LRU keyed by
// content hash. It sits in front of the durable database cache and
// absorbs repeat texts within one indexing run.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps an embedder with the LRU front.
func NewCachedEmbedder(inner Embedder) (*CachedEmbedder, error) {
	cache, err := lru.New[string, []float32](cachedEmbedderSize)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

// HashText returns the cache key for a text: hex SHA-256 of its bytes.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Embed returns a cached vector when available.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := HashText(text)
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}

	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, v)
	return v, nil
}

// EmbedBatch serves cached entries and forwards only the misses.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missing []int
	for i, text := range texts {
		if v, ok := c.cache.Get(HashText(text)); ok {
			results[i] = v
		} else {
			missing = append(missing, i)
		}
	}

	if len(missing) == 0 {
		return results, nil
	}

	missingTexts := make([]string, len(missing))
	for i, idx := range missing {
		missingTexts[i] = texts[idx]
	}

	fresh, err := c.inner.EmbedBatch(ctx, missingTexts)
	if err != nil {
		return nil, err
	}
	for i, v := range fresh {
		idx := missing[i]
		results[idx] = v
		c.cache.Add(HashText(texts[idx]), v)
	}
	return results, nil
}

func (c *CachedEmbedder) Dimensions() int                    { return c.inner.Dimensions() }
func (c *CachedEmbedder) ModelName() string                  { return c.inner.ModelName() }
func (c *CachedEmbedder) Available(ctx context.Context) bool { return c.inner.Available(ctx) }

// Close closes the wrapped embedder.
func (c *CachedEmbedder) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}
