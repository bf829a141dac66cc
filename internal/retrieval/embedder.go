package retrieval

import (
	"context"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/philippgille/chromem-go"
)

// #region cached-embedder

// CachedEmbedder memoizes embeddings from an upstream Embedder and returns
// them L2-normalized, which chromem's cosine search expects.
type CachedEmbedder struct {
	upstream Embedder
	cache    *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps upstream with an LRU cache of size entries.
func NewCachedEmbedder(upstream Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = 10000
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &CachedEmbedder{upstream: upstream, cache: cache}, nil
}

// Embed returns the cached vector for text or fetches and caches it.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	vec, err := e.upstream.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("embed: empty vector")
	}
	vec = normalize(vec)
	e.cache.Add(text, vec)
	return vec, nil
}

// Len returns the number of cached entries.
func (e *CachedEmbedder) Len() int { return e.cache.Len() }

// EmbeddingFunc adapts the embedder for a chromem collection.
func (e *CachedEmbedder) EmbeddingFunc() chromem.EmbeddingFunc {
	return e.Embed
}

// #endregion cached-embedder

// #region helpers

func normalize(v []float32) []float32 {
	var sq float64
	for _, x := range v {
		sq += float64(x) * float64(x)
	}
	if sq == 0 {
		return v
	}
	norm := float32(math.Sqrt(sq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// #endregion helpers
