package embedder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/54b3r/cafebot-go/internal/store"
)

// Cached wraps a Client with a persistent embedding cache. Cache failures
// are logged and treated as misses; they never fail an embedding request.
type Cached struct {
	inner Client
	cache store.EmbeddingCache
	log   *slog.Logger
}

// NewCached returns a caching decorator around inner.
func NewCached(inner Client, cache store.EmbeddingCache, log *slog.Logger) *Cached {
	if log == nil {
		log = slog.Default()
	}
	return &Cached{inner: inner, cache: cache, log: log}
}

// Model returns the wrapped model name.
func (c *Cached) Model() string { return c.inner.Model() }

// Embed returns the cached vector for text or computes and stores it.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.lookup(ctx, text); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.save(ctx, text, vec)
	return vec, nil
}

// EmbedBatch serves hits from the cache and sends only the misses upstream,
// in a single batch.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		missIdx   []int
		missTexts []string
	)
	for i, t := range texts {
		if vec, ok := c.lookup(ctx, t); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder: expected %d embeddings, got %d", len(missTexts), len(vecs))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.save(ctx, missTexts[j], vecs[j])
	}
	return out, nil
}

func (c *Cached) lookup(ctx context.Context, text string) ([]float32, bool) {
	vec, ok, err := c.cache.Lookup(ctx, c.inner.Model(), text)
	if err != nil {
		c.log.Warn("embedder: cache lookup failed", slog.String("error", err.Error()))
		return nil, false
	}
	return vec, ok
}

func (c *Cached) save(ctx context.Context, text string, vec []float32) {
	if err := c.cache.Save(ctx, c.inner.Model(), text, vec); err != nil {
		c.log.Warn("embedder: cache save failed", slog.String("error", err.Error()))
	}
}
