package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/cache"
)

// CachedEmbedder serves repeated texts from a cache and embeds only misses
type CachedEmbedder struct {
	inner Embedder
	cache cache.Cache
	ttl   time.Duration
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with the given cache
func NewCachedEmbedder(inner Embedder, c cache.Cache, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: c, ttl: ttl}
}

// Name returns the wrapped embedder's name
func (e *CachedEmbedder) Name() string { return e.inner.Name() }

// Dimension returns the wrapped embedder's dimension
func (e *CachedEmbedder) Dimension() int { return e.inner.Dimension() }

// Embed returns cached vectors where available and embeds the rest in one call
func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var (
		missTexts []string
		missIdx   []int
	)
	for i, text := range texts {
		if data, found := e.cache.Get(e.key(text)); found {
			if v := DecodeVector(data); len(v) > 0 {
				out[i] = v
				continue
			}
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := e.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("expected %d vectors, got %d", len(missTexts), len(vectors))
	}

	for j, v := range vectors {
		out[missIdx[j]] = v
		// Cache write failures only cost a recomputation later
		_ = e.cache.Set(e.key(missTexts[j]), EncodeVector(v), e.ttl)
	}

	return out, nil
}

func (e *CachedEmbedder) key(text string) string {
	return cache.Key("embedding", e.inner.Name(), text)
}
