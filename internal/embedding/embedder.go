package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/cache"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/logging"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/model"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/worker"
)

// Embedder turns texts into fixed-length vectors. Identical input yields identical output.
type Embedder interface {
	// Embed returns one vector per text, in input order
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector length, or 0 if not known before the first call
	Dimension() int

	// Name identifies the embedding function; vectors from different names are not comparable
	Name() string
}

// New builds the configured embedder: provider, wrapped in concurrent
// rate-limited batching, wrapped in a cache.
func New(cfg model.EmbeddingConfig, log *slog.Logger) (Embedder, error) {
	log = logging.OrDiscard(log)

	var base Embedder
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		e, err := NewOpenAIEmbedder(cfg.APIKey, cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, err
		}
		base = e
	case "hash":
		base = NewHashEmbedder(cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, hash)", cfg.Provider)
	}

	limiter := worker.NewLimiter(cfg.RequestsPerSecond, cfg.Workers)
	batched := NewBatcher(base, cfg.BatchSize, cfg.Workers, limiter)

	var store cache.Cache
	if cfg.CacheDir != "" {
		store = cache.NewLayeredCache(cfg.CacheTTL, cfg.CacheDir, cfg.CacheTTL)
	} else {
		store = cache.NewMemoryCache(cfg.CacheTTL, 10*time.Minute)
	}

	log.Debug("embedder configured",
		"provider", base.Name(),
		"batch_size", cfg.BatchSize,
		"workers", cfg.Workers,
		"cache_dir", cfg.CacheDir)

	return NewCachedEmbedder(batched, store, cfg.CacheTTL), nil
}
