// Package index persists embedded chunks in SQLite and answers
// nearest-neighbor queries over them.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/embedding"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/logging"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/model"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/splitter"
)

// Config configures the index
type Config struct {
	Dir          string        // Persistence directory, created on first add
	ChunkSize    int           // Max chunk length in characters
	ChunkOverlap int           // Characters shared by consecutive chunks
	Timeout      time.Duration // Per-call bound on embedding and storage work; 0 disables
}

// embedWindow is how many chunk texts Add hands the embedder per call.
// Timeout applies to each call, not to the whole Add.
const embedWindow = 256

// Index is a persistent vector index. Vectors are held in memory and
// searched exhaustively; SQLite is the durable copy.
//
// Add is expected to have a single caller at a time. Query is safe for
// concurrent use, including while an Add or Reset runs.
type Index struct {
	cfg      Config
	embedder embedding.Embedder
	splitter *splitter.Splitter
	log      *slog.Logger

	mu      sync.RWMutex
	store   *store // nil while uninitialized
	chunks  []model.Chunk
	dim     int
	corrupt bool // an unreadable store was found on disk
}

// New creates an index over cfg.Dir and loads any existing store.
// An unreadable store is logged and treated as uninitialized.
func New(cfg Config, embedder embedding.Embedder, log *slog.Logger) *Index {
	idx := &Index{
		cfg:      cfg,
		embedder: embedder,
		splitter: splitter.New(
			splitter.WithChunkSize(cfg.ChunkSize),
			splitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
		log: logging.OrDiscard(log).With("component", "index"),
	}
	idx.load()
	return idx
}

// load opens the persisted store when the directory exists and is non-empty
func (i *Index) load() {
	entries, err := os.ReadDir(i.cfg.Dir)
	if err != nil || len(entries) == 0 {
		return
	}

	ctx, cancel := i.withTimeout(context.Background())
	defer cancel()

	s, err := openStore(ctx, i.cfg.Dir)
	if err != nil {
		i.markCorrupt(err)
		return
	}

	dim, err := s.dimension(ctx)
	if err == nil && dim > 0 && i.embedder.Dimension() > 0 && dim != i.embedder.Dimension() {
		err = fmt.Errorf("store has %d, embedder %s has %d: %w", dim, i.embedder.Name(), i.embedder.Dimension(), model.ErrDimensionMismatch)
	}
	if err != nil {
		s.close()
		i.markCorrupt(err)
		return
	}

	if name, found, _ := s.meta(ctx, metaEmbedder); found && name != i.embedder.Name() {
		i.log.Warn("index was built with a different embedder", "stored", name, "current", i.embedder.Name())
	}

	chunks, err := s.loadChunks(ctx, dim)
	if err != nil {
		s.close()
		i.markCorrupt(err)
		return
	}

	i.store = s
	i.chunks = chunks
	i.dim = dim
	i.log.Info("loaded index", "dir", i.cfg.Dir, "chunks", len(chunks), "dimension", dim)
}

func (i *Index) markCorrupt(err error) {
	i.corrupt = true
	i.log.Warn("index store unreadable, treating as uninitialized", "dir", i.cfg.Dir, "err", err)
}

func (i *Index) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if i.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, i.cfg.Timeout)
}

// IsInitialized reports whether at least one chunk is persisted
func (i *Index) IsInitialized() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.chunks) > 0
}

// Count returns the number of persisted chunks
func (i *Index) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.chunks)
}

// Add splits units into chunks, embeds them and persists them. The first
// successful Add creates the store; later calls append. Nothing is kept
// if embedding or persistence fails.
func (i *Index) Add(ctx context.Context, units []model.ContextUnit) error {
	if len(units) == 0 {
		i.log.Warn("add called with no units")
		return nil
	}

	var chunks []model.Chunk
	for _, u := range units {
		for _, piece := range i.splitter.Split(u.Content) {
			chunks = append(chunks, model.Chunk{
				ID:          uuid.NewString(),
				SectionName: u.SectionName,
				SourceURL:   u.SourceURL,
				Content:     piece,
			})
		}
	}
	if len(chunks) == 0 {
		i.log.Warn("units produced no chunks", "units", len(units))
		return nil
	}

	texts := make([]string, len(chunks))
	for n, c := range chunks {
		texts[n] = c.Content
	}

	start := time.Now()
	vectors, err := i.embedAll(ctx, texts)
	if err != nil {
		return &model.IndexError{Op: "embed", Err: err}
	}

	dim := len(vectors[0])
	for n, v := range vectors {
		if len(v) != dim || dim == 0 {
			return &model.IndexError{Op: "embed", Err: model.ErrDimensionMismatch}
		}
		chunks[n].Embedding = v
	}

	ctx, cancel := i.withTimeout(ctx)
	defer cancel()

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.dim > 0 && dim != i.dim {
		return &model.IndexError{Op: "add", Err: fmt.Errorf("store has %d, got %d: %w", i.dim, dim, model.ErrDimensionMismatch)}
	}

	if i.store == nil {
		if err := i.create(ctx); err != nil {
			return &model.IndexError{Op: "open", Err: err}
		}
	}

	var next int64
	if n := len(i.chunks); n > 0 {
		next = i.chunks[n-1].Seq + 1
	}
	for n := range chunks {
		chunks[n].Seq = next + int64(n)
	}

	if err := i.store.insertChunks(ctx, chunks, i.embedder.Name(), dim); err != nil {
		return &model.IndexError{Op: "add", Err: err}
	}

	i.chunks = append(i.chunks, chunks...)
	i.dim = dim

	i.log.Info("added chunks",
		"units", len(units),
		"chunks", len(chunks),
		"total", len(i.chunks),
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// embedAll embeds texts in windows of embedWindow, each under its own timeout
func (i *Index) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for lo := 0; lo < len(texts); lo += embedWindow {
		hi := min(lo+embedWindow, len(texts))

		wctx, cancel := i.withTimeout(ctx)
		got, err := i.embedder.Embed(wctx, texts[lo:hi])
		cancel()
		if err != nil {
			return nil, err
		}
		if len(got) != hi-lo {
			return nil, fmt.Errorf("expected %d vectors, got %d", hi-lo, len(got))
		}
		vectors = append(vectors, got...)
	}
	return vectors, nil
}

// create opens a fresh store, first moving an unreadable one aside.
// Caller holds the write lock.
func (i *Index) create(ctx context.Context) error {
	if i.corrupt {
		aside := fmt.Sprintf("%s.corrupt-%d", i.cfg.Dir, time.Now().Unix())
		if err := os.Rename(i.cfg.Dir, aside); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("moving unreadable store aside: %w", err)
		}
		i.log.Warn("moved unreadable index store aside", "path", aside)
		i.corrupt = false
	}

	s, err := openStore(ctx, i.cfg.Dir)
	if err != nil {
		return err
	}
	i.store = s
	return nil
}

// Query returns up to k units most similar to text, most similar first.
// An uninitialized index yields an empty result.
func (i *Index) Query(ctx context.Context, text string, k int) ([]model.ContextUnit, error) {
	hits, err := i.Search(ctx, text, k)
	if err != nil {
		return nil, err
	}

	units := make([]model.ContextUnit, len(hits))
	for n, h := range hits {
		units[n] = h.Unit
	}
	return units, nil
}

// Search is Query with similarity scores
func (i *Index) Search(ctx context.Context, text string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, &model.IndexError{Op: "query", Err: fmt.Errorf("%w, got %d", model.ErrInvalidK, k)}
	}

	// Chunks are append-only, so the snapshot stays valid after unlock
	i.mu.RLock()
	chunks := i.chunks
	i.mu.RUnlock()

	if len(chunks) == 0 {
		i.log.Warn("query on uninitialized index")
		return []Hit{}, nil
	}

	ctx, cancel := i.withTimeout(ctx)
	defer cancel()

	vectors, err := i.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, &model.IndexError{Op: "embed", Err: err}
	}
	if len(vectors) != 1 {
		return nil, &model.IndexError{Op: "embed", Err: fmt.Errorf("expected 1 vector, got %d", len(vectors))}
	}

	hits, err := search(chunks, vectors[0], k)
	if err != nil {
		return nil, &model.IndexError{Op: "query", Err: err}
	}
	return hits, nil
}

// Reset deletes all persisted data, returning the index to the uninitialized state
func (i *Index) Reset() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.store != nil {
		if err := i.store.close(); err != nil {
			i.log.Warn("closing store before reset", "err", err)
		}
		i.store = nil
	}

	if err := os.RemoveAll(i.cfg.Dir); err != nil {
		return &model.IndexError{Op: "reset", Err: err}
	}

	i.chunks = nil
	i.dim = 0
	i.corrupt = false
	i.log.Info("index reset", "dir", i.cfg.Dir)
	return nil
}

// Close releases the database handle
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.store == nil {
		return nil
	}
	err := i.store.close()
	i.store = nil
	return err
}
