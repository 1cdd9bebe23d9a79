package embedding

import (
	"context"
	"fmt"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/worker"
)

// Batcher splits large inputs into batches embedded concurrently on a
// worker pool, each call waiting on a shared rate limiter
type Batcher struct {
	inner     Embedder
	batchSize int
	workers   int
	limiter   *worker.Limiter
}

var _ Embedder = (*Batcher)(nil)

// NewBatcher wraps inner. A nil limiter means no rate limiting.
func NewBatcher(inner Embedder, batchSize, workers int, limiter *worker.Limiter) *Batcher {
	if batchSize <= 0 {
		batchSize = 64
	}
	if workers <= 0 {
		workers = 1
	}
	return &Batcher{
		inner:     inner,
		batchSize: batchSize,
		workers:   workers,
		limiter:   limiter,
	}
}

// Name returns the wrapped embedder's name
func (b *Batcher) Name() string { return b.inner.Name() }

// Dimension returns the wrapped embedder's dimension
func (b *Batcher) Dimension() int { return b.inner.Dimension() }

// batchJob embeds one slice of the input
type batchJob struct {
	b     *Batcher
	texts []string
}

type batchResult struct {
	vectors [][]float32
	err     error
}

func (r *batchResult) GetError() error { return r.err }

func (j *batchJob) Execute(ctx context.Context) worker.Result {
	if j.b.limiter != nil {
		if err := j.b.limiter.Wait(ctx, j.b.inner.Name()); err != nil {
			return &batchResult{err: err}
		}
	}
	vectors, err := j.b.inner.Embed(ctx, j.texts)
	if err == nil && len(vectors) != len(j.texts) {
		err = fmt.Errorf("expected %d vectors, got %d", len(j.texts), len(vectors))
	}
	return &batchResult{vectors: vectors, err: err}
}

// Embed embeds texts in order; the first failing batch fails the call
func (b *Batcher) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var jobs []worker.Job
	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))
		jobs = append(jobs, &batchJob{b: b, texts: texts[start:end]})
	}

	// One batch needs no pool
	if len(jobs) == 1 {
		res := jobs[0].Execute(ctx).(*batchResult)
		return res.vectors, res.err
	}

	results := worker.RunOrdered(ctx, b.workers, jobs)
	if err := worker.FirstError(results); err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(texts))
	for _, r := range results {
		out = append(out, r.(*batchResult).vectors...)
	}
	return out, nil
}
