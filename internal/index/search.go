package index

import (
	"math"
	"sort"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/model"
)

// Hit is a retrieved chunk with its similarity to the query
type Hit struct {
	Unit  model.ContextUnit
	Score float32
}

// cosineSimilarity returns a value in [-1, 1]; 0 for zero vectors
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// search scores every chunk against query and returns the best k, most
// similar first. Equal scores keep insertion order.
func search(chunks []model.Chunk, query []float32, k int) ([]Hit, error) {
	type scored struct {
		chunk *model.Chunk
		score float32
	}

	results := make([]scored, 0, len(chunks))
	for i := range chunks {
		if len(chunks[i].Embedding) != len(query) {
			return nil, model.ErrDimensionMismatch
		}
		results = append(results, scored{
			chunk: &chunks[i],
			score: cosineSimilarity(query, chunks[i].Embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].chunk.Seq < results[j].chunk.Seq
	})

	if k < len(results) {
		results = results[:k]
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{Unit: r.chunk.Unit(), Score: r.score}
	}
	return hits, nil
}
