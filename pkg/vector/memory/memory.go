// Package memory provides a brute-force in-process vector.Index.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/papercomputeco/answerdesk/pkg/vector"
)

// Index keeps documents by ID and scores them by cosine similarity.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	docs       map[string]vector.Document
}

// NewIndex creates an empty index for embeddings of the given length.
func NewIndex(dimensions int) *Index {
	return &Index{
		dimensions: dimensions,
		docs:       make(map[string]vector.Document),
	}
}

// Add stores documents, replacing any with the same ID.
func (i *Index) Add(_ context.Context, docs []vector.Document) error {
	for _, d := range docs {
		if err := vector.CheckDimensions(d.Embedding, i.dimensions); err != nil {
			return err
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	for _, d := range docs {
		i.docs[d.ID] = d
	}
	return nil
}

// Match scores every document and returns those at or above threshold.
func (i *Index) Match(_ context.Context, embedding []float32, threshold float32, topK int) ([]vector.Result, error) {
	if err := vector.CheckDimensions(embedding, i.dimensions); err != nil {
		return nil, err
	}

	type candidate struct {
		id     string
		result vector.Result
	}

	i.mu.RLock()
	candidates := make([]candidate, 0, len(i.docs))
	for _, d := range i.docs {
		sim := cosine(embedding, d.Embedding)
		if sim < threshold {
			continue
		}
		candidates = append(candidates, candidate{
			id:     d.ID,
			result: vector.Result{Content: d.Content, Similarity: sim},
		})
	}
	i.mu.RUnlock()

	// Equal similarities are ordered by ID so top-k truncation is stable.
	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].result.Similarity != candidates[b].result.Similarity {
			return candidates[a].result.Similarity > candidates[b].result.Similarity
		}
		return candidates[a].id < candidates[b].id
	})

	results := make([]vector.Result, len(candidates))
	for k, c := range candidates {
		results[k] = c.result
	}

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Dimensions returns the configured embedding length.
func (i *Index) Dimensions() int {
	return i.dimensions
}

// Close is a no-op.
func (i *Index) Close() error {
	return nil
}

// cosine returns the cosine similarity clamped to [0,1].
func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for k := range a {
		dot += float64(a[k]) * float64(b[k])
		na += float64(a[k]) * float64(a[k])
		nb += float64(b[k]) * float64(b[k])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return float32(math.Max(0, math.Min(1, sim)))
}

var (
	_ vector.Index  = (*Index)(nil)
	_ vector.Writer = (*Index)(nil)
)
