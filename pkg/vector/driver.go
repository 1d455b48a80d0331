// Package vector provides the similarity-index interface and its drivers.
package vector

import (
	"context"
	"fmt"
)

// Document is a knowledge-base snippet with its embedding, used for seeding.
type Document struct {
	// ID is a unique identifier for the document.
	ID string

	// Content is the snippet text returned on a match.
	Content string

	// Embedding is the vector representation of Content.
	Embedding []float32
}

// Result is a matched snippet.
type Result struct {
	Content string

	// Similarity is in [0,1], higher is more similar.
	Similarity float32
}

// Index answers similarity queries against a knowledge base.
type Index interface {
	// Match returns at most topK results whose similarity is at least
	// threshold, in descending similarity order. The threshold is enforced by
	// the index itself.
	Match(ctx context.Context, embedding []float32, threshold float32, topK int) ([]Result, error)

	// Dimensions is the embedding length the index was built for.
	Dimensions() int

	// Close releases any resources held by the index.
	Close() error
}

// Writer is implemented by indexes that can be seeded from Go.
type Writer interface {
	// Add stores documents, replacing any with the same ID.
	Add(ctx context.Context, docs []Document) error
}

// CheckDimensions fails with ErrDimensionMismatch unless len(embedding) == want.
func CheckDimensions(embedding []float32, want int) error {
	if len(embedding) != want {
		return fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(embedding), want)
	}
	return nil
}
