// Package embeddings defines the text-to-vector contract used by retrieval.
package embeddings

import (
	"context"

	"github.com/papercomputeco/answerdesk/pkg/llm"
)

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProviderEmbedder adapts a single llm.Provider to Embedder, for tools that
// embed without a router (seeding an index, for example).
type ProviderEmbedder struct {
	Provider llm.Provider
}

func (e ProviderEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.Provider.GenerateEmbedding(ctx, text)
}

var _ Embedder = ProviderEmbedder{}
