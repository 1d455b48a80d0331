// Package search provides knowledge-base search shared by the REST endpoint
// and the MCP knowledge_search tool.
package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/retrieval"
)

// DefaultTopK is used when a request does not set top_k.
const DefaultTopK = 5

// ErrNotConfigured is returned when no Searcher is available.
var ErrNotConfigured = errors.New("knowledge search is not configured")

// Searcher is satisfied by *retrieval.Client.
type Searcher interface {
	SearchTopK(ctx context.Context, question string, threshold float32, topK int) ([]retrieval.Document, error)
}

// SearchInput represents the input arguments for a search request.
type SearchInput struct {
	Query     string  `json:"query"`
	TopK      int     `json:"top_k,omitempty"`
	Threshold float32 `json:"threshold,omitempty"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
}

// SearchOutput represents the output of a search operation.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// Search runs a similarity search over the knowledge base. A zero threshold
// in input falls back to defaultThreshold.
func Search(
	ctx context.Context,
	input SearchInput,
	defaultThreshold float32,
	searcher Searcher,
	logger *zap.Logger,
) (*SearchOutput, error) {
	if searcher == nil {
		return nil, ErrNotConfigured
	}

	topK := input.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	threshold := input.Threshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}

	logger.Debug("search request",
		zap.String("query", input.Query),
		zap.Int("topK", topK),
		zap.Float32("threshold", threshold),
	)

	docs, err := searcher.SearchTopK(ctx, input.Query, threshold, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge base: %w", err)
	}

	results := make([]SearchResult, 0, len(docs))
	for _, d := range docs {
		results = append(results, SearchResult{Content: d.Content, Similarity: d.Similarity})
	}

	return &SearchOutput{
		Query:   input.Query,
		Results: results,
		Count:   len(results),
	}, nil
}
