// Package retrieval turns a question into knowledge-base snippets by
// embedding it and querying a similarity index.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/embeddings"
	"github.com/papercomputeco/answerdesk/pkg/vector"
)

const (
	// DefaultTopK is the maximum number of snippets returned.
	DefaultTopK = 3

	// DefaultThreshold is the minimum similarity used when none is configured.
	DefaultThreshold float32 = 0.4
)

// ErrRetrieval wraps every embedding or index failure.
var ErrRetrieval = errors.New("retrieval failed")

// Document is a ranked snippet.
type Document struct {
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
}

// Config is the configuration for a Client.
type Config struct {
	Embedder embeddings.Embedder
	Index    vector.Index

	// TopK defaults to 3.
	TopK int

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Client is safe for concurrent use when its Embedder and Index are.
type Client struct {
	embedder embeddings.Embedder
	index    vector.Index
	topK     int
	logger   *zap.Logger
}

// New creates a retrieval Client.
func New(c Config) (*Client, error) {
	if c.Embedder == nil {
		return nil, errors.New("retrieval embedder is required")
	}
	if c.Index == nil {
		return nil, errors.New("retrieval index is required")
	}

	topK := c.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		embedder: c.Embedder,
		index:    c.Index,
		topK:     topK,
		logger:   logger,
	}, nil
}

// Search returns up to TopK documents with similarity >= threshold, most
// similar first. The index enforces the threshold.
func (c *Client) Search(ctx context.Context, question string, threshold float32) ([]Document, error) {
	return c.SearchTopK(ctx, question, threshold, c.topK)
}

// SearchTopK is Search with an explicit result limit.
func (c *Client) SearchTopK(ctx context.Context, question string, threshold float32, topK int) ([]Document, error) {
	if topK <= 0 {
		topK = c.topK
	}

	embedding, err := c.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding question: %w", ErrRetrieval, err)
	}

	results, err := c.index.Match(ctx, embedding, threshold, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: matching documents: %w", ErrRetrieval, err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, Document{Content: r.Content, Similarity: r.Similarity})
	}

	c.logger.Debug("retrieval completed",
		zap.Int("documents", len(docs)),
		zap.Float32("threshold", threshold),
		zap.Int("top_k", topK),
	)
	return docs, nil
}

// FormatContext renders docs as "- content" lines in order, or "" when empty.
func FormatContext(docs []Document) string {
	if len(docs) == 0 {
		return ""
	}

	lines := make([]string, len(docs))
	for i, d := range docs {
		lines[i] = "- " + d.Content
	}
	return strings.Join(lines, "\n")
}
