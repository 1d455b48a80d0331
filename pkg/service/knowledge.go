package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/vector"
)

var (
	// ErrRetrievalOff is returned by Seed when the knowledge base is disabled.
	ErrRetrievalOff = errors.New("knowledge base is disabled")

	// ErrReadOnlyIndex is returned by Seed for indexes maintained outside
	// answerdesk (the postgres match function, for example).
	ErrReadOnlyIndex = errors.New("vector index cannot be seeded")
)

// KnowledgeDoc is one knowledge-base snippet in a seed file.
type KnowledgeDoc struct {
	ID      string `json:"id,omitempty"`
	Content string `json:"content"`
}

// LoadKnowledge reads a JSON array of KnowledgeDoc from path. Snippets
// without content are skipped.
func LoadKnowledge(path string) ([]KnowledgeDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading knowledge file: %w", err)
	}

	var docs []KnowledgeDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parsing knowledge file %s: %w", path, err)
	}

	kept := docs[:0]
	for _, d := range docs {
		if strings.TrimSpace(d.Content) == "" {
			continue
		}
		kept = append(kept, d)
	}
	return kept, nil
}

// Seed embeds docs with the embedding provider and stores them in the
// knowledge-base index. Documents without an ID get a random one.
func (s *Service) Seed(ctx context.Context, docs []KnowledgeDoc) (int, error) {
	if s.index == nil {
		return 0, ErrRetrievalOff
	}
	writer, ok := s.index.(vector.Writer)
	if !ok {
		return 0, fmt.Errorf("%w: %T", ErrReadOnlyIndex, s.index)
	}

	batch := make([]vector.Document, 0, len(docs))
	for _, d := range docs {
		embedding, err := s.Router.Embed(ctx, d.Content)
		if err != nil {
			return 0, fmt.Errorf("embedding snippet %q: %w", d.ID, err)
		}
		if err := vector.CheckDimensions(embedding, s.index.Dimensions()); err != nil {
			return 0, err
		}

		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		batch = append(batch, vector.Document{ID: id, Content: d.Content, Embedding: embedding})
	}

	if err := writer.Add(ctx, batch); err != nil {
		return 0, fmt.Errorf("adding snippets: %w", err)
	}

	s.logger.Info("knowledge base seeded", zap.Int("documents", len(batch)))
	return len(batch), nil
}
