// Package ollama implements llm.Provider on a local Ollama server.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/answerdesk/pkg/llm"
)

const (
	Name = "ollama"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	DefaultModel = "llama3.2"

	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "nomic-embed-text"
)

// Provider calls /api/generate and /api/embed. No API key is needed.
type Provider struct {
	c llm.Config
}

// New creates an Ollama provider.
func New(c llm.Config) (*Provider, error) {
	return &Provider{c: c.WithDefaults(DefaultBaseURL, DefaultModel, DefaultEmbeddingModel)}, nil
}

func (p *Provider) Name() string {
	return Name
}

// GenerateResponse runs a single non-streaming completion of the shared prompt.
func (p *Provider) GenerateResponse(ctx context.Context, question, promptContext string) (string, error) {
	start := time.Now()
	text, err := p.generate(ctx, p.c.Prompt.Chat(question, promptContext))
	llm.LogCall(p.c.Logger, Name, p.c.Model, question, text, time.Since(start), err)
	if err != nil {
		return "", llm.NewError(Name, llm.OpGenerate, err)
	}
	return text, nil
}

func (p *Provider) generate(ctx context.Context, prompt string) (string, error) {
	body, err := llm.PostJSON(ctx, p.c.HTTPClient, p.c.BaseURL+"/api/generate", nil, generateRequest{
		Model:  p.c.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	text := strings.TrimSpace(resp.Response)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// GenerateEmbedding converts text into a vector embedding.
func (p *Provider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	body, err := llm.PostJSON(ctx, p.c.HTTPClient, p.c.BaseURL+"/api/embed", nil, embedRequest{
		Model: p.c.EmbeddingModel,
		Input: text,
	})
	if err != nil {
		return nil, llm.NewError(Name, llm.OpEmbed, err)
	}

	var resp embedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, llm.NewError(Name, llm.OpEmbed, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, llm.NewError(Name, llm.OpEmbed, llm.ErrEmptyResponse)
	}

	return resp.Embeddings[0], nil
}

var _ llm.Provider = (*Provider)(nil)
