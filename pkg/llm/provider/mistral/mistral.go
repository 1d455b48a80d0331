// Package mistral implements llm.Provider on Mistral's OpenAI-compatible API
// through langchaingo.
package mistral

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/papercomputeco/answerdesk/pkg/llm"
)

const (
	Name = "mistral"

	DefaultBaseURL        = "https://api.mistral.ai/v1"
	DefaultModel          = "mistral-small-2506"
	DefaultEmbeddingModel = "mistral-embed"
)

// Provider wraps a langchaingo OpenAI client pointed at Mistral.
type Provider struct {
	c        llm.Config
	client   llms.Model
	embedder embeddings.Embedder
}

// New creates a Mistral provider.
func New(c llm.Config) (*Provider, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", Name, llm.ErrMissingAPIKey)
	}
	c = c.WithDefaults(DefaultBaseURL, DefaultModel, DefaultEmbeddingModel)

	client, err := openai.New(
		openai.WithBaseURL(c.BaseURL),
		openai.WithToken(c.APIKey),
		openai.WithModel(c.Model),
		openai.WithEmbeddingModel(c.EmbeddingModel),
		openai.WithHTTPClient(c.HTTPClient),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mistral client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("creating mistral embedder: %w", err)
	}

	return &Provider{c: c, client: client, embedder: embedder}, nil
}

func (p *Provider) Name() string {
	return Name
}

// GenerateResponse sends the shared prompt as a single user message.
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
	resp, err := p.client.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// GenerateEmbedding embeds text with mistral-embed.
func (p *Provider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, llm.NewError(Name, llm.OpEmbed, err)
	}
	if len(vec) == 0 {
		return nil, llm.NewError(Name, llm.OpEmbed, llm.ErrEmptyResponse)
	}
	return vec, nil
}

var _ llm.Provider = (*Provider)(nil)
