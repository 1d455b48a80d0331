// Package gemini implements llm.Provider on the Google Generative Language REST API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/answerdesk/pkg/llm"
)

const (
	Name = "gemini"

	DefaultBaseURL        = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel          = "gemini-2.5-flash"
	DefaultEmbeddingModel = "text-embedding-004"
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type embedRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Provider calls generateContent and embedContent.
type Provider struct {
	c llm.Config
}

// New creates a Gemini provider.
func New(c llm.Config) (*Provider, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", Name, llm.ErrMissingAPIKey)
	}
	return &Provider{c: c.WithDefaults(DefaultBaseURL, DefaultModel, DefaultEmbeddingModel)}, nil
}

func (p *Provider) Name() string {
	return Name
}

// GenerateResponse renders the shared prompt and joins the text parts of the
// first candidate.
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
	url := fmt.Sprintf("%s/models/%s:generateContent", p.c.BaseURL, p.c.Model)
	body, err := llm.PostJSON(ctx, p.c.HTTPClient, url, p.headers(), generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", llm.ErrEmptyResponse
	}

	var b strings.Builder
	for _, pt := range resp.Candidates[0].Content.Parts {
		b.WriteString(pt.Text)
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// GenerateEmbedding calls embedContent with the configured embedding model.
func (p *Provider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	url := fmt.Sprintf("%s/models/%s:embedContent", p.c.BaseURL, p.c.EmbeddingModel)
	body, err := llm.PostJSON(ctx, p.c.HTTPClient, url, p.headers(), embedRequest{
		Model:   "models/" + p.c.EmbeddingModel,
		Content: content{Parts: []part{{Text: text}}},
	})
	if err != nil {
		return nil, llm.NewError(Name, llm.OpEmbed, err)
	}

	var resp embedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, llm.NewError(Name, llm.OpEmbed, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, llm.NewError(Name, llm.OpEmbed, llm.ErrEmptyResponse)
	}
	return resp.Embedding.Values, nil
}

func (p *Provider) headers() map[string]string {
	return map[string]string{"x-goog-api-key": p.c.APIKey}
}

var _ llm.Provider = (*Provider)(nil)
