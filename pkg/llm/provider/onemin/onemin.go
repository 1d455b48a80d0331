// Package onemin implements llm.Provider on the 1min.ai features API.
package onemin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/answerdesk/pkg/llm"
)

const (
	Name = "onemin"

	DefaultBaseURL = "https://api.1min.ai"
	DefaultModel   = "gemini-2.5-flash"

	featureType = "CONTENT_GENERATOR_EMAIL_REPLY"
)

type promptObject struct {
	Tone     string `json:"tone"`
	Language string `json:"language"`
	Prompt   string `json:"prompt"`
}

type featureRequest struct {
	Type           string       `json:"type"`
	Model          string       `json:"model"`
	ConversationID string       `json:"conversationId"`
	PromptObject   promptObject `json:"promptObject"`
}

// Provider calls the email-reply content generator, which 1min.ai exposes
// as a general text completion endpoint.
type Provider struct {
	c llm.Config
}

// New creates a 1min.ai provider.
func New(c llm.Config) (*Provider, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", Name, llm.ErrMissingAPIKey)
	}
	return &Provider{c: c.WithDefaults(DefaultBaseURL, DefaultModel, "")}, nil
}

func (p *Provider) Name() string {
	return Name
}

// GenerateResponse posts the shared prompt and digs the answer out of the
// aiRecord envelope.
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
	language := "English"
	if p.c.Prompt.Language() == "vi" {
		language = "Vietnamese"
	}

	body, err := llm.PostJSON(ctx, p.c.HTTPClient, p.c.BaseURL+"/api/features",
		map[string]string{"API-KEY": p.c.APIKey},
		featureRequest{
			Type:           featureType,
			Model:          p.c.Model,
			ConversationID: featureType,
			PromptObject: promptObject{
				Tone:     "professional",
				Language: language,
				Prompt:   prompt,
			},
		},
	)
	if err != nil {
		return "", err
	}

	text, err := ExtractText(body)
	if err != nil {
		return "", err
	}
	return text, nil
}

// GenerateEmbedding is not offered by 1min.ai.
func (p *Provider) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return nil, llm.NewError(Name, llm.OpEmbed, llm.ErrEmbeddingUnsupported)
}

// ExtractText pulls the answer from a features response. The body may be a
// JSON object or a JSON string holding the serialized object. The answer is
// aiRecord.aiRecordDetail.resultObject[0], falling back to a top-level
// output, result or text field.
func ExtractText(body []byte) (string, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if s, ok := raw.(string); ok {
		var inner any
		if err := json.Unmarshal([]byte(s), &inner); err != nil {
			// a bare string body is the answer itself
			return nonEmpty(s)
		}
		raw = inner
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return "", fmt.Errorf("unexpected response shape %T", raw)
	}

	record := nested(m, "aiRecord", "aiRecordDetail")
	if results, ok := record["resultObject"].([]any); ok && len(results) > 0 {
		if s, ok := results[0].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), nil
		}
	}

	return nonEmpty(extractString(m, "output", "result", "text"))
}

func nested(m map[string]any, keys ...string) map[string]any {
	cur := m
	for _, k := range keys {
		next, ok := cur[k].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func extractString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", llm.ErrEmptyResponse
	}
	return s, nil
}

var _ llm.Provider = (*Provider)(nil)
