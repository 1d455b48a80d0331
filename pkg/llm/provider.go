// Package llm defines the generation provider contract shared by every
// provider implementation and the router.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/prompt"
)

var (
	// ErrEmptyResponse is returned when a provider answers with no usable text.
	ErrEmptyResponse = errors.New("provider returned an empty response")

	// ErrEmbeddingUnsupported is returned by providers without an embedding API.
	ErrEmbeddingUnsupported = errors.New("provider does not support embeddings")

	// ErrMissingAPIKey is returned when a provider that needs a key has none.
	ErrMissingAPIKey = errors.New("provider API key is not configured")
)

// Provider generates answers and embeddings.
type Provider interface {
	// Name returns the canonical provider name (e.g. "gemini", "mistral").
	Name() string

	// GenerateResponse answers question using the supplied context block.
	GenerateResponse(ctx context.Context, question, promptContext string) (string, error)

	// GenerateEmbedding converts text into a vector embedding.
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Error is a failure from a single provider call.
type Error struct {
	Provider string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Op names used in Error.
const (
	OpGenerate = "generate"
	OpEmbed    = "embed"
)

// NewError wraps err as a provider failure.
func NewError(provider, op string, err error) *Error {
	return &Error{Provider: provider, Op: op, Err: err}
}

// Config is the configuration shared by provider constructors.
type Config struct {
	// APIKey authenticates against the provider. Not needed for local providers.
	APIKey string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// Model is the generation model.
	Model string

	// EmbeddingModel is the embedding model.
	EmbeddingModel string

	// HTTPClient is used for REST providers. Defaults to a client with a 60s timeout.
	HTTPClient *http.Client

	// Prompt renders the chat prompt. Defaults to prompt.Default().
	Prompt *prompt.Builder

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults(baseURL, model, embeddingModel string) Config {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = model
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = embeddingModel
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if c.Prompt == nil {
		c.Prompt = prompt.Default()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
