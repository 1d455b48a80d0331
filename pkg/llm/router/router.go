// Package router selects between a primary and a fallback generation provider
// and routes embedding requests to a dedicated provider.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/llm"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 30 * time.Second

var (
	// ErrUnknownProvider is returned by New when a configured name has no
	// registered provider.
	ErrUnknownProvider = errors.New("provider is not registered")

	// ErrAllProvidersFailed is wrapped by GenerationError.
	ErrAllProvidersFailed = errors.New("all generation providers failed")
)

// GenerationError reports that the primary and the fallback both failed.
type GenerationError struct {
	Primary  error
	Fallback error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%v: primary: %v; fallback: %v", ErrAllProvidersFailed, e.Primary, e.Fallback)
}

// Unwrap exposes the sentinel and both causes to errors.Is / errors.As.
func (e *GenerationError) Unwrap() []error {
	return []error{ErrAllProvidersFailed, e.Primary, e.Fallback}
}

// Config names the providers used for each role.
type Config struct {
	Primary   string
	Fallback  string
	Embedding string

	// Timeout bounds each provider call. Defaults to 30s.
	Timeout time.Duration

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Router is safe for concurrent use.
type Router struct {
	primary   llm.Provider
	fallback  llm.Provider
	embedding llm.Provider
	timeout   time.Duration
	logger    *zap.Logger
}

// New resolves the configured names against providers.
func New(c Config, providers map[string]llm.Provider) (*Router, error) {
	lookup := func(role, name string) (llm.Provider, error) {
		p, ok := providers[name]
		if !ok || p == nil {
			return nil, fmt.Errorf("%w: %s provider %q", ErrUnknownProvider, role, name)
		}
		return p, nil
	}

	primary, err := lookup("primary", c.Primary)
	if err != nil {
		return nil, err
	}
	fallback, err := lookup("fallback", c.Fallback)
	if err != nil {
		return nil, err
	}
	embedding, err := lookup("embedding", c.Embedding)
	if err != nil {
		return nil, err
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Router{
		primary:   primary,
		fallback:  fallback,
		embedding: embedding,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Generate asks the primary provider and, on any failure, the fallback with
// the same arguments. It returns the answer and the name of the provider that
// produced it.
func (r *Router) Generate(ctx context.Context, question, promptContext string) (string, string, error) {
	answer, primaryErr := r.call(ctx, r.primary, question, promptContext)
	if primaryErr == nil {
		return answer, r.primary.Name(), nil
	}

	r.logger.Warn("primary provider failed, trying fallback",
		zap.String("primary", r.primary.Name()),
		zap.String("fallback", r.fallback.Name()),
		zap.Error(primaryErr),
	)

	answer, fallbackErr := r.call(ctx, r.fallback, question, promptContext)
	if fallbackErr == nil {
		return answer, r.fallback.Name(), nil
	}

	r.logger.Error("fallback provider failed",
		zap.String("fallback", r.fallback.Name()),
		zap.Error(fallbackErr),
	)
	return "", "", &GenerationError{Primary: primaryErr, Fallback: fallbackErr}
}

func (r *Router) call(ctx context.Context, p llm.Provider, question, promptContext string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	answer, err := p.GenerateResponse(ctx, question, promptContext)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return "", llm.NewError(p.Name(), llm.OpGenerate, llm.ErrEmptyResponse)
	}
	return answer, nil
}

// Embed converts text into an embedding with the embedding provider.
func (r *Router) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.embedding.GenerateEmbedding(ctx, text)
}

// Primary returns the primary provider name.
func (r *Router) Primary() string {
	return r.primary.Name()
}

// Fallback returns the fallback provider name.
func (r *Router) Fallback() string {
	return r.fallback.Name()
}
