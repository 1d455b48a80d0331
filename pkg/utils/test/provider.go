package testutils

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/answerdesk/pkg/llm"
)

// MockProvider is a scriptable llm.Provider.
type MockProvider struct {
	ProviderName string

	// Answer is returned by GenerateResponse unless Err is set.
	Answer string
	Err    error

	// Delay is waited out (or ctx cancellation) before answering.
	Delay time.Duration

	Embedding []float32
	EmbedErr  error

	mu       sync.Mutex
	contexts []string
	calls    atomic.Int64
}

// NewMockProvider creates a provider that answers with answer.
func NewMockProvider(name, answer string) *MockProvider {
	return &MockProvider{
		ProviderName: name,
		Answer:       answer,
		Embedding:    []float32{0.1, 0.2, 0.3},
	}
}

func (m *MockProvider) Name() string {
	return m.ProviderName
}

func (m *MockProvider) GenerateResponse(ctx context.Context, _, promptContext string) (string, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.contexts = append(m.contexts, promptContext)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return "", llm.NewError(m.ProviderName, llm.OpGenerate, ctx.Err())
		}
	}

	if m.Err != nil {
		return "", llm.NewError(m.ProviderName, llm.OpGenerate, m.Err)
	}
	return m.Answer, nil
}

func (m *MockProvider) GenerateEmbedding(_ context.Context, _ string) ([]float32, error) {
	if m.EmbedErr != nil {
		return nil, llm.NewError(m.ProviderName, llm.OpEmbed, m.EmbedErr)
	}
	return m.Embedding, nil
}

// Calls returns how many times GenerateResponse ran.
func (m *MockProvider) Calls() int {
	return int(m.calls.Load())
}

// Contexts returns the context blocks passed to GenerateResponse, in order.
func (m *MockProvider) Contexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.contexts...)
}

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Return a default embedding for any text
	return []float32{0.1, 0.2, 0.3}, nil
}

var _ llm.Provider = (*MockProvider)(nil)
