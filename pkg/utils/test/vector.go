package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/answerdesk/pkg/vector"
)

// MockIndex is a vector.Index returning canned results. It records the
// threshold and topK of the last Match call.
type MockIndex struct {
	Results []vector.Result
	Err     error
	Dim     int

	mu            sync.Mutex
	lastThreshold float32
	lastTopK      int
	matches       int
}

func NewMockIndex(dim int, results ...vector.Result) *MockIndex {
	return &MockIndex{Dim: dim, Results: results}
}

func (m *MockIndex) Match(_ context.Context, embedding []float32, threshold float32, topK int) ([]vector.Result, error) {
	m.mu.Lock()
	m.lastThreshold = threshold
	m.lastTopK = topK
	m.matches++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if err := vector.CheckDimensions(embedding, m.Dim); err != nil {
		return nil, err
	}
	if len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockIndex) Dimensions() int {
	return m.Dim
}

func (m *MockIndex) Close() error {
	return nil
}

// Last returns the threshold and topK of the most recent Match.
func (m *MockIndex) Last() (float32, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastThreshold, m.lastTopK
}

// Matches returns how many times Match was called.
func (m *MockIndex) Matches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matches
}

var _ vector.Index = (*MockIndex)(nil)
