package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/answerdesk/pkg/conversation"
)

// MockArchiver records archived conversations.
type MockArchiver struct {
	mu       sync.Mutex
	archives []conversation.Archive
	calls    int

	// Err, when set, is returned from every ArchiveConversation call.
	Err error
}

func NewMockArchiver() *MockArchiver {
	return &MockArchiver{}
}

func (m *MockArchiver) ArchiveConversation(_ context.Context, a conversation.Archive) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.Err != nil {
		return m.Err
	}
	m.archives = append(m.archives, a)
	return nil
}

// Archives returns a copy of every successfully archived conversation.
func (m *MockArchiver) Archives() []conversation.Archive {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]conversation.Archive(nil), m.archives...)
}

// Calls returns how many times ArchiveConversation was invoked.
func (m *MockArchiver) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
