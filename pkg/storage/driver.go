// Package storage persists chat logs, chat sessions and archived
// conversations.
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/answerdesk/pkg/conversation"
)

// DefaultRecentLimit is used by RecentChatLogs when limit <= 0.
const DefaultRecentLimit = 20

// ChatLog is one resolved question.
type ChatLog struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Question  string    `json:"user_question"`
	Answer    string    `json:"bot_response"`
	Provider  string    `json:"provider"`
	LatencyMs int64     `json:"latency_ms"`
	Layer     int       `json:"handled_by_layer"`
	CreatedAt time.Time `json:"created_at"`
}

// Session groups the chat logs of one client session.
type Session struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// Stats aggregates the chat log table.
type Stats struct {
	ChatLogs         int64            `json:"chat_logs"`
	Layers           map[int]int64    `json:"layers"`
	Providers        map[string]int64 `json:"providers"`
	AverageLatencyMs float64          `json:"average_latency_ms"`
}

// Driver is a persistent store. Every driver also satisfies
// conversation.Archiver.
type Driver interface {
	// InsertChatLog appends a chat log. A zero CreatedAt is set to now.
	InsertChatLog(ctx context.Context, log ChatLog) error

	// RecentChatLogs returns up to limit chat logs, newest first.
	RecentChatLogs(ctx context.Context, limit int) ([]ChatLog, error)

	// Stats aggregates every stored chat log.
	Stats(ctx context.Context) (Stats, error)

	// CreateSession creates a session with a fresh UUID.
	CreateSession(ctx context.Context, userID string, metadata map[string]any) (Session, error)

	// GetSession returns NotFoundError when id is unknown.
	GetSession(ctx context.Context, id string) (Session, error)

	// ArchiveConversation stores an expired conversation.
	ArchiveConversation(ctx context.Context, archive conversation.Archive) error

	// Archives returns the archived conversations of userID, oldest first.
	Archives(ctx context.Context, userID string) ([]conversation.Archive, error)

	// Close closes the store and releases any resources.
	Close() error
}

// NewStats returns a Stats with its maps allocated.
func NewStats() Stats {
	return Stats{
		Layers:    make(map[int]int64),
		Providers: make(map[string]int64),
	}
}
