package conversation

import (
	"context"
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is a read-only copy of a live conversation.
type Snapshot struct {
	UserID       string
	Turns        []Turn
	CreatedAt    time.Time
	LastActivity time.Time
}

// Archive is an evicted conversation handed to long-term storage.
type Archive struct {
	UserID       string
	Turns        []Turn
	StartedAt    time.Time
	EndedAt      time.Time
	MessageCount int
}

// Archiver persists evicted conversations.
type Archiver interface {
	ArchiveConversation(ctx context.Context, archive Archive) error
}

// Labels are the strings used when rendering a conversation for a prompt.
type Labels struct {
	Header    string
	User      string
	Assistant string
}

// DefaultLabels renders transcripts in English.
var DefaultLabels = Labels{
	Header:    "[RECENT CONVERSATION]",
	User:      "User",
	Assistant: "Assistant",
}
