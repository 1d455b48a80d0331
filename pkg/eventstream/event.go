// Package eventstream publishes resolution outcome events to downstream
// consumers.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// ResolutionCompletedType is the event type of every published outcome.
	ResolutionCompletedType = "answerdesk.resolution.completed"

	// SchemaVersion is bumped on incompatible payload changes.
	SchemaVersion = 1
)

// Event is the JSON payload of an outcome event. The question and answer
// text are not included.
type Event struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	SchemaVersion int       `json:"schema_version"`
	OccurredAt    time.Time `json:"occurred_at"`

	SessionID    string `json:"session_id"`
	UserID       string `json:"user_id"`
	Layer        int    `json:"layer"`
	Provider     string `json:"provider,omitempty"`
	Documents    int    `json:"documents"`
	LatencyMs    int64  `json:"latency_ms"`
	CacheMs      int64  `json:"cache_ms"`
	RetrievalMs  int64  `json:"retrieval_ms"`
	GenerationMs int64  `json:"generation_ms"`
	Failed       bool   `json:"failed"`
}

// NewResolutionCompleted stamps an event with a fresh id, the type and the
// schema version.
func NewResolutionCompleted(occurredAt time.Time) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          ResolutionCompletedType,
		SchemaVersion: SchemaVersion,
		OccurredAt:    occurredAt.UTC(),
	}
}

// Validate rejects events that were not built with NewResolutionCompleted.
func (e Event) Validate() error {
	if e.ID == "" || e.Type == "" || e.SchemaVersion == 0 {
		return ErrInvalidEvent
	}
	return nil
}
