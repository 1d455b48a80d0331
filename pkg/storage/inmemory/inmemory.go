// Package inmemory provides a storage.Driver backed by process memory.
package inmemory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/answerdesk/pkg/conversation"
	"github.com/papercomputeco/answerdesk/pkg/storage"
)

// Driver implements storage.Driver using slices and maps.
type Driver struct {
	// mu guards every field below
	mu sync.RWMutex

	logs     []storage.ChatLog
	sessions map[string]storage.Session
	archives map[string][]conversation.Archive
	nextID   int64
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		sessions: make(map[string]storage.Session),
		archives: make(map[string][]conversation.Archive),
	}
}

func (d *Driver) InsertChatLog(_ context.Context, log storage.ChatLog) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	log.ID = d.nextID
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	d.logs = append(d.logs, log)
	return nil
}

func (d *Driver) RecentChatLogs(_ context.Context, limit int) ([]storage.ChatLog, error) {
	if limit <= 0 {
		limit = storage.DefaultRecentLimit
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]storage.ChatLog, 0, min(limit, len(d.logs)))
	for i := len(d.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, d.logs[i])
	}
	return out, nil
}

func (d *Driver) Stats(_ context.Context) (storage.Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := storage.NewStats()
	var total int64
	for _, l := range d.logs {
		stats.ChatLogs++
		stats.Layers[l.Layer]++
		if l.Provider != "" {
			stats.Providers[l.Provider]++
		}
		total += l.LatencyMs
	}
	if stats.ChatLogs > 0 {
		stats.AverageLatencyMs = float64(total) / float64(stats.ChatLogs)
	}
	return stats, nil
}

func (d *Driver) CreateSession(_ context.Context, userID string, metadata map[string]any) (storage.Session, error) {
	s := storage.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Metadata:  maps.Clone(metadata),
		CreatedAt: time.Now(),
	}

	d.mu.Lock()
	d.sessions[s.ID] = s
	d.mu.Unlock()
	return s, nil
}

func (d *Driver) GetSession(_ context.Context, id string) (storage.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.sessions[id]
	if !ok {
		return storage.Session{}, storage.NotFoundError{ID: id}
	}
	return s, nil
}

func (d *Driver) ArchiveConversation(_ context.Context, archive conversation.Archive) error {
	archive.Turns = slices.Clone(archive.Turns)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.archives[archive.UserID] = append(d.archives[archive.UserID], archive)
	return nil
}

func (d *Driver) Archives(_ context.Context, userID string) ([]conversation.Archive, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.archives[userID]), nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

var (
	_ storage.Driver        = (*Driver)(nil)
	_ conversation.Archiver = (*Driver)(nil)
)
