// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/answerdesk/pkg/conversation"
	"github.com/papercomputeco/answerdesk/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_logs (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id       TEXT NOT NULL DEFAULT '',
	user_id          TEXT NOT NULL DEFAULT '',
	user_question    TEXT NOT NULL,
	bot_response     TEXT NOT NULL,
	provider         TEXT NOT NULL DEFAULT '',
	latency_ms       INTEGER NOT NULL DEFAULT 0,
	handled_by_layer INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS chat_logs_created_at ON chat_logs (created_at);

CREATE TABLE IF NOT EXISTS conversation_archive (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id           TEXT NOT NULL,
	conversation_data TEXT NOT NULL,
	started_at        DATETIME NOT NULL,
	ended_at          DATETIME NOT NULL,
	message_count     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS conversation_archive_user_id ON conversation_archive (user_id);
`

// Driver implements storage.Driver using SQLite.
type Driver struct {
	db *sql.DB
}

// NewDriver creates a new SQLite-backed store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(ctx context.Context, dbPath string) (*Driver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{db: db}, nil
}

func (d *Driver) InsertChatLog(ctx context.Context, log storage.ChatLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO chat_logs
			(session_id, user_id, user_question, bot_response, provider, latency_ms, handled_by_layer, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.SessionID, log.UserID, log.Question, log.Answer, log.Provider,
		log.LatencyMs, log.Layer, log.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert chat log: %w", err)
	}
	return nil
}

func (d *Driver) RecentChatLogs(ctx context.Context, limit int) ([]storage.ChatLog, error) {
	if limit <= 0 {
		limit = storage.DefaultRecentLimit
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, user_question, bot_response, provider, latency_ms, handled_by_layer, created_at
		FROM chat_logs
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat logs: %w", err)
	}
	defer rows.Close()

	var logs []storage.ChatLog
	for rows.Next() {
		var l storage.ChatLog
		if err := rows.Scan(&l.ID, &l.SessionID, &l.UserID, &l.Question, &l.Answer,
			&l.Provider, &l.LatencyMs, &l.Layer, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (d *Driver) Stats(ctx context.Context) (storage.Stats, error) {
	stats := storage.NewStats()

	if err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(latency_ms), 0) FROM chat_logs`,
	).Scan(&stats.ChatLogs, &stats.AverageLatencyMs); err != nil {
		return stats, fmt.Errorf("count chat logs: %w", err)
	}

	layers, err := d.db.QueryContext(ctx,
		`SELECT handled_by_layer, COUNT(*) FROM chat_logs GROUP BY handled_by_layer`)
	if err != nil {
		return stats, fmt.Errorf("count layers: %w", err)
	}
	defer layers.Close()
	for layers.Next() {
		var layer int
		var n int64
		if err := layers.Scan(&layer, &n); err != nil {
			return stats, fmt.Errorf("scan layer count: %w", err)
		}
		stats.Layers[layer] = n
	}
	if err := layers.Err(); err != nil {
		return stats, err
	}

	providers, err := d.db.QueryContext(ctx,
		`SELECT provider, COUNT(*) FROM chat_logs WHERE provider != '' GROUP BY provider`)
	if err != nil {
		return stats, fmt.Errorf("count providers: %w", err)
	}
	defer providers.Close()
	for providers.Next() {
		var name string
		var n int64
		if err := providers.Scan(&name, &n); err != nil {
			return stats, fmt.Errorf("scan provider count: %w", err)
		}
		stats.Providers[name] = n
	}
	return stats, providers.Err()
}

func (d *Driver) CreateSession(ctx context.Context, userID string, metadata map[string]any) (storage.Session, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return storage.Session{}, fmt.Errorf("marshal session metadata: %w", err)
	}

	s := storage.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := d.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, user_id, metadata, created_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.UserID, string(raw), s.CreatedAt,
	); err != nil {
		return storage.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return s, nil
}

func (d *Driver) GetSession(ctx context.Context, id string) (storage.Session, error) {
	var (
		s   storage.Session
		raw string
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT id, user_id, metadata, created_at FROM chat_sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.UserID, &raw, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Session{}, storage.NotFoundError{ID: id}
	}
	if err != nil {
		return storage.Session{}, fmt.Errorf("get session: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &s.Metadata); err != nil {
		return storage.Session{}, fmt.Errorf("unmarshal session metadata: %w", err)
	}
	return s, nil
}

func (d *Driver) ArchiveConversation(ctx context.Context, archive conversation.Archive) error {
	data, err := json.Marshal(archive.Turns)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	if _, err := d.db.ExecContext(ctx, `
		INSERT INTO conversation_archive (user_id, conversation_data, started_at, ended_at, message_count)
		VALUES (?, ?, ?, ?, ?)`,
		archive.UserID, string(data), archive.StartedAt.UTC(), archive.EndedAt.UTC(), archive.MessageCount,
	); err != nil {
		return fmt.Errorf("insert conversation archive: %w", err)
	}
	return nil
}

func (d *Driver) Archives(ctx context.Context, userID string) ([]conversation.Archive, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT user_id, conversation_data, started_at, ended_at, message_count
		FROM conversation_archive
		WHERE user_id = ?
		ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversation archives: %w", err)
	}
	defer rows.Close()

	var archives []conversation.Archive
	for rows.Next() {
		var (
			a   conversation.Archive
			raw string
		)
		if err := rows.Scan(&a.UserID, &raw, &a.StartedAt, &a.EndedAt, &a.MessageCount); err != nil {
			return nil, fmt.Errorf("scan conversation archive: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &a.Turns); err != nil {
			return nil, fmt.Errorf("unmarshal conversation: %w", err)
		}
		archives = append(archives, a)
	}
	return archives, rows.Err()
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ storage.Driver = (*Driver)(nil)
