// Package conversation holds short-term, per-user dialogue memory.
//
// Conversations expire after a period of inactivity. An expired conversation is
// removed from memory and, when it holds at least one full exchange, handed to
// an Archiver on a bounded goroutine pool.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const (
	DefaultMaxExchanges   = 10
	DefaultTTL            = 30 * time.Minute
	defaultArchiveWorkers = 4
	archiveTimeout        = 10 * time.Second

	// minArchiveTurns is the smallest conversation worth archiving.
	minArchiveTurns = 2
)

// Config is the configuration for a Store.
type Config struct {
	// MaxExchanges bounds the retained history to this many user/assistant pairs.
	MaxExchanges int

	// TTL is how long a conversation may stay idle before it is evicted.
	TTL time.Duration

	// Archiver receives evicted conversations. Optional.
	Archiver Archiver

	// ArchiveWorkers is the size of the archival goroutine pool.
	ArchiveWorkers int

	// Labels configures FormatContext output.
	Labels Labels

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time

	// Logger is the provided zap logger
	Logger *zap.Logger
}

type entry struct {
	mu           sync.Mutex
	turns        []Turn
	createdAt    time.Time
	lastActivity time.Time

	// evicted is set once the entry has left the map; holders of a stale
	// pointer must look the user up again.
	evicted bool
}

// Store is the process-wide table of live conversations.
//
// Lock order is entry.mu before Store.mu.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	maxTurns int
	ttl      time.Duration
	labels   Labels
	now      func() time.Time

	archiver  Archiver
	pool      *ants.Pool
	inflight  sync.WaitGroup
	closeOnce sync.Once

	logger *zap.Logger
}

// NewStore creates a Store and its archival pool.
func NewStore(c Config) (*Store, error) {
	if c.MaxExchanges <= 0 {
		c.MaxExchanges = DefaultMaxExchanges
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.ArchiveWorkers <= 0 {
		c.ArchiveWorkers = defaultArchiveWorkers
	}
	if c.Labels == (Labels{}) {
		c.Labels = DefaultLabels
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	pool, err := ants.NewPool(c.ArchiveWorkers)
	if err != nil {
		return nil, fmt.Errorf("creating archive pool: %w", err)
	}

	return &Store{
		entries:  make(map[string]*entry),
		maxTurns: 2 * c.MaxExchanges,
		ttl:      c.TTL,
		labels:   c.Labels,
		now:      c.Now,
		archiver: c.Archiver,
		pool:     pool,
		logger:   c.Logger,
	}, nil
}

// GetOrCreate returns the user's live conversation, starting a new one when
// none exists or the previous one has expired.
func (s *Store) GetOrCreate(ctx context.Context, userID string) Snapshot {
	var snap Snapshot
	s.withLive(ctx, userID, func(e *entry) {
		snap = e.snapshot(userID)
	})
	return snap
}

// Append records one exchange and trims history to the configured bound.
func (s *Store) Append(ctx context.Context, userID, userText, botText string) {
	s.withLive(ctx, userID, func(e *entry) {
		now := s.now()
		e.turns = append(e.turns,
			Turn{Role: RoleUser, Content: userText, Timestamp: now},
			Turn{Role: RoleAssistant, Content: botText, Timestamp: now},
		)
		if over := len(e.turns) - s.maxTurns; over > 0 {
			e.turns = append([]Turn(nil), e.turns[over:]...)
		}
		e.lastActivity = now
	})
}

// Clear drops the user's conversation without archiving it. It reports
// whether a conversation existed.
func (s *Store) Clear(userID string) bool {
	s.mu.Lock()
	e, ok := s.entries[userID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return false
	}
	s.evictLocked(userID, e)
	return true
}

// Active returns the number of live conversations.
func (s *Store) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep evicts every idle conversation and returns how many were evicted.
func (s *Store) Sweep(ctx context.Context) int {
	return s.evictAll(ctx, func(e *entry) bool {
		return s.expired(e)
	})
}

// Close archives every live conversation and waits for in-flight archival to
// finish or ctx to end.
func (s *Store) Close(ctx context.Context) error {
	flushed := s.evictAll(ctx, func(*entry) bool { return true })
	s.logger.Debug("conversation store flushed", zap.Int("conversations", flushed))

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("waiting for conversation archival: %w", ctx.Err())
	}

	s.closeOnce.Do(s.pool.Release)
	return err
}

// FormatContext renders turns as a labeled transcript, or "" when empty.
func (s *Store) FormatContext(turns []Turn) string {
	return FormatContext(s.labels, turns)
}

// FormatContext renders turns as a labeled transcript using labels.
func FormatContext(labels Labels, turns []Turn) string {
	if len(turns) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(labels.Header)
	b.WriteString("\n")
	for _, t := range turns {
		label := labels.Assistant
		if t.Role == RoleUser {
			label = labels.User
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// withLive runs fn with the user's live entry locked, evicting and archiving
// an expired one first.
func (s *Store) withLive(ctx context.Context, userID string, fn func(e *entry)) {
	for {
		e := s.lookup(userID)

		e.mu.Lock()
		if e.evicted {
			e.mu.Unlock()
			continue
		}

		if s.expired(e) {
			archive := s.evictLocked(userID, e)
			e.mu.Unlock()
			s.archive(ctx, archive)
			continue
		}

		fn(e)
		e.mu.Unlock()
		return
	}
}

// lookup returns the user's entry, creating an empty one if absent.
func (s *Store) lookup(userID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		now := s.now()
		e = &entry{createdAt: now, lastActivity: now}
		s.entries[userID] = e
	}
	return e
}

func (s *Store) expired(e *entry) bool {
	return s.now().Sub(e.lastActivity) > s.ttl
}

// evictLocked removes e from the map and marks it evicted. The caller holds
// e.mu and is the only one that may archive the returned record.
func (s *Store) evictLocked(userID string, e *entry) Archive {
	s.mu.Lock()
	if s.entries[userID] == e {
		delete(s.entries, userID)
	}
	s.mu.Unlock()

	e.evicted = true

	turns := append([]Turn(nil), e.turns...)
	return Archive{
		UserID:       userID,
		Turns:        turns,
		StartedAt:    e.createdAt,
		EndedAt:      e.lastActivity,
		MessageCount: len(turns),
	}
}

func (s *Store) evictAll(ctx context.Context, match func(e *entry) bool) int {
	s.mu.Lock()
	candidates := make(map[string]*entry, len(s.entries))
	for id, e := range s.entries {
		candidates[id] = e
	}
	s.mu.Unlock()

	evicted := 0
	for userID, e := range candidates {
		e.mu.Lock()
		if e.evicted || !match(e) {
			e.mu.Unlock()
			continue
		}
		archive := s.evictLocked(userID, e)
		e.mu.Unlock()

		evicted++
		s.archive(ctx, archive)
	}
	return evicted
}

// archive hands a to the archiver on the pool. Conversations shorter than one
// exchange are dropped.
func (s *Store) archive(_ context.Context, a Archive) {
	if len(a.Turns) < minArchiveTurns {
		s.logger.Debug("dropping short conversation",
			zap.String("user_id", a.UserID),
			zap.Int("turns", len(a.Turns)),
		)
		return
	}
	if s.archiver == nil {
		return
	}

	s.inflight.Add(1)
	task := func() {
		defer s.inflight.Done()
		s.runArchive(a)
	}
	if err := s.pool.Submit(task); err != nil {
		// Pool released: archive inline so the conversation is not lost.
		task()
	}
}

func (s *Store) runArchive(a Archive) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	if err := s.archiver.ArchiveConversation(ctx, a); err != nil {
		s.logger.Error("conversation archival failed",
			zap.String("user_id", a.UserID),
			zap.Int("messages", a.MessageCount),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("conversation archived",
		zap.String("user_id", a.UserID),
		zap.Int("messages", a.MessageCount),
	)
}

func (e *entry) snapshot(userID string) Snapshot {
	return Snapshot{
		UserID:       userID,
		Turns:        append([]Turn(nil), e.turns...),
		CreatedAt:    e.createdAt,
		LastActivity: e.lastActivity,
	}
}
