// Package memory provides an in-process cache.Backend.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/papercomputeco/answerdesk/pkg/cache"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// Backend implements cache.Backend using an in-memory map. Entries expire
// lazily: a read past expiresAt is treated as absent.
type Backend struct {
	mu      sync.RWMutex
	entries map[string]entry

	// now is swappable for tests.
	now func() time.Time
}

// NewBackend creates an empty in-memory cache backend.
func NewBackend() *Backend {
	return &Backend{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// WithClock overrides the clock used for expiry decisions.
func (b *Backend) WithClock(now func() time.Time) *Backend {
	b.now = now
	return b
}

// Get returns the value for key if present and not expired.
func (b *Backend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	e, ok := b.entries[key]
	b.mu.RUnlock()

	if !ok {
		return "", false, nil
	}

	if !b.now().Before(e.expiresAt) {
		return "", false, nil
	}

	return e.value, true, nil
}

// Set stores value under key, overwriting any existing entry.
func (b *Backend) Set(_ context.Context, key, value string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[key] = entry{
		value:     value,
		expiresAt: b.now().Add(ttl),
	}
	return nil
}

// Purge removes expired entries and returns how many were dropped.
func (b *Backend) Purge() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	purged := 0
	for k, e := range b.entries {
		if !now.Before(e.expiresAt) {
			delete(b.entries, k)
			purged++
		}
	}
	return purged
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Close is a no-op.
func (b *Backend) Close() error {
	return nil
}

var _ cache.Backend = (*Backend)(nil)
