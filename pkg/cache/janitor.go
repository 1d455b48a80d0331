package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultPurgeInterval is how often a Janitor drops expired entries.
const DefaultPurgeInterval = 5 * time.Minute

// Purger is implemented by backends that keep expired entries until told to
// drop them. Backends with native expiry (Redis, Badger) do not need it.
type Purger interface {
	// Purge removes expired entries and returns how many were dropped.
	Purge() int
}

// Purge drops expired entries when the backend supports it.
func (l *Layer) Purge() int {
	p, ok := l.backend.(Purger)
	if !ok {
		return 0
	}
	return p.Purge()
}

// Janitor periodically purges expired entries from a Layer.
type Janitor struct {
	layer    *Layer
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewJanitor creates a stopped Janitor.
func NewJanitor(layer *Layer, interval time.Duration, logger *zap.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		layer:    layer,
		interval: interval,
		logger:   logger,
	}
}

// Start begins purging in the background. It is a no-op when the backend
// expires entries itself or the Janitor is already running.
func (j *Janitor) Start() {
	if _, ok := j.layer.backend.(Purger); !ok {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.done = make(chan struct{})

	go j.run(ctx, j.done)
}

// Stop halts the background loop and waits for an in-progress purge.
func (j *Janitor) Stop() {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel, j.done = nil, nil
	j.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (j *Janitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := j.layer.Purge(); n > 0 {
				j.logger.Debug("purged expired cache entries", zap.Int("purged", n))
			}
		}
	}
}
