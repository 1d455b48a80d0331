package conversation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is how often idle conversations are collected.
const DefaultSweepInterval = 5 * time.Minute

// Sweeper periodically evicts idle conversations from a Store.
type Sweeper struct {
	store    *Store
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a stopped Sweeper.
func NewSweeper(store *Store, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Start begins sweeping in the background. Calling Start on a running
// Sweeper is a no-op.
func (sw *Sweeper) Start() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sw.cancel = cancel
	sw.done = make(chan struct{})

	go sw.run(ctx, sw.done)
}

// Stop halts the background loop and waits for an in-progress sweep.
func (sw *Sweeper) Stop() {
	sw.mu.Lock()
	cancel, done := sw.cancel, sw.done
	sw.cancel, sw.done = nil, nil
	sw.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (sw *Sweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sw.store.Sweep(ctx); n > 0 {
				sw.logger.Info("swept idle conversations",
					zap.Int("evicted", n),
					zap.Int("active", sw.store.Active()),
				)
			}
		}
	}
}
