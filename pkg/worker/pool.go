// Package worker provides an asynchronous worker pool that persists
// resolution outcomes as chat logs and publishes them as events.
//
// The pool decouples persistence from the request path so that a slow or
// unavailable store never delays an answer.
package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/eventstream"
	"github.com/papercomputeco/answerdesk/pkg/eventstream/nop"
	"github.com/papercomputeco/answerdesk/pkg/pipeline"
	"github.com/papercomputeco/answerdesk/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 10 * time.Second
)

// ErrQueueFull is returned by Record when the job was dropped.
var ErrQueueFull = errors.New("worker queue full, outcome dropped")

// ChatLogWriter is the part of storage.Driver the pool writes to.
type ChatLogWriter interface {
	InsertChatLog(ctx context.Context, log storage.ChatLog) error
}

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Outcome pipeline.Outcome
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Writer persists chat logs.
	Writer ChatLogWriter

	// Publisher is the optional outcome event stream.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds the writes of a single job (defaults to 10s).
	JobTimeout time.Duration

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool processes outcome jobs asynchronously via a worker pool.
type Pool struct {
	config    *Config
	queue     chan Job
	wg        sync.WaitGroup
	closeOnce sync.Once
	logger    *zap.Logger

	// mu guards closed against a concurrent Enqueue
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Writer == nil {
		return nil, errors.New("worker pool chat log writer is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is
// closed, resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Error("job not queued, pool closed, job dropped",
			zap.String("session_id", job.Outcome.SessionID),
		)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			zap.String("session_id", job.Outcome.SessionID),
			zap.Int("layer", int(job.Outcome.Layer)),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("session_id", job.Outcome.SessionID),
			zap.Int("layer", int(job.Outcome.Layer)),
		)
		return false
	}
}

// Record implements pipeline.Recorder.
func (p *Pool) Record(_ context.Context, o pipeline.Outcome) error {
	if !p.Enqueue(Job{Outcome: o}) {
		return ErrQueueFull
	}
	return nil
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", zap.Uint("worker_id", id))
}

// processJob stores the chat log and publishes the outcome event. The two
// are independent: a failed write does not stop the event.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	o := job.Outcome

	if err := p.config.Writer.InsertChatLog(ctx, ChatLog(o)); err != nil {
		p.logger.Error("async chat log write failed",
			zap.String("session_id", o.SessionID),
			zap.Error(err),
		)
	} else {
		p.logger.Debug("chat log stored",
			zap.String("session_id", o.SessionID),
			zap.Int("layer", int(o.Layer)),
		)
	}

	if err := p.config.Publisher.Publish(ctx, Event(o)); err != nil {
		p.logger.Warn("outcome event publish failed",
			zap.String("session_id", o.SessionID),
			zap.Error(err),
		)
	}
}

// ChatLog converts an outcome to its persisted chat log.
func ChatLog(o pipeline.Outcome) storage.ChatLog {
	return storage.ChatLog{
		SessionID: o.SessionID,
		UserID:    o.UserID,
		Question:  o.Question,
		Answer:    o.Answer,
		Provider:  o.Provider,
		LatencyMs: o.LatencyMs,
		Layer:     int(o.Layer),
		CreatedAt: o.CompletedAt,
	}
}

// Event converts an outcome to its published event.
func Event(o pipeline.Outcome) eventstream.Event {
	e := eventstream.NewResolutionCompleted(o.CompletedAt)
	e.SessionID = o.SessionID
	e.UserID = o.UserID
	e.Layer = int(o.Layer)
	e.Provider = o.Provider
	e.Documents = o.Documents
	e.LatencyMs = o.LatencyMs
	e.CacheMs = o.CacheMs
	e.RetrievalMs = o.RetrievalMs
	e.GenerationMs = o.GenerationMs
	e.Failed = o.Failed
	return e
}

var _ pipeline.Recorder = (*Pool)(nil)
