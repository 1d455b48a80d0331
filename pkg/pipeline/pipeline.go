// Package pipeline resolves a user question through the cache, retrieval and
// generation layers and reports how it was resolved.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/cache"
	"github.com/papercomputeco/answerdesk/pkg/conversation"
	"github.com/papercomputeco/answerdesk/pkg/retrieval"
	"github.com/papercomputeco/answerdesk/pkg/utils"
)

const (
	// DefaultThreshold is the minimum similarity for retrieved snippets.
	DefaultThreshold float32 = 0.4

	// DefaultCacheTTL is how long generated answers stay cached.
	DefaultCacheTTL = 30 * time.Minute

	tracerName = "github.com/papercomputeco/answerdesk/pkg/pipeline"
)

// Cache is the answer cache. Failures are reported as misses.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// Retriever finds knowledge-base snippets for a question.
type Retriever interface {
	Search(ctx context.Context, question string, threshold float32) ([]retrieval.Document, error)
}

// Generator produces an answer and names the provider that produced it.
type Generator interface {
	Generate(ctx context.Context, question, promptContext string) (answer, provider string, err error)
}

// Memory is the short-term conversation store.
type Memory interface {
	GetOrCreate(ctx context.Context, userID string) conversation.Snapshot
	Append(ctx context.Context, userID, userText, botText string)
	FormatContext(turns []conversation.Turn) string
}

// Config is the configuration for a Pipeline.
type Config struct {
	Cache     Cache
	Retriever Retriever
	Generator Generator
	Memory    Memory

	// Recorder receives one Outcome per request. Optional.
	Recorder Recorder

	// Threshold is the minimum similarity passed to the retriever. Zero
	// selects DefaultThreshold; negative values are rejected.
	Threshold float32

	// CacheTTL defaults to 30m.
	CacheTTL time.Duration

	// Apology is returned when every provider failed.
	Apology string

	// Tracer defaults to the global otel tracer provider.
	Tracer trace.Tracer

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	cache     Cache
	retriever Retriever
	generator Generator
	memory    Memory
	recorder  Recorder
	threshold float32
	cacheTTL  time.Duration
	apology   string
	tracer    trace.Tracer
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a Pipeline. Cache, Generator and Memory are required; a nil
// Retriever makes every miss ungrounded.
func New(c Config) (*Pipeline, error) {
	if c.Cache == nil {
		return nil, errors.New("pipeline cache is required")
	}
	if c.Generator == nil {
		return nil, errors.New("pipeline generator is required")
	}
	if c.Memory == nil {
		return nil, errors.New("pipeline memory is required")
	}
	if c.Apology == "" {
		return nil, errors.New("pipeline apology message is required")
	}
	if c.Threshold < 0 {
		return nil, fmt.Errorf("pipeline threshold must not be negative, got %v", c.Threshold)
	}

	p := &Pipeline{
		cache:     c.Cache,
		retriever: c.Retriever,
		generator: c.Generator,
		memory:    c.Memory,
		recorder:  c.Recorder,
		threshold: c.Threshold,
		cacheTTL:  c.CacheTTL,
		apology:   c.Apology,
		tracer:    c.Tracer,
		logger:    c.Logger,
		now:       time.Now,
	}

	if p.recorder == nil {
		p.recorder = nopRecorder{}
	}
	if p.threshold == 0 {
		p.threshold = DefaultThreshold
	}
	if p.cacheTTL <= 0 {
		p.cacheTTL = DefaultCacheTTL
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}

	return p, nil
}

// resolution is the per-request working state.
type resolution struct {
	m        *machine
	outcome  Outcome
	docs     []retrieval.Document
	started  time.Time
	cacheKey string
}

// ProcessMessage answers question for userID. It never fails: a total
// generation failure yields the configured apology.
func (p *Pipeline) ProcessMessage(ctx context.Context, userID, sessionID, question string) string {
	ctx, span := p.tracer.Start(ctx, "pipeline.process", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	r := &resolution{
		m:        newMachine(),
		started:  p.now(),
		cacheKey: cache.Key(question),
		outcome: Outcome{
			SessionID: sessionID,
			UserID:    userID,
			Question:  question,
		},
	}

	p.resolve(ctx, userID, question, r)
	p.finish(ctx, span, userID, question, r)
	return r.outcome.Answer
}

// resolve drives the state machine to a terminal state. A panicking stage
// ends the resolution in StateError.
func (p *Pipeline) resolve(ctx context.Context, userID, question string, r *resolution) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("pipeline stage panicked",
				zap.String("session_id", r.outcome.SessionID),
				zap.String("state", r.m.state.String()),
				zap.Error(fmt.Errorf("panic: %v", rec)),
			)
			r.m.state = StateError
		}
	}()

	for !r.m.terminal() {
		var ev Event
		switch r.m.state {
		case StateCacheCheck:
			ev = p.checkCache(ctx, r)
		case StateRetrieval:
			ev = p.retrieve(ctx, r)
		case StateGeneration:
			ev = p.generate(ctx, userID, question, r)
		}

		if err := r.m.fire(ev); err != nil {
			p.logger.Error("pipeline transition rejected", zap.Error(err))
			r.m.state = StateError
		}
	}
}

func (p *Pipeline) checkCache(ctx context.Context, r *resolution) Event {
	ctx, span := p.tracer.Start(ctx, "pipeline.cache_check")
	defer span.End()

	start := p.now()
	answer, ok := p.cache.Get(ctx, r.cacheKey)
	r.outcome.CacheMs = p.now().Sub(start).Milliseconds()
	span.SetAttributes(attribute.Bool("cache.hit", ok))

	if !ok {
		return EventCacheMiss
	}

	r.outcome.Answer = answer
	r.outcome.Provider = CacheProvider
	return EventCacheHit
}

func (p *Pipeline) retrieve(ctx context.Context, r *resolution) Event {
	if p.retriever == nil {
		return EventNoDocuments
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.retrieval")
	defer span.End()

	start := p.now()
	docs, err := p.retriever.Search(ctx, r.outcome.Question, p.threshold)
	r.outcome.RetrievalMs = p.now().Sub(start).Milliseconds()

	if err != nil {
		span.RecordError(err)
		p.logger.Warn("retrieval failed, continuing without documents",
			zap.String("session_id", r.outcome.SessionID),
			zap.Int64("duration_ms", r.outcome.RetrievalMs),
			zap.Error(err),
		)
		return EventRetrievalFailed
	}

	span.SetAttributes(attribute.Int("retrieval.documents", len(docs)))
	r.docs = docs
	r.outcome.Documents = len(docs)
	if len(docs) == 0 {
		return EventNoDocuments
	}
	return EventDocumentsFound
}

func (p *Pipeline) generate(ctx context.Context, userID, question string, r *resolution) Event {
	ctx, span := p.tracer.Start(ctx, "pipeline.generation")
	defer span.End()

	snapshot := p.memory.GetOrCreate(ctx, userID)
	promptContext := retrieval.FormatContext(r.docs) + p.memory.FormatContext(snapshot.Turns)

	start := p.now()
	answer, provider, err := p.generator.Generate(ctx, question, promptContext)
	r.outcome.GenerationMs = p.now().Sub(start).Milliseconds()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		p.logger.Error("generation failed",
			zap.String("session_id", r.outcome.SessionID),
			zap.String("question", utils.Truncate(question, 200)),
			zap.Int64("duration_ms", r.outcome.GenerationMs),
			zap.Error(err),
		)
		return EventGenerationFailed
	}

	span.SetAttributes(attribute.String("llm.provider", provider))
	r.outcome.Answer = answer
	r.outcome.Provider = provider
	if len(r.docs) > 0 {
		return EventGeneratedGrounded
	}
	return EventGeneratedUngrounded
}

// finish applies the side effects of the terminal state and records the outcome.
func (p *Pipeline) finish(ctx context.Context, span trace.Span, userID, question string, r *resolution) {
	switch r.m.state {
	case StateDone:
		r.outcome.Layer = r.m.layer
		answer := r.outcome.Answer

		p.sideEffect(ctx, "memory append", func(ctx context.Context) error {
			p.memory.Append(ctx, userID, question, answer)
			return nil
		})
		if r.outcome.Layer != LayerCache {
			p.sideEffect(ctx, "cache set", func(ctx context.Context) error {
				p.cache.Set(ctx, r.cacheKey, answer, p.cacheTTL)
				return nil
			})
		}
	default:
		r.outcome.Layer = LayerNone
		r.outcome.Provider = ""
		r.outcome.Answer = p.apology
		r.outcome.Failed = true
		span.SetStatus(codes.Error, "resolution failed")
	}

	completed := p.now()
	r.outcome.LatencyMs = completed.Sub(r.started).Milliseconds()
	r.outcome.CompletedAt = completed

	span.SetAttributes(
		attribute.Int("pipeline.layer", int(r.outcome.Layer)),
		attribute.String("pipeline.provider", r.outcome.Provider),
	)

	p.logger.Info("pipeline completed",
		zap.String("session_id", r.outcome.SessionID),
		zap.String("user_id", r.outcome.UserID),
		zap.Int("layer", int(r.outcome.Layer)),
		zap.String("provider", r.outcome.Provider),
		zap.Int("documents", r.outcome.Documents),
		zap.Int64("latency_ms", r.outcome.LatencyMs),
		zap.Int64("cache_ms", r.outcome.CacheMs),
		zap.Int64("retrieval_ms", r.outcome.RetrievalMs),
		zap.Int64("generation_ms", r.outcome.GenerationMs),
	)

	outcome := r.outcome
	p.sideEffect(ctx, "record outcome", func(ctx context.Context) error {
		return p.recorder.Record(ctx, outcome)
	})
}

// sideEffect runs a write whose failure must not affect the answer. Errors
// and panics are logged and dropped.
func (p *Pipeline) sideEffect(ctx context.Context, name string, fn func(ctx context.Context) error) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("side effect panicked",
				zap.String("side_effect", name),
				zap.Error(fmt.Errorf("panic: %v", rec)),
			)
		}
	}()

	if err := fn(ctx); err != nil {
		p.logger.Warn("side effect failed",
			zap.String("side_effect", name),
			zap.Error(err),
		)
	}
}
