// Package service builds the answerdesk component graph from configuration
// and owns its lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/cache"
	badgercache "github.com/papercomputeco/answerdesk/pkg/cache/badger"
	memorycache "github.com/papercomputeco/answerdesk/pkg/cache/memory"
	rediscache "github.com/papercomputeco/answerdesk/pkg/cache/redis"
	"github.com/papercomputeco/answerdesk/pkg/config"
	"github.com/papercomputeco/answerdesk/pkg/conversation"
	"github.com/papercomputeco/answerdesk/pkg/eventstream"
	"github.com/papercomputeco/answerdesk/pkg/eventstream/kafka"
	"github.com/papercomputeco/answerdesk/pkg/eventstream/nop"
	"github.com/papercomputeco/answerdesk/pkg/llm"
	"github.com/papercomputeco/answerdesk/pkg/llm/provider"
	"github.com/papercomputeco/answerdesk/pkg/llm/router"
	"github.com/papercomputeco/answerdesk/pkg/pipeline"
	"github.com/papercomputeco/answerdesk/pkg/prompt"
	"github.com/papercomputeco/answerdesk/pkg/retrieval"
	"github.com/papercomputeco/answerdesk/pkg/storage"
	"github.com/papercomputeco/answerdesk/pkg/storage/inmemory"
	"github.com/papercomputeco/answerdesk/pkg/storage/postgres"
	"github.com/papercomputeco/answerdesk/pkg/storage/sqlite"
	"github.com/papercomputeco/answerdesk/pkg/vector"
	vectorutils "github.com/papercomputeco/answerdesk/pkg/vector/utils"
	"github.com/papercomputeco/answerdesk/pkg/worker"
)

// RetrievalDisabled turns off the knowledge base: every cache miss is
// answered ungrounded.
const RetrievalDisabled = "none"

// apiKeyEnv names the environment variable holding each provider's key.
var apiKeyEnv = map[string]string{
	provider.Gemini:  "GEMINI_API_KEY",
	provider.Mistral: "MISTRAL_API_KEY",
	provider.OneMin:  "ONEMIN_API_KEY",
}

// Options are the non-config inputs to Build.
type Options struct {
	// Getenv reads provider API keys. Defaults to os.Getenv.
	Getenv func(string) string

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Service is the fully wired answerdesk core.
type Service struct {
	Pipeline      *pipeline.Pipeline
	Router        *router.Router
	Conversations *conversation.Store
	Storage       storage.Driver
	Cache         *cache.Layer

	// Retrieval is nil when the knowledge base is disabled.
	Retrieval *retrieval.Client

	sweeper   *conversation.Sweeper
	janitor   *cache.Janitor
	pool      *worker.Pool
	publisher eventstream.Publisher
	index     vector.Index
	logger    *zap.Logger

	// closers run in order on Close
	closers []namedCloser
}

type namedCloser struct {
	name string
	fn   func(ctx context.Context) error
}

// Build constructs every component named by cfg. On error, anything already
// opened is closed before returning.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Service, error) {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Service{logger: opts.Logger}
	if err := s.build(ctx, cfg, opts); err != nil {
		_ = s.Close(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Service) build(ctx context.Context, cfg *config.Config, opts Options) error {
	lang := prompt.Language(cfg.Pipeline.Language)
	builder, err := prompt.New(lang, cfg.Pipeline.Contact)
	if err != nil {
		return err
	}

	s.Router, err = buildRouter(cfg, builder, opts)
	if err != nil {
		return err
	}

	if err := s.buildCache(ctx, cfg); err != nil {
		return err
	}
	if err := s.buildStorage(ctx, cfg); err != nil {
		return err
	}
	if err := s.buildRetrieval(ctx, cfg, opts.Getenv); err != nil {
		return err
	}
	if err := s.buildConversations(cfg, lang); err != nil {
		return err
	}
	if err := s.buildPool(cfg); err != nil {
		return err
	}

	apology := cfg.Pipeline.Apology
	if apology == "" {
		apology = prompt.Apology(lang)
	}

	pc := pipeline.Config{
		Cache:     s.Cache,
		Generator: s.Router,
		Memory:    s.Conversations,
		Recorder:  s.pool,
		Threshold: float32(cfg.Retrieval.Threshold),
		CacheTTL:  cfg.Cache.TTLDuration(),
		Apology:   apology,
		Logger:    opts.Logger,
	}
	if s.Retrieval != nil {
		pc.Retriever = s.Retrieval
	}

	s.Pipeline, err = pipeline.New(pc)
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	opts.Logger.Info("service ready",
		zap.String("primary", s.Router.Primary()),
		zap.String("fallback", s.Router.Fallback()),
		zap.String("cache", cfg.Cache.Provider),
		zap.String("retrieval", cfg.Retrieval.Provider),
		zap.String("storage", cfg.Storage.Provider),
		zap.Bool("events", cfg.Events.Enabled),
	)

	return nil
}

// ProviderConfigs returns the llm.Config for every provider the router may
// use, keyed by provider name. API keys come from getenv.
func ProviderConfigs(cfg *config.Config, builder *prompt.Builder, getenv func(string) string, logger *zap.Logger) map[string]llm.Config {
	settings := map[string]config.ProviderConfig{
		provider.Gemini:  cfg.Providers.Gemini,
		provider.Mistral: cfg.Providers.Mistral,
		provider.OneMin:  cfg.Providers.OneMin,
		provider.Ollama:  cfg.Providers.Ollama,
	}

	configs := make(map[string]llm.Config, 3)
	for _, name := range []string{cfg.LLM.Primary, cfg.LLM.Fallback, cfg.LLM.Embedding} {
		if _, ok := configs[name]; ok {
			continue
		}
		ps := settings[name]
		c := llm.Config{
			BaseURL:        ps.BaseURL,
			Model:          ps.Model,
			EmbeddingModel: ps.EmbeddingModel,
			Prompt:         builder,
			Logger:         logger,
		}
		if env, ok := apiKeyEnv[name]; ok {
			c.APIKey = getenv(env)
		}
		configs[name] = c
	}
	return configs
}

func buildRouter(cfg *config.Config, builder *prompt.Builder, opts Options) (*router.Router, error) {
	providers, failures := provider.NewRegistry(ProviderConfigs(cfg, builder, opts.Getenv, opts.Logger))

	for _, role := range []struct{ name, provider string }{
		{"primary", cfg.LLM.Primary},
		{"fallback", cfg.LLM.Fallback},
		{"embedding", cfg.LLM.Embedding},
	} {
		if err, ok := failures[role.provider]; ok {
			return nil, fmt.Errorf("building %s provider %q: %w", role.name, role.provider, err)
		}
	}

	return router.New(router.Config{
		Primary:   cfg.LLM.Primary,
		Fallback:  cfg.LLM.Fallback,
		Embedding: cfg.LLM.Embedding,
		Timeout:   cfg.LLM.TimeoutDuration(),
		Logger:    opts.Logger,
	}, providers)
}

func (s *Service) buildCache(ctx context.Context, cfg *config.Config) error {
	var backend cache.Backend
	switch cfg.Cache.Provider {
	case "memory", "":
		backend = memorycache.NewBackend()
	case "redis":
		b, err := rediscache.NewBackend(ctx, rediscache.Config{URL: cfg.Cache.Target})
		if err != nil {
			return fmt.Errorf("creating redis cache: %w", err)
		}
		backend = b
	case "badger":
		b, err := badgercache.NewBackend(badgercache.Config{
			Path:   cfg.Cache.Target,
			Logger: s.logger,
		})
		if err != nil {
			return fmt.Errorf("creating badger cache: %w", err)
		}
		backend = b
	default:
		return fmt.Errorf("unsupported cache provider: %s", cfg.Cache.Provider)
	}

	layer, err := cache.New(cache.Config{Backend: backend, Logger: s.logger})
	if err != nil {
		_ = backend.Close()
		return err
	}
	s.Cache = layer
	s.janitor = cache.NewJanitor(layer, cfg.Conversation.SweepIntervalDuration(), s.logger)
	s.addCloser("cache", func(context.Context) error {
		s.janitor.Stop()
		return layer.Close()
	})
	return nil
}

func (s *Service) buildStorage(ctx context.Context, cfg *config.Config) error {
	var (
		driver storage.Driver
		err    error
	)
	switch cfg.Storage.Provider {
	case "inmemory", "memory":
		driver = inmemory.NewDriver()
	case "sqlite", "":
		driver, err = sqlite.NewDriver(ctx, cfg.Storage.SQLitePath)
	case "postgres":
		driver, err = postgres.NewDriver(ctx, cfg.Storage.PostgresDSN)
	default:
		return fmt.Errorf("unsupported storage provider: %s", cfg.Storage.Provider)
	}
	if err != nil {
		return fmt.Errorf("creating %s storage: %w", cfg.Storage.Provider, err)
	}

	s.Storage = driver
	s.addCloser("storage", func(context.Context) error { return driver.Close() })
	return nil
}

func (s *Service) buildRetrieval(ctx context.Context, cfg *config.Config, getenv func(string) string) error {
	if cfg.Retrieval.Provider == RetrievalDisabled {
		s.logger.Info("knowledge base disabled, cache misses are answered ungrounded")
		return nil
	}

	index, err := vectorutils.NewIndex(ctx, &vectorutils.NewIndexOpts{
		ProviderType: cfg.Retrieval.Provider,
		Target:       cfg.Retrieval.Target,
		Port:         cfg.Retrieval.Port,
		APIKey:       getenv("QDRANT_API_KEY"),
		Collection:   cfg.Retrieval.Collection,
		Function:     cfg.Retrieval.Function,
		Dimensions:   cfg.Retrieval.Dimensions,
		Logger:       s.logger,
	})
	if err != nil {
		return fmt.Errorf("creating %s index: %w", cfg.Retrieval.Provider, err)
	}
	s.index = index
	s.addCloser("index", func(context.Context) error { return index.Close() })

	s.Retrieval, err = retrieval.New(retrieval.Config{
		Embedder: s.Router,
		Index:    index,
		TopK:     cfg.Retrieval.TopK,
		Logger:   s.logger,
	})
	return err
}

func (s *Service) buildConversations(cfg *config.Config, lang prompt.Language) error {
	header, user, assistant := prompt.TranscriptLabels(lang)

	store, err := conversation.NewStore(conversation.Config{
		MaxExchanges: cfg.Conversation.MaxExchanges,
		TTL:          cfg.Conversation.TTLDuration(),
		Archiver:     s.Storage,
		Labels: conversation.Labels{
			Header:    header,
			User:      user,
			Assistant: assistant,
		},
		Logger: s.logger,
	})
	if err != nil {
		return err
	}

	s.Conversations = store
	s.sweeper = conversation.NewSweeper(store, cfg.Conversation.SweepIntervalDuration(), s.logger)

	// Archives flush into storage, so the store closes before it.
	s.addCloserFirst("conversations", func(ctx context.Context) error {
		s.sweeper.Stop()
		return store.Close(ctx)
	})
	return nil
}

func (s *Service) buildPool(cfg *config.Config) error {
	var publisher eventstream.Publisher = nop.NewPublisher()
	if cfg.Events.Enabled {
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: splitList(cfg.Events.Brokers),
			Topic:   cfg.Events.Topic,
			Logger:  s.logger,
		})
		if err != nil {
			return fmt.Errorf("creating kafka publisher: %w", err)
		}
		publisher = p
	}
	s.publisher = publisher

	pool, err := worker.NewPool(&worker.Config{
		Writer:     s.Storage,
		Publisher:  publisher,
		NumWorkers: nonNegative(cfg.Pipeline.Workers),
		QueueSize:  nonNegative(cfg.Pipeline.QueueSize),
		Logger:     s.logger,
	})
	if err != nil {
		_ = publisher.Close()
		return err
	}
	s.pool = pool

	// The pool drains before its publisher and storage are released; it runs
	// after the conversation store, whose archives go straight to storage.
	s.insertCloserAfter("conversations", namedCloser{"events", func(context.Context) error {
		pool.Close()
		return publisher.Close()
	}})
	return nil
}

// Start begins the background conversation sweep and cache purge.
func (s *Service) Start() {
	if s.sweeper != nil {
		s.sweeper.Start()
	}
	if s.janitor != nil {
		s.janitor.Start()
	}
}

// Close stops the sweeper, flushes pending archives and chat logs, then
// releases every backend. It returns the joined errors of every step.
func (s *Service) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, c := range s.closers {
		start := time.Now()
		if err := c.fn(ctx); err != nil {
			s.logger.Error("closing component failed", zap.String("component", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("closing %s: %w", c.name, err))
			continue
		}
		s.logger.Debug("closed component", zap.String("component", c.name), zap.Duration("took", time.Since(start)))
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Service) addCloser(name string, fn func(ctx context.Context) error) {
	s.closers = append(s.closers, namedCloser{name, fn})
}

func (s *Service) addCloserFirst(name string, fn func(ctx context.Context) error) {
	s.closers = append([]namedCloser{{name, fn}}, s.closers...)
}

func (s *Service) insertCloserAfter(name string, c namedCloser) {
	for i, existing := range s.closers {
		if existing.name == name {
			s.closers = append(s.closers[:i+1], append([]namedCloser{c}, s.closers[i+1:]...)...)
			return
		}
	}
	s.addCloserFirst(c.name, c.fn)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func nonNegative(n int) uint {
	if n < 0 {
		return 0
	}
	return uint(n)
}
