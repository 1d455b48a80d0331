package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent answerdesk configuration stored as
// config.toml in the .answerdesk/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version      int                `toml:"version"`
	Server       ServerConfig       `toml:"server"`
	Client       ClientConfig       `toml:"client"`
	Pipeline     PipelineConfig     `toml:"pipeline"`
	Conversation ConversationConfig `toml:"conversation"`
	Cache        CacheConfig        `toml:"cache"`
	Retrieval    RetrievalConfig    `toml:"retrieval"`
	LLM          LLMConfig          `toml:"llm"`
	Providers    ProvidersConfig    `toml:"providers"`
	Storage      StorageConfig      `toml:"storage"`
	Events       EventsConfig       `toml:"events"`
}

// ServerConfig holds API server settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`
	MCP    bool   `toml:"mcp"`
}

// ClientConfig holds settings for CLI commands that talk to a running server
// (e.g. answerdesk chat). Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// PipelineConfig holds resolution pipeline settings.
type PipelineConfig struct {
	// Language selects prompt wording, transcript labels and the apology.
	Language string `toml:"language,omitempty"`

	// Contact replaces the contact block appended to every prompt.
	Contact string `toml:"contact,omitempty"`

	// Apology overrides the language's default failure reply.
	Apology string `toml:"apology,omitempty"`

	// Workers and QueueSize size the chat-log worker pool.
	Workers   int `toml:"workers,omitempty"`
	QueueSize int `toml:"queue_size,omitempty"`
}

// ConversationConfig holds short-term memory settings.
type ConversationConfig struct {
	MaxExchanges  int    `toml:"max_exchanges,omitempty"`
	TTL           string `toml:"ttl,omitempty"`
	SweepInterval string `toml:"sweep_interval,omitempty"`
}

// CacheConfig holds answer cache settings.
type CacheConfig struct {
	// Provider is one of memory, redis or badger.
	Provider string `toml:"provider,omitempty"`

	// Target is the redis URL or the badger directory.
	Target string `toml:"target,omitempty"`

	TTL string `toml:"ttl,omitempty"`
}

// RetrievalConfig holds knowledge-base settings.
type RetrievalConfig struct {
	// Provider is one of memory, postgres, qdrant, sqlite or none.
	Provider string `toml:"provider,omitempty"`

	// Target is the DSN, database path or host, depending on Provider.
	Target string `toml:"target,omitempty"`

	Port       int     `toml:"port,omitempty"`
	Collection string  `toml:"collection,omitempty"`
	Function   string  `toml:"function,omitempty"`
	Dimensions int     `toml:"dimensions,omitempty"`
	Threshold  float64 `toml:"threshold,omitempty"`
	TopK       int     `toml:"top_k,omitempty"`
}

// LLMConfig selects providers for the generation router.
type LLMConfig struct {
	Primary   string `toml:"primary,omitempty"`
	Fallback  string `toml:"fallback,omitempty"`
	Embedding string `toml:"embedding,omitempty"`
	Timeout   string `toml:"timeout,omitempty"`
}

// ProviderConfig holds per-provider endpoint and model overrides. API keys
// are read from the environment, never from config.toml.
type ProviderConfig struct {
	BaseURL        string `toml:"base_url,omitempty"`
	Model          string `toml:"model,omitempty"`
	EmbeddingModel string `toml:"embedding_model,omitempty"`
}

// ProvidersConfig holds settings for every supported provider.
type ProvidersConfig struct {
	Gemini  ProviderConfig `toml:"gemini"`
	Mistral ProviderConfig `toml:"mistral"`
	OneMin  ProviderConfig `toml:"onemin"`
	Ollama  ProviderConfig `toml:"ollama"`
}

// StorageConfig holds chat log and session storage settings.
type StorageConfig struct {
	// Provider is one of inmemory, sqlite or postgres.
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventsConfig holds outcome event stream settings.
type EventsConfig struct {
	Enabled bool `toml:"enabled"`

	// Brokers is a comma separated list of kafka bootstrap addresses.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatFloat(*field(c), 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = f
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// durationKey stores a Go duration string, validated on set.
func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

// orderedKeys lists every supported key in the TOML section layout order.
var orderedKeys = []string{
	"server.listen",
	"server.mcp",
	"client.api_target",
	"pipeline.language",
	"pipeline.contact",
	"pipeline.apology",
	"pipeline.workers",
	"pipeline.queue_size",
	"conversation.max_exchanges",
	"conversation.ttl",
	"conversation.sweep_interval",
	"cache.provider",
	"cache.target",
	"cache.ttl",
	"retrieval.provider",
	"retrieval.target",
	"retrieval.port",
	"retrieval.collection",
	"retrieval.function",
	"retrieval.dimensions",
	"retrieval.threshold",
	"retrieval.top_k",
	"llm.primary",
	"llm.fallback",
	"llm.embedding",
	"llm.timeout",
	"providers.gemini.base_url",
	"providers.gemini.model",
	"providers.gemini.embedding_model",
	"providers.mistral.base_url",
	"providers.mistral.model",
	"providers.mistral.embedding_model",
	"providers.onemin.base_url",
	"providers.onemin.model",
	"providers.ollama.base_url",
	"providers.ollama.model",
	"providers.ollama.embedding_model",
	"storage.provider",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"events.enabled",
	"events.brokers",
	"events.topic",
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen":     stringKey(func(c *Config) *string { return &c.Server.Listen }),
	"server.mcp":        boolKey("server.mcp", func(c *Config) *bool { return &c.Server.MCP }),
	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"pipeline.language":   stringKey(func(c *Config) *string { return &c.Pipeline.Language }),
	"pipeline.contact":    stringKey(func(c *Config) *string { return &c.Pipeline.Contact }),
	"pipeline.apology":    stringKey(func(c *Config) *string { return &c.Pipeline.Apology }),
	"pipeline.workers":    intKey("pipeline.workers", func(c *Config) *int { return &c.Pipeline.Workers }),
	"pipeline.queue_size": intKey("pipeline.queue_size", func(c *Config) *int { return &c.Pipeline.QueueSize }),

	"conversation.max_exchanges":  intKey("conversation.max_exchanges", func(c *Config) *int { return &c.Conversation.MaxExchanges }),
	"conversation.ttl":            durationKey("conversation.ttl", func(c *Config) *string { return &c.Conversation.TTL }),
	"conversation.sweep_interval": durationKey("conversation.sweep_interval", func(c *Config) *string { return &c.Conversation.SweepInterval }),

	"cache.provider": stringKey(func(c *Config) *string { return &c.Cache.Provider }),
	"cache.target":   stringKey(func(c *Config) *string { return &c.Cache.Target }),
	"cache.ttl":      durationKey("cache.ttl", func(c *Config) *string { return &c.Cache.TTL }),

	"retrieval.provider":   stringKey(func(c *Config) *string { return &c.Retrieval.Provider }),
	"retrieval.target":     stringKey(func(c *Config) *string { return &c.Retrieval.Target }),
	"retrieval.port":       intKey("retrieval.port", func(c *Config) *int { return &c.Retrieval.Port }),
	"retrieval.collection": stringKey(func(c *Config) *string { return &c.Retrieval.Collection }),
	"retrieval.function":   stringKey(func(c *Config) *string { return &c.Retrieval.Function }),
	"retrieval.dimensions": intKey("retrieval.dimensions", func(c *Config) *int { return &c.Retrieval.Dimensions }),
	"retrieval.threshold":  floatKey("retrieval.threshold", func(c *Config) *float64 { return &c.Retrieval.Threshold }),
	"retrieval.top_k":      intKey("retrieval.top_k", func(c *Config) *int { return &c.Retrieval.TopK }),

	"llm.primary":   stringKey(func(c *Config) *string { return &c.LLM.Primary }),
	"llm.fallback":  stringKey(func(c *Config) *string { return &c.LLM.Fallback }),
	"llm.embedding": stringKey(func(c *Config) *string { return &c.LLM.Embedding }),
	"llm.timeout":   durationKey("llm.timeout", func(c *Config) *string { return &c.LLM.Timeout }),

	"providers.gemini.base_url":         stringKey(func(c *Config) *string { return &c.Providers.Gemini.BaseURL }),
	"providers.gemini.model":            stringKey(func(c *Config) *string { return &c.Providers.Gemini.Model }),
	"providers.gemini.embedding_model":  stringKey(func(c *Config) *string { return &c.Providers.Gemini.EmbeddingModel }),
	"providers.mistral.base_url":        stringKey(func(c *Config) *string { return &c.Providers.Mistral.BaseURL }),
	"providers.mistral.model":           stringKey(func(c *Config) *string { return &c.Providers.Mistral.Model }),
	"providers.mistral.embedding_model": stringKey(func(c *Config) *string { return &c.Providers.Mistral.EmbeddingModel }),
	"providers.onemin.base_url":         stringKey(func(c *Config) *string { return &c.Providers.OneMin.BaseURL }),
	"providers.onemin.model":            stringKey(func(c *Config) *string { return &c.Providers.OneMin.Model }),
	"providers.ollama.base_url":         stringKey(func(c *Config) *string { return &c.Providers.Ollama.BaseURL }),
	"providers.ollama.model":            stringKey(func(c *Config) *string { return &c.Providers.Ollama.Model }),
	"providers.ollama.embedding_model":  stringKey(func(c *Config) *string { return &c.Providers.Ollama.EmbeddingModel }),

	"storage.provider":     stringKey(func(c *Config) *string { return &c.Storage.Provider }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"events.enabled": boolKey("events.enabled", func(c *Config) *bool { return &c.Events.Enabled }),
	"events.brokers": stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":   stringKey(func(c *Config) *string { return &c.Events.Topic }),
}

// Durations parsed from their string form. Invalid or empty values yield zero,
// which every consumer treats as "use the package default".

func (c ConversationConfig) TTLDuration() time.Duration { return parseDuration(c.TTL) }

func (c ConversationConfig) SweepIntervalDuration() time.Duration {
	return parseDuration(c.SweepInterval)
}

func (c CacheConfig) TTLDuration() time.Duration { return parseDuration(c.TTL) }

func (c LLMConfig) TimeoutDuration() time.Duration { return parseDuration(c.Timeout) }

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
