package config

const (
	defaultListen    = ":3000"
	defaultAPITarget = "http://localhost:3000"

	defaultLanguage  = "en"
	defaultWorkers   = 4
	defaultQueueSize = 256

	defaultMaxExchanges  = 10
	defaultConvTTL       = "30m"
	defaultSweepInterval = "5m"

	defaultCacheProvider = "memory"
	defaultCacheTTL      = "30m"

	defaultRetrievalProvider   = "memory"
	defaultRetrievalDimensions = 768
	defaultThreshold           = 0.4
	defaultTopK                = 3

	defaultPrimary   = "gemini"
	defaultFallback  = "mistral"
	defaultEmbedding = "gemini"
	defaultTimeout   = "30s"

	defaultStorageProvider = "sqlite"
	defaultSQLitePath      = "answerdesk.sqlite"

	defaultBrokers = "localhost:9092"
	defaultTopic   = "answerdesk.resolutions"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen: defaultListen,
			MCP:    true,
		},
		Client: ClientConfig{
			APITarget: defaultAPITarget,
		},
		Pipeline: PipelineConfig{
			Language:  defaultLanguage,
			Workers:   defaultWorkers,
			QueueSize: defaultQueueSize,
		},
		Conversation: ConversationConfig{
			MaxExchanges:  defaultMaxExchanges,
			TTL:           defaultConvTTL,
			SweepInterval: defaultSweepInterval,
		},
		Cache: CacheConfig{
			Provider: defaultCacheProvider,
			TTL:      defaultCacheTTL,
		},
		Retrieval: RetrievalConfig{
			Provider:   defaultRetrievalProvider,
			Dimensions: defaultRetrievalDimensions,
			Threshold:  defaultThreshold,
			TopK:       defaultTopK,
		},
		LLM: LLMConfig{
			Primary:   defaultPrimary,
			Fallback:  defaultFallback,
			Embedding: defaultEmbedding,
			Timeout:   defaultTimeout,
		},
		Storage: StorageConfig{
			Provider:   defaultStorageProvider,
			SQLitePath: defaultSQLitePath,
		},
		Events: EventsConfig{
			Brokers: defaultBrokers,
			Topic:   defaultTopic,
		},
	}
}
