package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --primary
// on both "answerdesk serve" and "answerdesk ask").
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "server.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag and BindRegisteredFlags to
// avoid typos or drift from one command to another.
const (
	FlagListen       = "listen"
	FlagPrimary      = "primary"
	FlagFallback     = "fallback"
	FlagEmbedding    = "embedding"
	FlagLanguage     = "language"
	FlagCache        = "cache"
	FlagCacheTarget  = "cache-target"
	FlagRetrieval    = "retrieval"
	FlagRetrievalTgt = "retrieval-target"
	FlagStorage      = "storage"
	FlagSQLite       = "sqlite"
	FlagPostgres     = "postgres"
	FlagKafkaBrokers = "kafka-brokers"
	FlagAPITarget    = "api-target"
	FlagThreshold    = "threshold"
	FlagTopK         = "top-k"
	FlagTimeout      = "provider-timeout"
)

// Flags is the registry shared by every answerdesk command.
var Flags = FlagSet{
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "server.listen",
		Description: "Address for the API server to listen on",
	},
	FlagPrimary: {
		Name:        "primary",
		ViperKey:    "llm.primary",
		Description: "Primary generation provider (gemini, mistral, onemin, ollama)",
	},
	FlagFallback: {
		Name:        "fallback",
		ViperKey:    "llm.fallback",
		Description: "Fallback generation provider",
	},
	FlagEmbedding: {
		Name:        "embedding",
		ViperKey:    "llm.embedding",
		Description: "Provider used for question embeddings",
	},
	FlagLanguage: {
		Name:        "language",
		ViperKey:    "pipeline.language",
		Description: "Prompt and reply language (en, vi)",
	},
	FlagCache: {
		Name:        "cache",
		ViperKey:    "cache.provider",
		Description: "Answer cache backend (memory, redis, badger)",
	},
	FlagCacheTarget: {
		Name:        "cache-target",
		ViperKey:    "cache.target",
		Description: "Redis URL or badger directory",
	},
	FlagRetrieval: {
		Name:        "retrieval",
		ViperKey:    "retrieval.provider",
		Description: "Knowledge base index (memory, postgres, qdrant, sqlite, none)",
	},
	FlagRetrievalTgt: {
		Name:        "retrieval-target",
		ViperKey:    "retrieval.target",
		Description: "Knowledge base DSN, path or host",
	},
	FlagStorage: {
		Name:        "storage",
		ViperKey:    "storage.provider",
		Description: "Chat log storage (inmemory, sqlite, postgres)",
	},
	FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to the SQLite database",
	},
	FlagPostgres: {
		Name:        "postgres",
		ViperKey:    "storage.postgres_dsn",
		Description: "PostgreSQL connection string",
	},
	FlagKafkaBrokers: {
		Name:        "kafka-brokers",
		ViperKey:    "events.brokers",
		Description: "Comma separated kafka brokers for outcome events",
	},
	FlagAPITarget: {
		Name:        "api-target",
		Shorthand:   "a",
		ViperKey:    "client.api_target",
		Description: "answerdesk API server URL",
	},
	FlagThreshold: {
		Name:        "threshold",
		ViperKey:    "retrieval.threshold",
		Description: "Minimum similarity for knowledge base matches",
	},
	FlagTopK: {
		Name:        "top-k",
		ViperKey:    "retrieval.top_k",
		Description: "Maximum knowledge base matches per question",
	},
	FlagTimeout: {
		Name:        "provider-timeout",
		ViperKey:    "llm.timeout",
		Description: "Per-call provider timeout",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// LoadForCommand resolves the full configuration for cmd: defaults, the
// config.toml found through --config-dir, ANSWERDESK_* environment overrides
// and the registered flags named by registryKeys, in increasing precedence.
func LoadForCommand(cmd *cobra.Command, fs FlagSet, registryKeys []string) (*Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := InitViper(configDir)
	if err != nil {
		return nil, err
	}

	BindRegisteredFlags(v, cmd, fs, registryKeys)
	return FromViper(v)
}

// ServiceFlagKeys are the registry keys accepted by every command that
// builds the resolution pipeline locally.
var ServiceFlagKeys = []string{
	FlagPrimary,
	FlagFallback,
	FlagEmbedding,
	FlagLanguage,
	FlagCache,
	FlagCacheTarget,
	FlagRetrieval,
	FlagRetrievalTgt,
	FlagStorage,
	FlagSQLite,
	FlagPostgres,
	FlagKafkaBrokers,
	FlagThreshold,
	FlagTopK,
	FlagTimeout,
}

// AddStringFlags registers every flag in registryKeys on cmd. The values are
// read back through viper, so no destination is kept.
func AddStringFlags(cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, key := range registryKeys {
		var sink string
		AddStringFlag(cmd, fs, key, &sink)
	}
}
