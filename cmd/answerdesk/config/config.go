// Package configcmder provides the config command for managing persistent
// answerdesk configuration stored in the .answerdesk/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent answerdesk configuration.

Configuration is stored as config.toml in the .answerdesk/ directory and
provides default values for command flags. Precedence, highest first:
CLI flags, ANSWERDESK_* environment variables, config.toml, built-in defaults.

Keys use dotted notation matching the TOML section structure, for example:
  server.listen, pipeline.language, conversation.ttl,
  cache.provider, retrieval.provider, retrieval.threshold,
  llm.primary, llm.fallback, providers.ollama.base_url,
  storage.provider, events.enabled

Provider API keys are never stored here. Set GEMINI_API_KEY, MISTRAL_API_KEY
or ONEMIN_API_KEY in the environment or a .env file.

Use subcommands to get, set, or list configuration values:
  answerdesk config set <key> <value>    Set a configuration value
  answerdesk config get <key>            Get a configuration value
  answerdesk config list                 List all configuration values

Examples:
  answerdesk config set llm.primary mistral
  answerdesk config set cache.provider redis
  answerdesk config get retrieval.threshold
  answerdesk config list`

const configShortDesc string = "Manage persistent answerdesk configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
