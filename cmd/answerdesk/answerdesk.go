// Package answerdeskcmder is the root answerdesk command.
package answerdeskcmder

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/answerdesk/cmd/answerdesk/ask"
	chatcmder "github.com/papercomputeco/answerdesk/cmd/answerdesk/chat"
	configcmder "github.com/papercomputeco/answerdesk/cmd/answerdesk/config"
	initcmder "github.com/papercomputeco/answerdesk/cmd/answerdesk/init"
	seedcmder "github.com/papercomputeco/answerdesk/cmd/answerdesk/seed"
	servecmder "github.com/papercomputeco/answerdesk/cmd/answerdesk/serve"
	statscmder "github.com/papercomputeco/answerdesk/cmd/answerdesk/stats"
	versioncmder "github.com/papercomputeco/answerdesk/cmd/version"
)

const answerdeskLongDesc string = `answerdesk answers customer-support questions.

Each question is resolved through an answer cache, a knowledge base and a
pair of LLM providers, with short-term conversation memory per user.

Run the service and talk to it using:
  answerdesk serve      Run the HTTP API (and MCP endpoint)
  answerdesk chat       Chat with a running server
  answerdesk ask        Answer one question without a server`

const answerdeskShortDesc string = "answerdesk - customer-support answering service"

func NewAnswerdeskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "answerdesk",
		Short:        answerdeskShortDesc,
		Long:         answerdeskLongDesc,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// Provider API keys may live in a .env file; a missing file is fine.
			_ = godotenv.Load()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .answerdesk/ config directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(seedcmder.NewSeedCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
