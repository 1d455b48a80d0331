// Package askcmder provides the ask command, a one-shot resolution through a
// locally built pipeline.
package askcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/cmd/answerdesk/cmdutil"
	"github.com/papercomputeco/answerdesk/pkg/cliui"
	"github.com/papercomputeco/answerdesk/pkg/config"
	"github.com/papercomputeco/answerdesk/pkg/logger"
	"github.com/papercomputeco/answerdesk/pkg/service"
)

type askCommander struct {
	userID    string
	sessionID string
	raw       bool
	debug     bool

	cfg    *config.Config
	out    io.Writer
	logger *zap.Logger
}

const askLongDesc string = `Answer a single question without a running server.

The full pipeline is built in-process from the configuration: answer cache,
knowledge base, providers and chat log storage. The chat log is written to
the configured storage like any other request.

Examples:
  answerdesk ask "How do I reset my password?"
  answerdesk ask --primary ollama --fallback ollama --embedding ollama "Opening hours?"
  answerdesk ask --raw "What is the refund policy?"`

const askShortDesc string = "Answer one question without a server"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{out: os.Stdout}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = cmdutil.LoadServiceConfig(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context(), strings.Join(args, " "))
		},
	}

	cmdutil.AddServiceFlags(cmd)
	cmd.Flags().StringVar(&cmder.userID, "user", "cli", "User id keying the conversation memory")
	cmd.Flags().StringVar(&cmder.sessionID, "session", "", "Session id recorded with the chat log (default: random)")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the answer without markdown rendering")

	return cmd
}

func (c *askCommander) run(ctx context.Context, question string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("question is required")
	}

	// Logs go to stderr so the answer can be piped.
	c.logger = logger.NewLoggerWithWriters(c.debug, os.Stderr)
	defer func() { _ = c.logger.Sync() }()

	svc, err := service.Build(ctx, c.cfg, service.Options{Logger: c.logger})
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(context.Background()); err != nil {
			c.logger.Error("service shutdown incomplete", zap.Error(err))
		}
	}()

	sessionID := c.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	answer := svc.Pipeline.ProcessMessage(ctx, c.userID, sessionID, question)

	if c.raw {
		fmt.Fprintln(c.out, answer)
		return nil
	}
	fmt.Fprintf(c.out, "\n%s\n\n", cliui.Answer(answer))
	return nil
}
