// Package seedcmder provides the seed command that loads knowledge-base
// snippets into the configured vector index.
package seedcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/cmd/answerdesk/cmdutil"
	"github.com/papercomputeco/answerdesk/pkg/cliui"
	"github.com/papercomputeco/answerdesk/pkg/config"
	"github.com/papercomputeco/answerdesk/pkg/logger"
	"github.com/papercomputeco/answerdesk/pkg/service"
)

const seedLongDesc string = `Seed knowledge-base snippets into the configured vector index.

The file is a JSON array of {"id": "...", "content": "..."} objects. Each
snippet is embedded with the embedding provider and written to the index;
snippets with an existing id are replaced.

Only indexes answerdesk owns can be seeded (sqlite, qdrant). The postgres
index is a match function maintained by the database, and the memory index
lives only as long as one process: use "answerdesk serve --knowledge" for it.

Examples:
  answerdesk seed kb.json --retrieval sqlite --retrieval-target ./kb.sqlite
  answerdesk seed kb.json --retrieval qdrant --retrieval-target localhost`

const seedShortDesc string = "Seed the knowledge base"

type seedCommander struct {
	debug bool
	cfg   *config.Config
	out   io.Writer
}

func NewSeedCmd() *cobra.Command {
	cmder := &seedCommander{out: os.Stdout}

	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: seedShortDesc,
		Long:  seedLongDesc,
		Args:  cobra.ExactArgs(1),
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
			return cmder.run(cmd.Context(), args[0])
		},
	}

	cmdutil.AddServiceFlags(cmd)

	return cmd
}

func (c *seedCommander) run(ctx context.Context, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log := logger.NewLoggerWithWriters(c.debug, os.Stderr)
	defer func() { _ = log.Sync() }()

	docs, err := service.LoadKnowledge(path)
	if err != nil {
		return err
	}

	svc, err := service.Build(ctx, c.cfg, service.Options{Logger: log})
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(context.Background()); err != nil {
			log.Error("service shutdown incomplete", zap.Error(err))
		}
	}()

	var seeded int
	if err := cliui.Step(c.out, "Embedding and indexing snippets", func() error {
		var seedErr error
		seeded, seedErr = svc.Seed(ctx, docs)
		return seedErr
	}); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Seeded %s snippets into %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(strconv.Itoa(seeded)),
		cliui.DimStyle.Render(c.cfg.Retrieval.Provider),
	)
	return nil
}
