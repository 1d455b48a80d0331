// Package servecmder provides the serve command that runs the answerdesk
// HTTP API.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/api"
	"github.com/papercomputeco/answerdesk/api/mcp"
	"github.com/papercomputeco/answerdesk/cmd/answerdesk/cmdutil"
	"github.com/papercomputeco/answerdesk/pkg/config"
	"github.com/papercomputeco/answerdesk/pkg/logger"
	"github.com/papercomputeco/answerdesk/pkg/service"
	"github.com/papercomputeco/answerdesk/pkg/telemetry"
)

const shutdownTimeout = 15 * time.Second

type serveCommander struct {
	debug     bool
	trace     bool
	events    bool
	noMCP     bool
	knowledge string
	logFile   string
	cfg       *config.Config
	logger    *zap.Logger
}

const serveLongDesc string = `Run the answerdesk API server.

The server answers POST /api/chat through the resolution pipeline, exposes
statistics, recent chat logs and knowledge-base search, and mounts an MCP
endpoint at /mcp unless --no-mcp is given.

Provider API keys are read from GEMINI_API_KEY, MISTRAL_API_KEY and
ONEMIN_API_KEY (a .env file in the working directory is loaded first).

Examples:
  answerdesk serve
  answerdesk serve --primary ollama --fallback ollama --embedding ollama
  answerdesk serve --cache redis --cache-target redis://localhost:6379/0
  answerdesk serve --retrieval memory --knowledge ./kb.json
  answerdesk serve --events --kafka-brokers localhost:9092 --trace
  answerdesk serve --log-file /var/log/answerdesk.jsonl`

const serveShortDesc string = "Run the answerdesk API server"

var serveFlagKeys = []string{config.FlagListen}

func NewServeCmd() *cobra.Command {
	return newServeCmd(&serveCommander{})
}

func newServeCmd(cmder *serveCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = cmdutil.LoadServiceConfig(cmd, serveFlagKeys...)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("events") {
				cmder.cfg.Events.Enabled = cmder.events
			}
			if cmder.noMCP {
				cmder.cfg.Server.MCP = false
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlags(cmd, config.Flags, serveFlagKeys)
	cmdutil.AddServiceFlags(cmd)
	cmd.Flags().BoolVar(&cmder.events, "events", false, "Publish resolution outcomes to kafka")
	cmd.Flags().BoolVar(&cmder.trace, "trace", false, "Print OpenTelemetry spans to stderr")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the MCP endpoint")
	cmd.Flags().StringVar(&cmder.knowledge, "knowledge", "", "JSON file of snippets to seed into the knowledge base at startup")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

func (c *serveCommander) run() error {
	closeLog, err := c.setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(telemetry.Config{
		Enabled: c.trace,
		Writer:  os.Stderr,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}

	svc, err := service.Build(ctx, c.cfg, service.Options{Logger: c.logger})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Close(closeCtx); err != nil {
			c.logger.Error("service shutdown incomplete", zap.Error(err))
		}
		if err := shutdownTracing(closeCtx); err != nil {
			c.logger.Error("flushing traces failed", zap.Error(err))
		}
	}()

	if c.knowledge != "" {
		docs, err := service.LoadKnowledge(c.knowledge)
		if err != nil {
			return err
		}
		if _, err := svc.Seed(ctx, docs); err != nil {
			return fmt.Errorf("seeding knowledge base: %w", err)
		}
	}

	svc.Start()

	apiConfig := api.Config{
		ListenAddr:      c.cfg.Server.Listen,
		Pipeline:        svc.Pipeline,
		Store:           svc.Storage,
		Conversations:   svc.Conversations,
		SearchThreshold: float32(c.cfg.Retrieval.Threshold),
	}
	if svc.Retrieval != nil {
		apiConfig.Searcher = svc.Retrieval
	}

	if c.cfg.Server.MCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Pipeline:        svc.Pipeline,
			Searcher:        apiConfig.Searcher,
			SearchThreshold: apiConfig.SearchThreshold,
			Logger:          c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
		apiConfig.MCPHandler = mcpServer.Handler()
	}

	server, err := api.NewServer(apiConfig, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		if err := server.Shutdown(); err != nil {
			c.logger.Error("API server shutdown failed", zap.Error(err))
		}
		return nil
	}
}

// setupLogger builds the console logger and, with --log-file, tees it into a
// JSON file logger.
func (c *serveCommander) setupLogger() (func(), error) {
	console := logger.NewLogger(c.debug)
	if c.logFile == "" {
		c.logger = console
		return func() { _ = c.logger.Sync() }, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithWriters(f),
	)
	c.logger = logger.Multi(console, file)

	return func() {
		_ = c.logger.Sync()
		_ = f.Close()
	}, nil
}
