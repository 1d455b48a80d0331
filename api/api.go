package api

import (
	"context"
	"errors"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/api/search"
	"github.com/papercomputeco/answerdesk/pkg/storage"
)

// Resolver is satisfied by *pipeline.Pipeline.
type Resolver interface {
	ProcessMessage(ctx context.Context, userID, sessionID, question string) string
}

// Store is the part of storage.Driver the API reads and writes.
type Store interface {
	CreateSession(ctx context.Context, userID string, metadata map[string]any) (storage.Session, error)
	Stats(ctx context.Context) (storage.Stats, error)
	RecentChatLogs(ctx context.Context, limit int) ([]storage.ChatLog, error)
}

// Conversations is satisfied by *conversation.Store.
type Conversations interface {
	Clear(userID string) bool
	Active() int
}

// Searcher is satisfied by *retrieval.Client.
type Searcher = search.Searcher

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the API server for the answerdesk service
type Server struct {
	config Config
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
func NewServer(config Config, logger *zap.Logger) (*Server, error) {
	if config.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if config.Store == nil {
		return nil, errors.New("store is required")
	}
	if config.Conversations == nil {
		return nil, errors.New("conversation store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/api/chat", s.handleChat)
	app.Get("/api/stats", s.handleStats)
	app.Get("/api/stats/recent", s.handleRecent)
	app.Delete("/api/conversations/:userId", s.handleClearConversation)
	app.Get("/api/search", s.handleSearch)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
