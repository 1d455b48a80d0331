// Package mcp provides an MCP (Model Context Protocol) server exposing the
// resolution pipeline and the knowledge base as tools.
package mcp

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/api/search"
	"github.com/papercomputeco/answerdesk/pkg/utils"
)

// Resolver is satisfied by *pipeline.Pipeline.
type Resolver interface {
	ProcessMessage(ctx context.Context, userID, sessionID, question string) string
}

type Config struct {
	// Pipeline answers the ask tool.
	Pipeline Resolver

	// Searcher for the knowledge_search tool (optional)
	Searcher search.Searcher

	// SearchThreshold is the default similarity threshold for knowledge_search.
	SearchThreshold float32

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured zap logger
	Logger *zap.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the ask and knowledge_search tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	// Create the MCP server
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "answerdesk",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)
	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		// if the noop flag is set (i.e., MCP capabilities are disabled)
		return s, nil
	}

	if c.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        askToolName,
		Description: askDescription,
	}, s.handleAsk)

	// Add the search tool only if a knowledge base is configured
	if c.Searcher != nil {
		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        searchToolName,
			Description: searchDescription,
		}, s.handleSearch)
	}

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying MCP server, for in-process transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}
