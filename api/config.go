// Package api provides the HTTP API server for answering questions and
// inspecting resolution statistics.
package api

import (
	"net/http"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Pipeline answers chat requests.
	Pipeline Resolver

	// Store creates sessions and serves stats.
	Store Store

	// Conversations exposes the live conversation table.
	Conversations Conversations

	// Searcher enables GET /api/search. Optional.
	Searcher Searcher

	// SearchThreshold is the default similarity threshold for /api/search.
	SearchThreshold float32

	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler
}
