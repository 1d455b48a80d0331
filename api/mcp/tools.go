package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/api/search"
)

// defaultUserID owns conversations started through MCP without a user_id.
const defaultUserID = "mcp"

var (
	askToolName    = "ask"
	askDescription = "Ask the support assistant a question. Answers come from the answer cache, the knowledge base or a language model, and follow-up questions with the same user_id share conversation memory."

	searchToolName    = "knowledge_search"
	searchDescription = "Search the support knowledge base using semantic search. Returns the most relevant snippets with their similarity scores."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question  string `json:"question" jsonschema:"the question to answer"`
	UserID    string `json:"user_id,omitempty" jsonschema:"identifies the asker so follow-up questions keep their conversation context"`
	SessionID string `json:"session_id,omitempty" jsonschema:"groups chat logs; generated when omitted"`
}

// AskOutput represents the output of the ask tool.
type AskOutput struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

// SearchInput represents the input arguments for the knowledge_search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query text"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of results to return (default: 5)"`
}

// handleAsk processes an ask request.
func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	if input.Question == "" {
		return errorResult("question is required"), AskOutput{}, nil
	}

	userID := input.UserID
	if userID == "" {
		userID = defaultUserID
	}
	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s.config.Logger.Debug("MCP ask request",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
	)

	output := AskOutput{
		Answer:    s.config.Pipeline.ProcessMessage(ctx, userID, sessionID, input.Question),
		SessionID: sessionID,
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: output.Answer},
		},
	}, output, nil
}

// handleSearch processes a knowledge_search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, search.SearchOutput, error) {
	logger := s.config.Logger

	output, err := search.Search(ctx,
		search.SearchInput{Query: input.Query, TopK: input.TopK},
		s.config.SearchThreshold,
		s.config.Searcher,
		logger,
	)
	if err != nil {
		logger.Error("MCP search failed", zap.Error(err))
		return errorResult(fmt.Sprintf("Failed to search knowledge base: %v", err)), search.SearchOutput{}, nil
	}

	// Serialize the structured output as JSON for the text field
	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal search output", zap.Error(err))
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), search.SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, *output, nil
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
