package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/api/search"
	"github.com/papercomputeco/answerdesk/pkg/storage"
)

const maxRecentLimit = 200

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId,omitempty"`
	Question  string `json:"question"`
}

// ChatResponse is returned by POST /api/chat.
type ChatResponse struct {
	SessionID string `json:"sessionId"`
	Answer    string `json:"answer"`
}

// StatsResponse is returned by GET /api/stats.
type StatsResponse struct {
	ActiveConversations int              `json:"active_conversations"`
	ChatLogs            int64            `json:"chat_logs"`
	Layers              map[string]int64 `json:"layers"`
	Providers           map[string]int64 `json:"providers"`
	AverageLatencyMs    float64          `json:"average_latency_ms"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleChat resolves one question. A missing sessionId starts a new session.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || strings.TrimSpace(req.Question) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "userId and question are required"})
	}

	ctx := c.UserContext()

	if req.SessionID == "" {
		session, err := s.config.Store.CreateSession(ctx, req.UserID, map[string]any{"source": "api"})
		if err != nil {
			// the answer matters more than the session record
			req.SessionID = uuid.NewString()
			s.logger.Warn("failed to create session, using an unsaved id",
				zap.String("user_id", req.UserID),
				zap.String("session_id", req.SessionID),
				zap.Error(err),
			)
		} else {
			req.SessionID = session.ID
		}
	}

	answer := s.config.Pipeline.ProcessMessage(ctx, req.UserID, req.SessionID, req.Question)

	return c.JSON(ChatResponse{SessionID: req.SessionID, Answer: answer})
}

// handleStats returns the layer and provider distribution of chat logs.
func (s *Server) handleStats(c *fiber.Ctx) error {
	stats, err := s.config.Store.Stats(c.UserContext())
	if err != nil {
		s.logger.Error("failed to load stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load stats"})
	}

	layers := map[string]int64{"0": 0, "1": 0, "2": 0, "3": 0}
	for layer, n := range stats.Layers {
		layers[strconv.Itoa(layer)] = n
	}

	return c.JSON(StatsResponse{
		ActiveConversations: s.config.Conversations.Active(),
		ChatLogs:            stats.ChatLogs,
		Layers:              layers,
		Providers:           stats.Providers,
		AverageLatencyMs:    stats.AverageLatencyMs,
	})
}

// handleRecent returns the most recent chat logs.
// Query parameters:
//   - limit (optional, default 20, max 200)
func (s *Server) handleRecent(c *fiber.Ctx) error {
	limit := storage.DefaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be a positive integer"})
		}
		limit = min(parsed, maxRecentLimit)
	}

	logs, err := s.config.Store.RecentChatLogs(c.UserContext(), limit)
	if err != nil {
		s.logger.Error("failed to load recent chat logs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load recent chat logs"})
	}
	if logs == nil {
		logs = []storage.ChatLog{}
	}

	return c.JSON(fiber.Map{
		"count": len(logs),
		"logs":  logs,
	})
}

// handleClearConversation drops a user's live conversation without archiving it.
func (s *Server) handleClearConversation(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "userId parameter required"})
	}

	cleared := s.config.Conversations.Clear(userID)
	s.logger.Info("conversation reset requested",
		zap.String("user_id", userID),
		zap.Bool("cleared", cleared),
	)

	return c.JSON(fiber.Map{
		"userId":  userID,
		"cleared": cleared,
	})
}

// handleSearch handles GET /api/search requests.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional, default 5): number of results to return
func (s *Server) handleSearch(c *fiber.Ctx) error {
	if s.config.Searcher == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "search is not configured: a similarity index and embedding provider are required",
		})
	}

	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "query parameter is required",
		})
	}

	input := search.SearchInput{Query: query}
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "top_k must be a positive integer",
			})
		}
		input.TopK = parsed
	}

	output, err := search.Search(c.UserContext(), input, s.config.SearchThreshold, s.config.Searcher, s.logger)
	if err != nil {
		if errors.Is(err, search.ErrNotConfigured) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: err.Error()})
		}
		s.logger.Error("search failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "search failed"})
	}

	return c.JSON(output)
}
