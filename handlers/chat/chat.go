package chat

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/redteam-academy/api/services"
	"github.com/redteam-academy/api/utils/response"
)

// ChatHandler handles challenge chat requests
type ChatHandler struct {
	chatService *services.ChatService
	catalog     *services.Catalog
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *services.ChatService, catalog *services.Catalog) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		catalog:     catalog,
	}
}

// ChatRequest represents a start-or-continue chat request
type ChatRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Level     string `json:"level,omitempty"`
	Message   string `json:"message,omitempty"`
}

// MetadataRequest represents a level metadata request
type MetadataRequest struct {
	Level string `json:"level"`
}

// Chat is the single chat endpoint: starts a session for a level, or
// continues an existing one. Without a message it only reports the
// session as ready; with one it exchanges a turn with the provider.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.SessionID == "" && req.Level == "" {
		return response.BadRequest(c, "Provide level to start OR sessionId to continue")
	}

	session, err := h.chatService.StartOrContinue(c.Context(), req.SessionID, req.Level)
	if err != nil {
		if errors.Is(err, services.ErrLevelNotFound) {
			return response.BadRequest(c, "Unknown challenge level")
		}
		return response.InternalServerError(c, "Failed to start session")
	}

	if req.Message == "" {
		return response.Success(c, fiber.Map{
			"sessionId": session.ID,
			"level":     session.LevelKey,
			"status":    "ready",
		})
	}

	session, reply, err := h.chatService.SendMessage(c.Context(), session.ID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			return response.NotFound(c, "Session not found or expired")
		case errors.Is(err, services.ErrUpstreamGeneration):
			return response.UpstreamError(c, "Generation provider failed")
		case errors.Is(err, services.ErrSessionBusy):
			return response.TooManyRequests(c, "Session is busy, try again")
		default:
			return response.InternalServerError(c, "Failed to process message")
		}
	}

	return response.Success(c, fiber.Map{
		"sessionId": session.ID,
		"level":     session.LevelKey,
		"reply":     reply,
	})
}

// Metadata returns the public catalog view of a level
func (h *ChatHandler) Metadata(c *fiber.Ctx) error {
	var req MetadataRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Level == "" {
		return response.BadRequest(c, "Please enter a valid level")
	}

	meta, ok := h.catalog.Metadata(req.Level)
	if !ok {
		return response.NotFound(c, "Invalid level")
	}

	return response.Success(c, meta)
}
