package progress

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/redteam-academy/api/services"
	"github.com/redteam-academy/api/utils/middleware"
	"github.com/redteam-academy/api/utils/response"
)

// ProgressHandler handles learning module progress requests
type ProgressHandler struct {
	service *services.ProgressService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(service *services.ProgressService) *ProgressHandler {
	return &ProgressHandler{service: service}
}

// SectionRequest marks a module section complete
type SectionRequest struct {
	ModuleID int    `json:"moduleId" validate:"required"`
	Section  string `json:"section" validate:"required"`
}

// QuizRequest records a quiz submission
type QuizRequest struct {
	ModuleID int `json:"moduleId" validate:"required"`
	Score    int `json:"score"`
}

// Get returns the aggregate progress snapshot
func (h *ProgressHandler) Get(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	view, err := h.service.GetProgress(userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load progress")
	}

	return response.Success(c, view)
}

// UpdateSection marks a section complete
func (h *ProgressHandler) UpdateSection(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req SectionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	progress, err := h.service.UpdateSection(userID, req.ModuleID, req.Section)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownModule):
			return response.BadRequest(c, "Unknown learning module")
		case errors.Is(err, services.ErrUnknownSection):
			return response.BadRequest(c, "Unknown module section")
		default:
			return response.InternalServerError(c, "Failed to update progress")
		}
	}

	return response.Success(c, progress)
}

// CompleteQuiz records a quiz score
func (h *ProgressHandler) CompleteQuiz(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req QuizRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	progress, err := h.service.CompleteQuiz(userID, req.ModuleID, req.Score)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownModule):
			return response.BadRequest(c, "Unknown learning module")
		case errors.Is(err, services.ErrInvalidQuizScore):
			return response.BadRequest(c, "Quiz score must be between 0 and 100")
		default:
			return response.InternalServerError(c, "Failed to record quiz")
		}
	}

	return response.Success(c, progress)
}

// Reset clears all module progress for the user
func (h *ProgressHandler) Reset(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	if err := h.service.ResetProgress(userID); err != nil {
		return response.InternalServerError(c, "Failed to reset progress")
	}

	return response.SuccessWithMessage(c, "Progress reset", nil)
}
