package challenge

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/redteam-academy/api/services"
	"github.com/redteam-academy/api/utils/middleware"
	"github.com/redteam-academy/api/utils/response"
)

// ChallengeHandler handles flag submission and attempt state requests
type ChallengeHandler struct {
	service *services.ChallengeService
	catalog *services.Catalog
}

// NewChallengeHandler creates a new challenge handler
func NewChallengeHandler(service *services.ChallengeService, catalog *services.Catalog) *ChallengeHandler {
	return &ChallengeHandler{service: service, catalog: catalog}
}

// SubmitRequest represents a flag submission
type SubmitRequest struct {
	Flag      string `json:"flag" validate:"required"`
	TimeSpent int    `json:"timeSpent,omitempty"` // Seconds since level start
}

// SubmitFlag checks a flag guess against the server-side catalog
func (h *ChallengeHandler) SubmitFlag(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	vulnID, level, err := h.parseParams(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Flag == "" {
		return response.BadRequest(c, "Flag is required")
	}

	result, err := h.service.SubmitFlag(userID, vulnID, level, req.Flag, req.TimeSpent)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLevelNotFound):
			return response.NotFound(c, "Unknown challenge level")
		case errors.Is(err, services.ErrLevelLocked):
			return response.Forbidden(c, "Complete the previous level first")
		case errors.Is(err, services.ErrAlreadySolved):
			return response.Conflict(c, "Level already solved")
		case errors.Is(err, services.ErrOutOfAttempts):
			return response.Forbidden(c, "Out of attempts. Reset the level to try again")
		default:
			return response.InternalServerError(c, "Failed to process submission")
		}
	}

	return response.Success(c, result)
}

// RevealHint returns the next hint for a level
func (h *ChallengeHandler) RevealHint(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	vulnID, level, err := h.parseParams(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	hint, err := h.service.RevealHint(userID, vulnID, level)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLevelNotFound):
			return response.NotFound(c, "Unknown challenge level")
		case errors.Is(err, services.ErrLevelLocked):
			return response.Forbidden(c, "Complete the previous level first")
		case errors.Is(err, services.ErrNoMoreHints):
			return response.NotFound(c, "No more hints available")
		default:
			return response.InternalServerError(c, "Failed to reveal hint")
		}
	}

	return response.Success(c, hint)
}

// ResetAttempt clears a locked-out attempt so the level can be retried
func (h *ChallengeHandler) ResetAttempt(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	vulnID, level, err := h.parseParams(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := h.service.ResetAttempt(userID, vulnID, level); err != nil {
		switch {
		case errors.Is(err, services.ErrLevelNotFound):
			return response.NotFound(c, "Unknown challenge level")
		case errors.Is(err, services.ErrAlreadySolved):
			return response.Conflict(c, "Level already solved")
		default:
			return response.InternalServerError(c, "Failed to reset attempt")
		}
	}

	return response.SuccessWithMessage(c, "Attempt state reset", nil)
}

// GetProgress returns per-track challenge progress
func (h *ChallengeHandler) GetProgress(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	vulnID, err := c.ParamsInt("vulnID")
	if err != nil || vulnID < 1 {
		return response.BadRequest(c, "Invalid vulnerability ID")
	}
	if _, ok := h.catalog.Vulnerability(vulnID); !ok {
		return response.NotFound(c, "Unknown vulnerability")
	}

	progress, err := h.service.GetProgress(userID, vulnID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load progress")
	}

	return response.Success(c, progress)
}

// ListVulnerabilities returns the OWASP LLM Top 10 learning modules
func (h *ChallengeHandler) ListVulnerabilities(c *fiber.Ctx) error {
	return response.Success(c, h.catalog.Vulnerabilities())
}

// parseParams validates the :vulnID and :level route params
func (h *ChallengeHandler) parseParams(c *fiber.Ctx) (int, int, error) {
	vulnID, err := c.ParamsInt("vulnID")
	if err != nil || vulnID < 1 {
		return 0, 0, errors.New("invalid vulnerability ID")
	}
	if _, ok := h.catalog.Vulnerability(vulnID); !ok {
		return 0, 0, errors.New("unknown vulnerability")
	}

	level, err := c.ParamsInt("level")
	if err != nil || level < 1 {
		return 0, 0, errors.New("invalid level")
	}

	return vulnID, level, nil
}
