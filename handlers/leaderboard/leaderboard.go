package leaderboard

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/redteam-academy/api/services"
	"github.com/redteam-academy/api/utils/middleware"
	"github.com/redteam-academy/api/utils/response"
)

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	service *services.LeaderboardService
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(service *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

// UpdateScoreRequest represents a score increment request
type UpdateScoreRequest struct {
	Points int `json:"points"`
}

// List returns all users ordered by score
func (h *LeaderboardHandler) List(c *fiber.Ctx) error {
	entries, err := h.service.List()
	if err != nil {
		return response.InternalServerError(c, "Failed to load leaderboard")
	}

	return response.Success(c, entries)
}

// UpdateScore adds points to the authenticated user's total
func (h *LeaderboardHandler) UpdateScore(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req UpdateScoreRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Points <= 0 {
		return response.BadRequest(c, "Invalid points value")
	}

	newScore, err := h.service.AddPoints(userID, req.Points)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to update score")
	}

	return response.Success(c, fiber.Map{
		"newScore": newScore,
	})
}
