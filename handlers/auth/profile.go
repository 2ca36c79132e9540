package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redteam-academy/api/utils/middleware"
	"github.com/redteam-academy/api/utils/response"
)

// Profile returns the authenticated user's profile. The auth middleware
// already loaded and version-checked the user, so no second query is needed.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	return response.Success(c, fiber.Map{
		"user": sanitizeUser(user),
	})
}
