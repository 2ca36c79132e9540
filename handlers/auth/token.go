package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redteam-academy/api/utils/middleware"
	"github.com/redteam-academy/api/utils/response"
)

// Verify confirms the presented bearer token is valid. The auth middleware
// already rejected bad tokens, so reaching here means the token checks out.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	return response.Success(c, fiber.Map{
		"valid": true,
		"user": fiber.Map{
			"userId": claims.UserID,
			"email":  claims.Email,
			"role":   claims.Role,
		},
	})
}

// Logout revokes the presented token by blacklisting its JTI
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	claims, _ := middleware.GetClaims(c)
	jti, ok := middleware.GetTokenJTI(c)
	if !ok || claims == nil || claims.ExpiresAt == nil {
		return response.BadRequest(c, "Token cannot be revoked")
	}

	if err := h.blacklistService.RevokeToken(c.Context(), jti, userID, claims.ExpiresAt.Time, "logout"); err != nil {
		return response.InternalServerError(c, "Failed to revoke token")
	}

	return response.SuccessWithMessage(c, "Logged out successfully", nil)
}
