package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/redteam-academy/api/model"
	authutil "github.com/redteam-academy/api/utils/auth"
	"github.com/redteam-academy/api/utils/response"
)

// SigninRequest represents a user signin request
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SigninResponse represents a successful signin response
type SigninResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// Signin handles user login. All credential failures return the same
// generic message so responses don't reveal whether an email is registered.
func (h *AuthHandler) Signin(c *fiber.Ctx) error {
	var req SigninRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	// Validate request
	if req.Email == "" || req.Password == "" {
		return response.BadRequest(c, "Email and password are required")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	ip := c.IP()

	// Find user by email
	var user model.User
	if err := h.db.Where("email = ?", email).First(&user).Error; err != nil {
		if h.bruteForceProtection != nil {
			h.bruteForceProtection.RecordFailedAttempt(c, ip)
		}
		return response.Unauthorized(c, "Invalid email or password")
	}

	// Accounts without a password hash can never sign in this way
	if user.PasswordHash == "" {
		if h.bruteForceProtection != nil {
			h.bruteForceProtection.RecordFailedAttempt(c, ip)
		}
		return response.Unauthorized(c, "Invalid email or password")
	}

	// Verify password
	if err := authutil.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		if h.bruteForceProtection != nil {
			h.bruteForceProtection.RecordFailedAttempt(c, ip)
		}
		return response.Unauthorized(c, "Invalid email or password")
	}

	// Clear failed attempts on successful login
	if h.bruteForceProtection != nil {
		h.bruteForceProtection.RecordSuccessfulAttempt(c, ip)
	}

	h.touchLastLogin(&user)

	token, _, err := h.jwtManager.GenerateToken(user.ID, user.Email, user.Role, user.TokenVersion)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate token")
	}

	return response.Success(c, SigninResponse{
		User:  sanitizeUser(&user),
		Token: token,
	})
}
