package auth

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/redteam-academy/api/model"
	authutil "github.com/redteam-academy/api/utils/auth"
	"github.com/redteam-academy/api/utils/response"
	"github.com/redteam-academy/api/utils/validation"
	"gorm.io/gorm"
)

var validate = validation.NewValidator()

const (
	usernameBaseMaxLen  = 20
	usernameSuffixLen   = 6
	usernameMaxRetries  = 10
	usernameSuffixChars = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// SignupRequest represents a user signup request
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"fullName,omitempty"`
	Username string `json:"username,omitempty"`
}

// SignupResponse represents a successful signup response
type SignupResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// Signup handles user registration
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	// Validate request
	if req.Email == "" || req.Password == "" {
		return response.BadRequest(c, "Email and password are required")
	}

	if !authutil.IsPasswordValid(req.Password) {
		return response.BadRequest(c, "Password must be 8 to 72 characters long")
	}

	if err := validate.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	email := strings.ToLower(validation.SanitizeString(req.Email))

	// Check if user already exists
	var existingUser model.User
	if err := h.db.Where("email = ?", email).First(&existingUser).Error; err == nil {
		return response.Conflict(c, "User with this email already exists")
	}

	// Resolve username: honor a supplied one, otherwise derive
	username := validation.SanitizeString(req.Username)
	if username != "" {
		if ok, reason := validation.ValidateUsername(username); !ok {
			return response.BadRequest(c, reason)
		}
		if err := h.db.Where("username = ?", username).First(&existingUser).Error; err == nil {
			return response.Conflict(c, "Username already taken")
		}
	} else {
		derived, err := h.deriveUsername(email, req.FullName)
		if err != nil {
			return response.InternalServerError(c, "Failed to generate username")
		}
		username = derived
	}

	// Hash password
	hashedPassword, err := authutil.HashPassword(req.Password)
	if err != nil {
		return response.InternalServerError(c, "Failed to process password")
	}

	// Create user
	user := model.User{
		Email:        email,
		Username:     username,
		DisplayName:  validation.SanitizeString(req.FullName),
		PasswordHash: hashedPassword,
		Role:         model.RoleUser,
		TokenVersion: 0,
	}

	// A concurrent signup can slip past the existence checks; the unique
	// index is the real guard, so surface its violation as a conflict
	if err := h.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response.Conflict(c, "User with this email already exists")
		}
		return response.InternalServerError(c, "Failed to create user")
	}

	h.touchLastLogin(&user)

	token, _, err := h.jwtManager.GenerateToken(user.ID, user.Email, user.Role, user.TokenVersion)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate token")
	}

	return response.Created(c, SignupResponse{
		User:  sanitizeUser(&user),
		Token: token,
	})
}

// deriveUsername builds "<base>_<random6>" where base comes from the display
// name (lowercased, alphanumeric only, capped) or the email local part.
// Retries on collision a bounded number of times.
func (h *AuthHandler) deriveUsername(email, displayName string) (string, error) {
	base := usernameBase(email, displayName)

	for attempt := 0; attempt < usernameMaxRetries; attempt++ {
		suffix, err := randomSuffix(usernameSuffixLen)
		if err != nil {
			return "", err
		}
		candidate := base + "_" + suffix

		var existing model.User
		err = h.db.Where("username = ?", candidate).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}

	return "", errors.New("username generation exhausted retries")
}

func usernameBase(email, displayName string) string {
	if displayName != "" {
		var b strings.Builder
		for _, r := range strings.ToLower(displayName) {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
			if b.Len() >= usernameBaseMaxLen {
				break
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}

	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}
	return strings.ToLower(local)
}

func randomSuffix(length int) (string, error) {
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(usernameSuffixChars))))
		if err != nil {
			return "", err
		}
		out[i] = usernameSuffixChars[n.Int64()]
	}
	return string(out), nil
}
