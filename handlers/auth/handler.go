package auth

import (
	"time"

	"github.com/redteam-academy/api/model"
	authutil "github.com/redteam-academy/api/utils/auth"
	"github.com/redteam-academy/api/utils/middleware"
	"gorm.io/gorm"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	db                   *gorm.DB
	jwtManager           *authutil.JWTManager
	blacklistService     *authutil.BlacklistService
	bruteForceProtection *middleware.BruteForceProtection
	tokenExpiry          time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, jwtManager *authutil.JWTManager, bruteForceProtection *middleware.BruteForceProtection, tokenExpiry time.Duration) *AuthHandler {
	return &AuthHandler{
		db:                   db,
		jwtManager:           jwtManager,
		blacklistService:     authutil.NewBlacklistService(db),
		bruteForceProtection: bruteForceProtection,
		tokenExpiry:          tokenExpiry,
	}
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Role        string     `json:"role,omitempty"`
	XPTotal     int        `json:"xp_total"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// sanitizeUser builds the public view of a user record
func sanitizeUser(user *model.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Name:        user.Name(),
		Email:       user.Email,
		Username:    user.Username,
		Role:        user.Role,
		XPTotal:     user.XPTotal,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

// touchLastLogin updates the last-login timestamp without failing the request
func (h *AuthHandler) touchLastLogin(user *model.User) {
	now := time.Now()
	user.LastLoginAt = &now
	h.db.Model(user).Update("last_login_at", now)
}
