package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered trainee in the system
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	Username     string         `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName  string         `json:"display_name,omitempty"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	Role         string         `gorm:"type:varchar(20);default:'user'" json:"role"`
	XPTotal      int            `gorm:"default:0" json:"xp_total"` // Cumulative leaderboard score, atomic increments only
	TokenVersion int            `gorm:"default:0" json:"-"`        // Increment to invalidate all user tokens
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`

	// Relationships
	ModuleProgress    []ModuleProgress    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	ChallengeProgress []ChallengeProgress `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	ChallengeAttempts []ChallengeAttempt  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TokenBlacklist    []JWTTokenBlacklist `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Name returns the best available display name for leaderboards and profiles:
// display name, then username, then the local part of the email.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Username != "" {
		return u.Username
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}
