package services

import (
	"errors"
	"fmt"

	"github.com/redteam-academy/api/model"
	"gorm.io/gorm"
)

// ErrUserNotFound means the target user does not exist
var ErrUserNotFound = errors.New("user not found")

// LeaderboardEntry is one row of the public leaderboard
type LeaderboardEntry struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// LeaderboardService reads and updates the canonical XP totals on users
type LeaderboardService struct {
	db *gorm.DB
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{db: db}
}

// List returns every user ordered by score. Ties break on lowest user ID so
// the ordering is deterministic across requests.
func (s *LeaderboardService) List() ([]LeaderboardEntry, error) {
	var users []model.User
	if err := s.db.Order("xp_total DESC, id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, LeaderboardEntry{
			ID:    u.ID,
			Name:  u.Name(),
			Score: u.XPTotal,
		})
	}

	return entries, nil
}

// AddPoints atomically increments a user's XP total and returns the new
// value. The addition happens SQL-side so concurrent awards never lose
// updates.
func (s *LeaderboardService) AddPoints(userID uint, points int) (int, error) {
	result := s.db.Model(&model.User{}).
		Where("id = ?", userID).
		Update("xp_total", gorm.Expr("xp_total + ?", points))
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update score: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, ErrUserNotFound
	}

	var user model.User
	if err := s.db.Select("xp_total").First(&user, userID).Error; err != nil {
		return 0, fmt.Errorf("failed to read updated score: %w", err)
	}

	return user.XPTotal, nil
}
