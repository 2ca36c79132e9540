package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Section names for learning modules. Weights must sum to 100.
const (
	SectionOverview       = "overview"
	SectionQuickExplainer = "quickExplainer"
	SectionMitigation     = "mitigation"
	SectionInteractiveLab = "interactiveLab"
	SectionQuiz           = "quiz"
)

// PassingQuizScore is the quiz threshold that completes a module
const PassingQuizScore = 80

// IntList is a custom type for storing an ordered list of ints as JSONB
type IntList []int

// Scan implements the sql.Scanner interface for reading from database
func (l *IntList) Scan(value interface{}) error {
	if value == nil {
		*l = IntList{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal IntList value")
	}

	if len(bytes) == 0 {
		*l = IntList{}
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// Value implements the driver.Valuer interface for writing to database
func (l IntList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return []byte("[]"), nil // Return empty JSON array instead of nil
	}
	return json.Marshal(l)
}

// Contains reports whether n is in the list
func (l IntList) Contains(n int) bool {
	for _, v := range l {
		if v == n {
			return true
		}
	}
	return false
}

// ModuleProgress mirrors a user's per-module learning progress server-side.
// The client-local store is treated as a cache of this record.
type ModuleProgress struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UserID    uint           `gorm:"not null;uniqueIndex:idx_user_module" json:"user_id"`
	ModuleID  int            `gorm:"not null;uniqueIndex:idx_user_module" json:"module_id"`

	// Section completion flags
	Overview       bool `gorm:"default:false" json:"overview"`
	QuickExplainer bool `gorm:"default:false" json:"quick_explainer"`
	Mitigation     bool `gorm:"default:false" json:"mitigation"`
	InteractiveLab bool `gorm:"default:false" json:"interactive_lab"`
	Quiz           bool `gorm:"default:false" json:"quiz"`

	QuizScore      *int       `json:"quiz_score"`                    // 0-100, nil until first submission
	Progress       int        `gorm:"default:0" json:"progress"`     // 0-100, weighted sum of sections
	Completed      bool       `gorm:"default:false" json:"completed"` // Set by a passing quiz, cleared only by reset
	LastAccessedAt *time.Time `json:"last_accessed_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for ModuleProgress
func (ModuleProgress) TableName() string {
	return "module_progress"
}

// SectionDone reports whether the named section is complete
func (p *ModuleProgress) SectionDone(section string) bool {
	switch section {
	case SectionOverview:
		return p.Overview
	case SectionQuickExplainer:
		return p.QuickExplainer
	case SectionMitigation:
		return p.Mitigation
	case SectionInteractiveLab:
		return p.InteractiveLab
	case SectionQuiz:
		return p.Quiz
	}
	return false
}

// MarkSection sets the named section complete. Unknown sections are rejected.
func (p *ModuleProgress) MarkSection(section string) error {
	switch section {
	case SectionOverview:
		p.Overview = true
	case SectionQuickExplainer:
		p.QuickExplainer = true
	case SectionMitigation:
		p.Mitigation = true
	case SectionInteractiveLab:
		p.InteractiveLab = true
	case SectionQuiz:
		p.Quiz = true
	default:
		return errors.New("unknown section: " + section)
	}
	return nil
}

// ChallengeProgress tracks a user's advancement within one vulnerability track
// of the flag-capture game.
type ChallengeProgress struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	UserID          uint           `gorm:"not null;uniqueIndex:idx_user_vuln" json:"user_id"`
	VulnerabilityID int            `gorm:"not null;uniqueIndex:idx_user_vuln" json:"vulnerability_id"`
	CompletedLevels IntList        `gorm:"type:jsonb" json:"completed_levels"`
	CurrentLevel    int            `gorm:"default:1" json:"current_level"` // Only advances on successful flag submission
	TotalScore      int            `gorm:"default:0" json:"total_score"`
	BestTime        int            `gorm:"default:0" json:"best_time"` // Seconds; 0 means no completion yet
	HintsUsed       int            `gorm:"default:0" json:"hints_used"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for ChallengeProgress
func (ChallengeProgress) TableName() string {
	return "challenge_progress"
}

// ChallengeAttempt is the server-authoritative attempt counter for one
// (user, vulnerability, level). Flag comparison and lockout are enforced
// against this record; the secret never ships to the client.
type ChallengeAttempt struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
	UserID           uint           `gorm:"not null;uniqueIndex:idx_user_vuln_level" json:"user_id"`
	VulnerabilityID  int            `gorm:"not null;uniqueIndex:idx_user_vuln_level" json:"vulnerability_id"`
	Level            int            `gorm:"not null;uniqueIndex:idx_user_vuln_level" json:"level"`
	Attempts         int            `gorm:"default:0" json:"attempts"`
	HintsUsed        int            `gorm:"default:0" json:"hints_used"`
	Solved           bool           `gorm:"default:false" json:"solved"`
	SolutionRevealed bool           `gorm:"default:false" json:"solution_revealed"`
	StartedAt        *time.Time     `json:"started_at"`
	SolvedAt         *time.Time     `json:"solved_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for ChallengeAttempt
func (ChallengeAttempt) TableName() string {
	return "challenge_attempts"
}
