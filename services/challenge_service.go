package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redteam-academy/api/model"
	"gorm.io/gorm"
)

var (
	// ErrLevelLocked means the previous level has not been completed yet
	ErrLevelLocked = errors.New("level is locked")
	// ErrAlreadySolved means the level was already solved by this user
	ErrAlreadySolved = errors.New("level already solved")
	// ErrOutOfAttempts means the attempt budget is spent and the state is
	// solution-revealed until an explicit reset
	ErrOutOfAttempts = errors.New("out of attempts, solution revealed")
	// ErrNoMoreHints means every hint for the level has been revealed
	ErrNoMoreHints = errors.New("no more hints available")
)

// SubmitResult is the outcome of a flag submission
type SubmitResult struct {
	Correct           bool `json:"correct"`
	Score             int  `json:"score,omitempty"`
	AttemptsRemaining int  `json:"attempts_remaining"`
	SolutionRevealed  bool `json:"solution_revealed"`
	NextLevel         int  `json:"next_level,omitempty"`
}

// HintResult is one revealed hint plus the running hint counter
type HintResult struct {
	Hint       string `json:"hint"`
	HintsUsed  int    `json:"hints_used"`
	HintsTotal int    `json:"hints_total"`
}

// ChallengeService enforces flag checking, attempt budgets and level
// ordering server-side. Flags live only in the embedded catalog; the client
// submits guesses and gets verdicts.
type ChallengeService struct {
	db      *gorm.DB
	catalog *Catalog
}

// NewChallengeService creates a new challenge service
func NewChallengeService(db *gorm.DB, catalog *Catalog) *ChallengeService {
	return &ChallengeService{db: db, catalog: catalog}
}

// SubmitFlag checks a flag guess for (user, vulnerability, level).
// Comparison is exact and case-sensitive. Wrong guesses spend attempts;
// exhausting the budget reveals the solution and blocks further submissions
// until reset.
func (s *ChallengeService) SubmitFlag(userID uint, vulnID, level int, flag string, timeSpent int) (*SubmitResult, error) {
	catalogLevel, ok := s.catalog.LevelByNumber(level)
	if !ok {
		return nil, ErrLevelNotFound
	}

	if err := s.checkUnlocked(userID, vulnID, level); err != nil {
		return nil, err
	}

	attempt, err := s.loadOrInitAttempt(userID, vulnID, level)
	if err != nil {
		return nil, err
	}

	if attempt.Solved {
		return nil, ErrAlreadySolved
	}
	if attempt.SolutionRevealed {
		return nil, ErrOutOfAttempts
	}

	attempt.Attempts++

	correct := subtle.ConstantTimeCompare([]byte(flag), []byte(catalogLevel.Flag)) == 1
	if !correct {
		if attempt.Attempts >= catalogLevel.MaxAttempts {
			attempt.SolutionRevealed = true
		}
		if err := s.db.Save(attempt).Error; err != nil {
			return nil, fmt.Errorf("failed to record attempt: %w", err)
		}
		return &SubmitResult{
			Correct:           false,
			AttemptsRemaining: maxInt(0, catalogLevel.MaxAttempts-attempt.Attempts),
			SolutionRevealed:  attempt.SolutionRevealed,
		}, nil
	}

	now := time.Now()
	attempt.Solved = true
	attempt.SolvedAt = &now
	if err := s.db.Save(attempt).Error; err != nil {
		return nil, fmt.Errorf("failed to record solve: %w", err)
	}

	score := ChallengeScore(timeSpent, catalogLevel.TimeLimit, attempt.HintsUsed, attempt.Attempts)

	progress, err := s.applySolve(userID, vulnID, level, score, timeSpent, attempt.HintsUsed)
	if err != nil {
		return nil, err
	}

	return &SubmitResult{
		Correct:           true,
		Score:             score,
		AttemptsRemaining: maxInt(0, catalogLevel.MaxAttempts-attempt.Attempts),
		NextLevel:         progress.CurrentLevel,
	}, nil
}

// RevealHint returns the next unrevealed hint for a level and counts it
// against the eventual score.
func (s *ChallengeService) RevealHint(userID uint, vulnID, level int) (*HintResult, error) {
	catalogLevel, ok := s.catalog.LevelByNumber(level)
	if !ok {
		return nil, ErrLevelNotFound
	}

	if err := s.checkUnlocked(userID, vulnID, level); err != nil {
		return nil, err
	}

	attempt, err := s.loadOrInitAttempt(userID, vulnID, level)
	if err != nil {
		return nil, err
	}

	if attempt.HintsUsed >= len(catalogLevel.Hints) {
		return nil, ErrNoMoreHints
	}

	hint := catalogLevel.Hints[attempt.HintsUsed]
	attempt.HintsUsed++

	if err := s.db.Save(attempt).Error; err != nil {
		return nil, fmt.Errorf("failed to record hint: %w", err)
	}

	return &HintResult{
		Hint:       hint,
		HintsUsed:  attempt.HintsUsed,
		HintsTotal: len(catalogLevel.Hints),
	}, nil
}

// ResetAttempt clears the attempt state for a level so a locked-out user
// can try again. Solved levels stay solved.
func (s *ChallengeService) ResetAttempt(userID uint, vulnID, level int) error {
	if _, ok := s.catalog.LevelByNumber(level); !ok {
		return ErrLevelNotFound
	}

	var attempt model.ChallengeAttempt
	err := s.db.Where("user_id = ? AND vulnerability_id = ? AND level = ?", userID, vulnID, level).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load attempt: %w", err)
	}

	if attempt.Solved {
		return ErrAlreadySolved
	}

	attempt.Attempts = 0
	attempt.HintsUsed = 0
	attempt.SolutionRevealed = false

	if err := s.db.Save(&attempt).Error; err != nil {
		return fmt.Errorf("failed to reset attempt: %w", err)
	}
	return nil
}

// GetProgress returns the per-track progress record for a vulnerability
func (s *ChallengeService) GetProgress(userID uint, vulnID int) (*model.ChallengeProgress, error) {
	progress, err := s.loadOrInitProgress(userID, vulnID)
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// checkUnlocked enforces level ordering: level n is playable only after
// levels 1..n-1 are completed.
func (s *ChallengeService) checkUnlocked(userID uint, vulnID, level int) error {
	if level <= 1 {
		return nil
	}

	progress, err := s.loadOrInitProgress(userID, vulnID)
	if err != nil {
		return err
	}

	for prev := 1; prev < level; prev++ {
		if !progress.CompletedLevels.Contains(prev) {
			return ErrLevelLocked
		}
	}
	return nil
}

// applySolve folds a successful solve into the per-track progress record
func (s *ChallengeService) applySolve(userID uint, vulnID, level, score, timeSpent, hintsUsed int) (*model.ChallengeProgress, error) {
	progress, err := s.loadOrInitProgress(userID, vulnID)
	if err != nil {
		return nil, err
	}

	if !progress.CompletedLevels.Contains(level) {
		progress.CompletedLevels = append(progress.CompletedLevels, level)
		progress.TotalScore += score
	}
	if level >= progress.CurrentLevel && level < s.catalog.LevelCount() {
		progress.CurrentLevel = level + 1
	}
	if timeSpent > 0 && (progress.BestTime == 0 || timeSpent < progress.BestTime) {
		progress.BestTime = timeSpent
	}
	progress.HintsUsed += hintsUsed

	if err := s.db.Save(progress).Error; err != nil {
		return nil, fmt.Errorf("failed to save challenge progress: %w", err)
	}
	return progress, nil
}

func (s *ChallengeService) loadOrInitAttempt(userID uint, vulnID, level int) (*model.ChallengeAttempt, error) {
	var attempt model.ChallengeAttempt
	err := s.db.Where("user_id = ? AND vulnerability_id = ? AND level = ?", userID, vulnID, level).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		now := time.Now()
		attempt = model.ChallengeAttempt{
			UserID:          userID,
			VulnerabilityID: vulnID,
			Level:           level,
			StartedAt:       &now,
		}
		return &attempt, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}
	return &attempt, nil
}

func (s *ChallengeService) loadOrInitProgress(userID uint, vulnID int) (*model.ChallengeProgress, error) {
	var progress model.ChallengeProgress
	err := s.db.Where("user_id = ? AND vulnerability_id = ?", userID, vulnID).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		progress = model.ChallengeProgress{
			UserID:          userID,
			VulnerabilityID: vulnID,
			CompletedLevels: model.IntList{},
			CurrentLevel:    1,
		}
		return &progress, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge progress: %w", err)
	}
	return &progress, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
