package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redteam-academy/api/model"
	"gorm.io/gorm"
)

// Section weights for module progress. Must sum to 100.
var sectionWeights = map[string]int{
	model.SectionOverview:       10,
	model.SectionQuickExplainer: 20,
	model.SectionMitigation:     30,
	model.SectionInteractiveLab: 30,
	model.SectionQuiz:           10,
}

// modulePoints is the fixed per-module score table used for the aggregate
// learning score.
var modulePoints = map[int]int{
	1: 95, 2: 88, 3: 85, 4: 92, 5: 93,
	6: 87, 7: 90, 8: 91, 9: 89, 10: 94,
}

// TotalModules is the size of the learning track
const TotalModules = 10

var (
	// ErrUnknownModule means the module ID is outside the learning track
	ErrUnknownModule = errors.New("unknown learning module")
	// ErrUnknownSection means the section name is not part of a module
	ErrUnknownSection = errors.New("unknown module section")
	// ErrInvalidQuizScore means a quiz score outside 0-100 was submitted
	ErrInvalidQuizScore = errors.New("quiz score must be between 0 and 100")
)

// UserProgressView is the aggregate progress snapshot returned to clients
type UserProgressView struct {
	CompletedModules []int                         `json:"completed_modules"`
	TotalScore       int                           `json:"total_score"`
	ModuleProgress   map[int]*model.ModuleProgress `json:"module_progress"`
}

// ProgressService is the server-side progress and scoring state machine.
// Client-local progress is treated as a cache of these records.
type ProgressService struct {
	db *gorm.DB
}

// NewProgressService creates a new progress service
func NewProgressService(db *gorm.DB) *ProgressService {
	return &ProgressService{db: db}
}

// ModuleProgressPercent computes the weighted section percentage
func ModuleProgressPercent(p *model.ModuleProgress) int {
	progress := 0
	for section, weight := range sectionWeights {
		if p.SectionDone(section) {
			progress += weight
		}
	}
	return progress
}

// ModulePoints returns the fixed score a completed module contributes
func ModulePoints(moduleID int) int {
	return modulePoints[moduleID]
}

// AggregateScore sums the point table over a completed-module set
func AggregateScore(completedModules []int) int {
	total := 0
	for _, id := range completedModules {
		total += modulePoints[id]
	}
	return total
}

// ChallengeScore computes the score for one solved challenge level.
// Base 1000, up to 300 time bonus, 100 penalty per hint, 50 per failed
// attempt, clamped to [100, 1300].
func ChallengeScore(timeSpent, timeLimit, hintsUsed, attempts int) int {
	baseScore := 1000.0

	timeBonus := 0.0
	if timeLimit > 0 {
		timeRatio := float64(timeSpent) / float64(timeLimit)
		timeBonus = math.Max(0, 300*(1-timeRatio))
	}

	hintPenalty := float64(hintsUsed * 100)
	attemptPenalty := float64((attempts - 1) * 50)

	score := math.Round(baseScore + timeBonus - hintPenalty - attemptPenalty)
	if score < 100 {
		return 100
	}
	if score > 1300 {
		return 1300
	}
	return int(score)
}

// UpdateSection marks a section complete and recomputes the weighted
// percentage. Idempotent: re-marking a done section changes nothing.
// Never sets Completed by itself; only a passing quiz does that.
func (s *ProgressService) UpdateSection(userID uint, moduleID int, section string) (*model.ModuleProgress, error) {
	if _, ok := modulePoints[moduleID]; !ok {
		return nil, ErrUnknownModule
	}
	if _, ok := sectionWeights[section]; !ok {
		return nil, ErrUnknownSection
	}

	progress, err := s.loadOrInit(userID, moduleID)
	if err != nil {
		return nil, err
	}

	if err := progress.MarkSection(section); err != nil {
		return nil, ErrUnknownSection
	}

	if !progress.Completed {
		progress.Progress = ModuleProgressPercent(progress)
	}
	now := time.Now()
	progress.LastAccessedAt = &now

	if err := s.db.Save(progress).Error; err != nil {
		return nil, fmt.Errorf("failed to save module progress: %w", err)
	}

	return progress, nil
}

// CompleteQuiz records a quiz submission. A score at or above the passing
// threshold completes the quiz section and the whole module; completion
// never reverts on a later lower score.
func (s *ProgressService) CompleteQuiz(userID uint, moduleID, score int) (*model.ModuleProgress, error) {
	if _, ok := modulePoints[moduleID]; !ok {
		return nil, ErrUnknownModule
	}
	if score < 0 || score > 100 {
		return nil, ErrInvalidQuizScore
	}

	progress, err := s.loadOrInit(userID, moduleID)
	if err != nil {
		return nil, err
	}

	progress.QuizScore = &score
	passed := score >= model.PassingQuizScore

	if passed {
		progress.Quiz = true
		progress.Completed = true
		progress.Progress = 100
	} else if !progress.Completed {
		progress.Progress = ModuleProgressPercent(progress)
	}
	now := time.Now()
	progress.LastAccessedAt = &now

	if err := s.db.Save(progress).Error; err != nil {
		return nil, fmt.Errorf("failed to save quiz result: %w", err)
	}

	return progress, nil
}

// GetProgress builds the aggregate view across all modules. The completed
// set is derived from the completed flag so a module is counted exactly once.
func (s *ProgressService) GetProgress(userID uint) (*UserProgressView, error) {
	var records []model.ModuleProgress
	if err := s.db.Where("user_id = ?", userID).Order("module_id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	view := &UserProgressView{
		CompletedModules: []int{},
		ModuleProgress:   make(map[int]*model.ModuleProgress, len(records)),
	}

	for i := range records {
		rec := &records[i]
		view.ModuleProgress[rec.ModuleID] = rec
		if rec.Completed {
			view.CompletedModules = append(view.CompletedModules, rec.ModuleID)
		}
	}
	view.TotalScore = AggregateScore(view.CompletedModules)

	return view, nil
}

// ResetProgress clears all module progress for a user
func (s *ProgressService) ResetProgress(userID uint) error {
	if err := s.db.Unscoped().Where("user_id = ?", userID).Delete(&model.ModuleProgress{}).Error; err != nil {
		return fmt.Errorf("failed to reset progress: %w", err)
	}
	return nil
}

func (s *ProgressService) loadOrInit(userID uint, moduleID int) (*model.ModuleProgress, error) {
	var progress model.ModuleProgress
	err := s.db.Where("user_id = ? AND module_id = ?", userID, moduleID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		progress = model.ModuleProgress{
			UserID:   userID,
			ModuleID: moduleID,
		}
		return &progress, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load module progress: %w", err)
	}
	return &progress, nil
}
