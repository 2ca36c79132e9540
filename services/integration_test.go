package services

import (
	"os"
	"strings"
	"testing"

	"github.com/redteam-academy/api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run.")
	}

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=redteam_academy_test port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.ModuleProgress{},
		&model.ChallengeProgress{},
		&model.ChallengeAttempt{},
	))

	db.Exec("DELETE FROM challenge_attempts")
	db.Exec("DELETE FROM challenge_progress")
	db.Exec("DELETE FROM module_progress")
	db.Exec("DELETE FROM users")

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()

	user := &model.User{Email: email, Username: email, Role: model.RoleUser}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestChallengeFlow(t *testing.T) {
	db := setupIntegrationDB(t)
	catalog, err := LoadCatalog()
	require.NoError(t, err)

	svc := NewChallengeService(db, catalog)
	user := createTestUser(t, db, "solver@example.com")

	const vulnID = 1

	level1, ok := catalog.LevelByNumber(1)
	require.True(t, ok)

	// Level 2 stays locked until level 1 is solved
	_, err = svc.SubmitFlag(user.ID, vulnID, 2, "FLAG{guess}", 10)
	assert.ErrorIs(t, err, ErrLevelLocked)

	// Burn the whole attempt budget with wrong guesses
	for i := 1; i <= level1.MaxAttempts; i++ {
		result, err := svc.SubmitFlag(user.ID, vulnID, 1, "FLAG{wrong}", 10)
		require.NoError(t, err)
		assert.False(t, result.Correct)
		assert.Equal(t, level1.MaxAttempts-i, result.AttemptsRemaining)

		if i == level1.MaxAttempts {
			assert.True(t, result.SolutionRevealed)
		} else {
			assert.False(t, result.SolutionRevealed)
		}
	}

	// Blocked until reset, even with the right flag
	_, err = svc.SubmitFlag(user.ID, vulnID, 1, level1.Flag, 10)
	assert.ErrorIs(t, err, ErrOutOfAttempts)

	require.NoError(t, svc.ResetAttempt(user.ID, vulnID, 1))

	// Case matters
	result, err := svc.SubmitFlag(user.ID, vulnID, 1, strings.ToLower(level1.Flag), 30)
	require.NoError(t, err)
	assert.False(t, result.Correct)

	// Exact match solves and advances the track
	result, err = svc.SubmitFlag(user.ID, vulnID, 1, level1.Flag, 30)
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.Greater(t, result.Score, 0)
	assert.Equal(t, 2, result.NextLevel)
	solveScore := result.Score

	// Resubmitting a solved level is rejected, and so is resetting it
	_, err = svc.SubmitFlag(user.ID, vulnID, 1, level1.Flag, 30)
	assert.ErrorIs(t, err, ErrAlreadySolved)
	assert.ErrorIs(t, svc.ResetAttempt(user.ID, vulnID, 1), ErrAlreadySolved)

	// Level 2 unlocked now
	result, err = svc.SubmitFlag(user.ID, vulnID, 2, "FLAG{wrong}", 10)
	require.NoError(t, err)
	assert.False(t, result.Correct)

	progress, err := svc.GetProgress(user.ID, vulnID)
	require.NoError(t, err)
	assert.True(t, progress.CompletedLevels.Contains(1))
	assert.Equal(t, 2, progress.CurrentLevel)
	assert.Equal(t, solveScore, progress.TotalScore)
}

func TestChallengeHints_CountAgainstScore(t *testing.T) {
	db := setupIntegrationDB(t)
	catalog, err := LoadCatalog()
	require.NoError(t, err)

	svc := NewChallengeService(db, catalog)
	user := createTestUser(t, db, "hinted@example.com")

	level1, _ := catalog.LevelByNumber(1)

	hint, err := svc.RevealHint(user.ID, 1, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, hint.Hint)
	assert.Equal(t, 1, hint.HintsUsed)
	assert.Equal(t, len(level1.Hints), hint.HintsTotal)

	// Exhaust the hints
	for i := hint.HintsUsed; i < len(level1.Hints); i++ {
		_, err = svc.RevealHint(user.ID, 1, 1)
		require.NoError(t, err)
	}
	_, err = svc.RevealHint(user.ID, 1, 1)
	assert.ErrorIs(t, err, ErrNoMoreHints)

	// Solve with every hint used: score drops by 100 per hint from the no-hint case
	noHints := ChallengeScore(0, level1.TimeLimit, 0, 1)
	result, err := svc.SubmitFlag(user.ID, 1, 1, level1.Flag, 0)
	require.NoError(t, err)
	assert.Equal(t, noHints-100*len(level1.Hints), result.Score)
}

func TestProgressStateMachine(t *testing.T) {
	db := setupIntegrationDB(t)
	svc := NewProgressService(db)
	user := createTestUser(t, db, "learner@example.com")

	// Sections accumulate weighted progress, idempotently
	for i := 0; i < 2; i++ {
		mp, err := svc.UpdateSection(user.ID, 1, model.SectionOverview)
		require.NoError(t, err)
		assert.Equal(t, 10, mp.Progress)
	}

	mp, err := svc.UpdateSection(user.ID, 1, model.SectionQuickExplainer)
	require.NoError(t, err)
	assert.Equal(t, 30, mp.Progress)

	_, err = svc.UpdateSection(user.ID, 1, "bogus-section")
	assert.ErrorIs(t, err, ErrUnknownSection)
	_, err = svc.UpdateSection(user.ID, 99, model.SectionOverview)
	assert.ErrorIs(t, err, ErrUnknownModule)

	// A failed quiz records the score but does not complete the module
	mp, err = svc.CompleteQuiz(user.ID, 1, 79)
	require.NoError(t, err)
	assert.False(t, mp.Completed)
	require.NotNil(t, mp.QuizScore)
	assert.Equal(t, 79, *mp.QuizScore)

	// Passing flips completion and pins progress to 100
	mp, err = svc.CompleteQuiz(user.ID, 1, 80)
	require.NoError(t, err)
	assert.True(t, mp.Completed)
	assert.Equal(t, 100, mp.Progress)

	// Completion is sticky: a later worse score cannot revert it
	mp, err = svc.CompleteQuiz(user.ID, 1, 10)
	require.NoError(t, err)
	assert.True(t, mp.Completed)
	assert.Equal(t, 100, mp.Progress)

	// Aggregate view counts module 1 exactly once
	view, err := svc.GetProgress(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, view.CompletedModules)
	assert.Equal(t, ModulePoints(1), view.TotalScore)

	// Reset wipes everything
	require.NoError(t, svc.ResetProgress(user.ID))
	view, err = svc.GetProgress(user.ID)
	require.NoError(t, err)
	assert.Empty(t, view.CompletedModules)
	assert.Equal(t, 0, view.TotalScore)
}
