package services

import (
	"testing"

	"github.com/redteam-academy/api/model"
	"github.com/stretchr/testify/assert"
)

func TestModuleProgressPercent_Weights(t *testing.T) {
	p := &model.ModuleProgress{}
	assert.Equal(t, 0, ModuleProgressPercent(p))

	p.Overview = true
	assert.Equal(t, 10, ModuleProgressPercent(p))

	p.QuickExplainer = true
	assert.Equal(t, 30, ModuleProgressPercent(p))

	p.Mitigation = true
	assert.Equal(t, 60, ModuleProgressPercent(p))

	p.InteractiveLab = true
	assert.Equal(t, 90, ModuleProgressPercent(p))

	p.Quiz = true
	assert.Equal(t, 100, ModuleProgressPercent(p))
}

// A user who finished everything but failed the quiz sits at 90%, not 100%.
func TestModuleProgressPercent_FailedQuizCapsAt90(t *testing.T) {
	score := 60
	p := &model.ModuleProgress{
		Overview:       true,
		QuickExplainer: true,
		Mitigation:     true,
		InteractiveLab: true,
		Quiz:           false,
		QuizScore:      &score,
	}
	assert.Equal(t, 90, ModuleProgressPercent(p))
}

func TestAggregateScore_PointTable(t *testing.T) {
	assert.Equal(t, 0, AggregateScore(nil))
	assert.Equal(t, 95, AggregateScore([]int{1}))
	assert.Equal(t, 95+88, AggregateScore([]int{1, 2}))

	all := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, 95+88+85+92+93+87+90+91+89+94, AggregateScore(all))

	// Unknown modules contribute nothing
	assert.Equal(t, 95, AggregateScore([]int{1, 99}))
}

func TestChallengeScore_Baseline(t *testing.T) {
	// Instant solve, no hints, first attempt: full time bonus
	assert.Equal(t, 1300, ChallengeScore(0, 300, 0, 1))

	// Solved exactly at the limit: no time bonus
	assert.Equal(t, 1000, ChallengeScore(300, 300, 0, 1))

	// Half the time: half the bonus
	assert.Equal(t, 1150, ChallengeScore(150, 300, 0, 1))
}

func TestChallengeScore_Penalties(t *testing.T) {
	// Each hint costs 100
	assert.Equal(t, 900, ChallengeScore(300, 300, 1, 1))
	assert.Equal(t, 800, ChallengeScore(300, 300, 2, 1))

	// Each failed attempt costs 50
	assert.Equal(t, 950, ChallengeScore(300, 300, 0, 2))
	assert.Equal(t, 900, ChallengeScore(300, 300, 0, 3))
}

func TestChallengeScore_Clamps(t *testing.T) {
	// Floor at 100 no matter how many penalties pile up
	assert.Equal(t, 100, ChallengeScore(300, 300, 10, 10))

	// Overtime never pushes below the floor either
	assert.Equal(t, 100, ChallengeScore(10000, 300, 10, 10))

	// Ceiling at 1300
	assert.Equal(t, 1300, ChallengeScore(0, 300, 0, 1))
}

func TestChallengeScore_Monotonicity(t *testing.T) {
	// More time spent never increases the score
	prev := ChallengeScore(0, 300, 0, 1)
	for spent := 30; spent <= 600; spent += 30 {
		cur := ChallengeScore(spent, 300, 0, 1)
		assert.LessOrEqual(t, cur, prev, "score increased at timeSpent=%d", spent)
		prev = cur
	}

	// More hints never increase the score
	prev = ChallengeScore(150, 300, 0, 1)
	for hints := 1; hints <= 5; hints++ {
		cur := ChallengeScore(150, 300, hints, 1)
		assert.LessOrEqual(t, cur, prev, "score increased at hints=%d", hints)
		prev = cur
	}
}

func TestModulePoints(t *testing.T) {
	assert.Equal(t, 95, ModulePoints(1))
	assert.Equal(t, 94, ModulePoints(10))
	assert.Equal(t, 0, ModulePoints(11))
}
