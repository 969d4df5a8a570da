package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

const testUserID = shared.UserID("3f2c8a1e-5f1d-4b9a-8c3e-2a7d9e4b6c01")

var day1 = time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)

func TestUpdateProgress_AwardsXP(t *testing.T) {
	l := NewLedger(testUserID)

	res, err := l.UpdateProgress(CategoryLogic, 1, shared.Score(80), 120, day1)
	assert.NoError(t, err)

	// score * level * 10, no fast-session bonus at 120s.
	assert.Equal(t, 800, res.XPGained)
	assert.Equal(t, 800, res.NewTotalXP)
	assert.False(t, res.LeveledUp)
	assert.Equal(t, 1, res.NewLevel)

	stats := l.Stats()
	assert.Equal(t, 1, stats.PuzzlesSolved)
	assert.Equal(t, 80, stats.AverageScore)
	assert.Equal(t, 120, stats.TimeSpent)
}

func TestUpdateProgress_FastSessionBonus(t *testing.T) {
	l := NewLedger(testUserID)

	res, err := l.UpdateProgress(CategoryLogic, 1, shared.Score(80), 45, day1)
	assert.NoError(t, err)

	// Sessions under a minute earn 1.5x.
	assert.Equal(t, 1200, res.XPGained)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 1, res.OldLevel)
	assert.Equal(t, 2, res.NewLevel)
}

func TestUpdateProgress_UnknownCategory(t *testing.T) {
	l := NewLedger(testUserID)

	_, err := l.UpdateProgress(shared.CategoryID("chess"), 1, shared.Score(50), 60, day1)
	assert.ErrorIs(t, err, shared.ErrUnknownCategory)
}

func TestUpdateProgress_StreakLifecycle(t *testing.T) {
	l := NewLedger(testUserID)

	res, err := l.UpdateProgress(CategoryLogic, 1, shared.Score(50), 90, day1)
	assert.NoError(t, err)
	assert.Equal(t, 1, res.NewStreak)
	assert.True(t, res.StreakChanged)

	// Second session the same day leaves the streak alone.
	res, err = l.UpdateProgress(CategoryLogic, 1, shared.Score(50), 90, day1.Add(3*time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, 1, res.NewStreak)
	assert.False(t, res.StreakChanged)

	// Next calendar day extends it.
	res, err = l.UpdateProgress(CategoryLogic, 1, shared.Score(50), 90, day1.AddDate(0, 0, 1))
	assert.NoError(t, err)
	assert.Equal(t, 2, res.NewStreak)

	// A missed day resets to 1, not 0.
	res, err = l.UpdateProgress(CategoryLogic, 1, shared.Score(50), 90, day1.AddDate(0, 0, 4))
	assert.NoError(t, err)
	assert.Equal(t, 1, res.NewStreak)
	assert.True(t, res.StreakChanged)
}

func TestUpdateProgress_AverageScoreFloored(t *testing.T) {
	l := NewLedger(testUserID)

	_, err := l.UpdateProgress(CategoryLogic, 1, shared.Score(80), 90, day1)
	assert.NoError(t, err)
	_, err = l.UpdateProgress(CategoryLogic, 1, shared.Score(85), 90, day1)
	assert.NoError(t, err)

	assert.Equal(t, 82, l.Stats().AverageScore)
}

func TestUpdateProgress_WeeklyProgressNeverResets(t *testing.T) {
	l := NewLedger(testUserID)

	for i := 0; i < 3; i++ {
		_, err := l.UpdateProgress(CategoryLogic, 1, shared.Score(50), 90, day1.AddDate(0, 0, i*10))
		assert.NoError(t, err)
	}
	assert.Equal(t, 3, l.Stats().WeeklyProgress)
}

func TestUpdateProgress_FirstSessionAchievement(t *testing.T) {
	l := NewLedger(testUserID)

	_, err := l.UpdateProgress(CategoryLogic, 1, shared.Score(50), 90, day1)
	assert.NoError(t, err)
	assert.Equal(t, 1, l.Stats().Achievements)
}

func TestCategoryLevelUp_RequiresPassingScoreAndFullBar(t *testing.T) {
	snap := Snapshot{
		Categories: map[shared.CategoryID]*CategoryProgress{
			CategoryLogic: {Level: 1, PuzzlesCompleted: 99, Progress: 99},
		},
	}
	l := NewLedgerFromSnapshot(testUserID, snap)

	// Bar fills but the score is below passing: no level up.
	res, err := l.UpdateProgress(CategoryLogic, 1, shared.Score(85), 60, day1)
	assert.NoError(t, err)
	assert.False(t, res.CategoryLeveledUp)
	assert.Equal(t, 1, res.CategoryLevel)

	// Passing score with a full bar levels the category.
	res, err = l.UpdateProgress(CategoryLogic, 1, shared.Score(95), 60, day1)
	assert.NoError(t, err)
	assert.True(t, res.CategoryLeveledUp)
	assert.Equal(t, 2, res.CategoryLevel)
}

func TestCategoryLevel_CappedAtMax(t *testing.T) {
	snap := Snapshot{
		Categories: map[shared.CategoryID]*CategoryProgress{
			CategoryLogic: {Level: MaxCategoryLevel, PuzzlesCompleted: 500, Progress: 100},
		},
	}
	l := NewLedgerFromSnapshot(testUserID, snap)

	res, err := l.UpdateProgress(CategoryLogic, 3, shared.Score(100), 60, day1)
	assert.NoError(t, err)
	assert.False(t, res.CategoryLeveledUp)
	assert.Equal(t, MaxCategoryLevel, res.CategoryLevel)
}

func TestUnlockWave1(t *testing.T) {
	snap := Snapshot{
		Categories: map[shared.CategoryID]*CategoryProgress{
			CategoryRiddles: {Level: 2, PuzzlesCompleted: 100, Progress: 100},
			CategoryVisual:  {Level: 2, PuzzlesCompleted: 100, Progress: 100},
		},
	}
	l := NewLedgerFromSnapshot(testUserID, snap)

	res, err := l.UpdateProgress(CategoryRiddles, 2, shared.Score(70), 60, day1)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []shared.CategoryID{CategoryCalculation, CategorySpatial}, res.Unlocked)

	cp, ok := l.Category(CategoryCalculation)
	assert.True(t, ok)
	assert.False(t, cp.IsLocked)

	// Wave 2 stays locked at two advanced categories.
	cp, ok = l.Category(CategoryEmotional)
	assert.True(t, ok)
	assert.True(t, cp.IsLocked)
}

func TestUnlockWave2(t *testing.T) {
	snap := Snapshot{
		Categories: map[shared.CategoryID]*CategoryProgress{
			CategoryRiddles:   {Level: 2},
			CategoryVisual:    {Level: 2},
			CategoryLogic:     {Level: 2},
			CategorySequences: {Level: 2},
		},
	}
	l := NewLedgerFromSnapshot(testUserID, snap)

	res, err := l.UpdateProgress(CategoryLogic, 2, shared.Score(70), 60, day1)
	assert.NoError(t, err)
	assert.Len(t, res.Unlocked, 5)

	for _, id := range append(UnlockWave1(), UnlockWave2()...) {
		cp, ok := l.Category(id)
		assert.True(t, ok)
		assert.False(t, cp.IsLocked)
	}
}

func TestUnlock_NotRepeated(t *testing.T) {
	snap := Snapshot{
		Categories: map[shared.CategoryID]*CategoryProgress{
			CategoryRiddles: {Level: 2},
			CategoryVisual:  {Level: 2},
		},
	}
	l := NewLedgerFromSnapshot(testUserID, snap)

	res, err := l.UpdateProgress(CategoryRiddles, 2, shared.Score(70), 60, day1)
	assert.NoError(t, err)
	assert.Len(t, res.Unlocked, 2)

	// Already-unlocked categories are not reported a second time.
	res, err = l.UpdateProgress(CategoryRiddles, 2, shared.Score(70), 60, day1)
	assert.NoError(t, err)
	assert.Empty(t, res.Unlocked)
}

func TestResetProgress(t *testing.T) {
	l := NewLedger(testUserID)

	_, err := l.UpdateProgress(CategoryLogic, 1, shared.Score(90), 45, day1)
	assert.NoError(t, err)

	l.ResetProgress()

	stats := l.Stats()
	assert.Equal(t, shared.XP(0), stats.TotalXP)
	assert.Equal(t, shared.Level(1), stats.Level)
	assert.Equal(t, 0, stats.PuzzlesSolved)
	assert.Equal(t, 0, stats.Streak)

	// Locked categories are locked again after a reset.
	cp, ok := l.Category(CategoryCalculation)
	assert.True(t, ok)
	assert.True(t, cp.IsLocked)

	cp, ok = l.Category(CategoryLogic)
	assert.True(t, ok)
	assert.Equal(t, 0, cp.PuzzlesCompleted)
}

func TestSnapshot_IsACopy(t *testing.T) {
	l := NewLedger(testUserID)

	snap := l.Snapshot()
	snap.Stats.TotalXP = 9999
	snap.Categories[CategoryLogic].Level = 3

	assert.Equal(t, shared.XP(0), l.Stats().TotalXP)
	cp, _ := l.Category(CategoryLogic)
	assert.Equal(t, 1, cp.Level)
}

func TestNewLedgerFromSnapshot_IgnoresUnknownCategories(t *testing.T) {
	snap := Snapshot{
		Stats: &UserStats{TotalXP: 500, Level: 1, Streak: 3},
		Categories: map[shared.CategoryID]*CategoryProgress{
			shared.CategoryID("backgammon"): {Level: 3},
		},
	}
	l := NewLedgerFromSnapshot(testUserID, snap)

	assert.Equal(t, 3, l.Stats().Streak)
	_, ok := l.Category(shared.CategoryID("backgammon"))
	assert.False(t, ok)
}
