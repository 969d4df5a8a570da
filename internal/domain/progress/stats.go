// Package progress содержит доменную модель прогресса пользователя CogniQuest.
package progress

import (
	"fmt"
	"math"

	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER STATS
// ══════════════════════════════════════════════════════════════════════════════

// UserStats - накопительная статистика пользователя.
// Инварианты: Level всегда выводим из TotalXP (TotalXP/1000 + 1);
// AverageScore - скользящее среднее по PuzzlesSolved, в пределах 0-100.
type UserStats struct {
	// TotalXP - суммарный опыт.
	TotalXP shared.XP

	// Level - глобальный уровень, производный от TotalXP.
	Level shared.Level

	// Streak - серия дней подряд с завершённой сессией.
	Streak int

	// PuzzlesSolved - количество учтённых сессий.
	PuzzlesSolved int

	// AverageScore - среднее арифметическое счёта (0-100, с округлением вниз).
	AverageScore int

	// TimeSpent - суммарное время игры, секунды.
	TimeSpent int

	// Achievements - количество полученных достижений.
	Achievements int

	// WeeklyProgress - счётчик сессий. Несмотря на имя, он никогда
	// не сбрасывается по недельной границе - поведение исходного
	// продукта сохранено намеренно.
	WeeklyProgress int

	// LastPlayDate - календарная дата последней сессии ("2006-01-02").
	LastPlayDate string
}

// NewUserStats создаёт статистику с нулевыми значениями по умолчанию.
func NewUserStats() *UserStats {
	return &UserStats{
		TotalXP: 0,
		Level:   1,
	}
}

// Множитель XP за быстрые сессии (меньше 60 секунд).
const fastSessionMultiplier = 1.5

// CalculateXPGain вычисляет прирост XP за сессию:
// floor(score * level * 10 * множитель времени).
func CalculateXPGain(score shared.Score, level int, timeSpentSec int) int {
	multiplier := 1.0
	if timeSpentSec < 60 {
		multiplier = fastSessionMultiplier
	}
	return int(math.Floor(float64(score.Int()) * float64(level) * 10 * multiplier))
}

// applySession учитывает одну завершённую сессию в статистике.
// Возвращает прирост XP. Серия: тот же день - без изменений,
// вчера - плюс один, иначе сброс в 1.
func (s *UserStats) applySession(score shared.Score, level int, timeSpentSec int, today, yesterday string) int {
	xpGained := CalculateXPGain(score, level, timeSpentSec)

	s.TotalXP = s.TotalXP.Add(xpGained)
	s.Level = s.TotalXP.Level()

	oldSolved := s.PuzzlesSolved
	s.PuzzlesSolved++
	s.AverageScore = int(math.Floor(
		(float64(s.AverageScore)*float64(oldSolved) + float64(score.Int())) / float64(s.PuzzlesSolved),
	))

	s.TimeSpent += timeSpentSec

	switch s.LastPlayDate {
	case today:
		// Серия уже учтена сегодня.
	case yesterday:
		s.Streak++
	default:
		s.Streak = 1
	}
	s.LastPlayDate = today

	s.WeeklyProgress++

	return xpGained
}

// Reset обнуляет статистику до значений по умолчанию.
func (s *UserStats) Reset() {
	*s = *NewUserStats()
}

// String возвращает строковое представление для логирования.
func (s *UserStats) String() string {
	return fmt.Sprintf(
		"UserStats{XP: %d, Level: %d, Streak: %d, Solved: %d, Avg: %d}",
		s.TotalXP, s.Level, s.Streak, s.PuzzlesSolved, s.AverageScore,
	)
}

// Clone создаёт копию статистики.
func (s *UserStats) Clone() *UserStats {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

// achievementThreshold описывает условие получения достижения.
type achievementThreshold struct {
	name  string
	check func(*UserStats) bool
}

// achievementThresholds - условия в порядке проверки.
var achievementThresholds = []achievementThreshold{
	{"first_session", func(s *UserStats) bool { return s.PuzzlesSolved >= 1 }},
	{"ten_sessions", func(s *UserStats) bool { return s.PuzzlesSolved >= 10 }},
	{"fifty_sessions", func(s *UserStats) bool { return s.PuzzlesSolved >= 50 }},
	{"streak_7", func(s *UserStats) bool { return s.Streak >= 7 }},
	{"streak_30", func(s *UserStats) bool { return s.Streak >= 30 }},
	{"level_5", func(s *UserStats) bool { return s.Level >= 5 }},
	{"level_10", func(s *UserStats) bool { return s.Level >= 10 }},
}

// recountAchievements пересчитывает счётчик достижений по текущим
// значениям статистики. Достижения монотонны относительно статистики,
// поэтому пересчёт после каждой сессии безопасен.
func (s *UserStats) recountAchievements() {
	count := 0
	for _, a := range achievementThresholds {
		if a.check(s) {
			count++
		}
	}
	if count > s.Achievements {
		s.Achievements = count
	}
}
