// Package puzzle содержит доменную модель головоломок CogniQuest.
package puzzle

import (
	"math"

	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORING ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// CalculatePoints вычисляет очки за один ответ.
// Неверный ответ всегда даёт 0 независимо от времени.
// Верный: базовые очки (сложность*10) + бонус скорости (остаток времени*2,
// не меньше нуля) + бонус сложности (сложность*5), округление вниз.
// Чистая тотальная функция: не паникует ни на каких конечных входах.
func CalculatePoints(isCorrect bool, responseTimeMs int64, difficulty shared.Difficulty, timeRemainingSec float64) int {
	if !isCorrect {
		return 0
	}

	basePoints := float64(difficulty.Int()) * 10
	speedBonus := math.Max(0, timeRemainingSec*2)
	difficultyBonus := float64(difficulty.Int()) * 5

	return int(math.Floor(basePoints + speedBonus + difficultyBonus))
}

// SessionScore вычисляет итоговый счёт сессии (0-100) по доле верных ответов.
func SessionScore(correctAnswers, totalQuestions int) shared.Score {
	if totalQuestions <= 0 {
		return 0
	}
	return shared.Score(math.Floor(float64(correctAnswers) / float64(totalQuestions) * 100)).Clamp()
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION AGGREGATES
// ══════════════════════════════════════════════════════════════════════════════

// AttemptResult - итог одного ответа внутри сессии.
type AttemptResult struct {
	// PuzzleID - идентификатор головоломки.
	PuzzleID string

	// IsCorrect - был ли ответ верным.
	IsCorrect bool

	// ResponseTimeMs - время ответа в миллисекундах.
	ResponseTimeMs int64

	// Points - начисленные очки.
	Points int
}

// AverageResponseTime возвращает среднее время ответа в миллисекундах,
// округлённое до ближайшего целого. Пустой список даёт 0.
func AverageResponseTime(results []AttemptResult) int64 {
	if len(results) == 0 {
		return 0
	}
	var total int64
	for _, r := range results {
		total += r.ResponseTimeMs
	}
	return int64(math.Round(float64(total) / float64(len(results))))
}

// AccuracyRate возвращает долю верных ответов в процентах (0-100),
// округлённую до ближайшего целого. Пустой список даёт 0.
func AccuracyRate(results []AttemptResult) int {
	if len(results) == 0 {
		return 0
	}
	correct := 0
	for _, r := range results {
		if r.IsCorrect {
			correct++
		}
	}
	return int(math.Round(float64(correct) / float64(len(results)) * 100))
}
