// Package progress содержит доменную модель прогресса пользователя CogniQuest:
// накопительную статистику, прогресс по категориям и правила разблокировки.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package progress

import (
	"math"

	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATEGORY CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Десять фиксированных категорий. Пять открыты с самого начала,
// пять заблокированы и открываются двумя волнами.
const (
	CategoryRiddles     shared.CategoryID = "riddles-enigmas"
	CategoryVisual      shared.CategoryID = "visual-puzzles"
	CategoryLogic       shared.CategoryID = "logical-reasoning"
	CategorySequences   shared.CategoryID = "sequences-patterns"
	CategoryMemory      shared.CategoryID = "memory-attention"
	CategoryCalculation shared.CategoryID = "mental-calculation"
	CategorySpatial     shared.CategoryID = "spatial-creativity"
	CategoryEmotional   shared.CategoryID = "emotional-intelligence"
	CategoryOrientation shared.CategoryID = "spatial-orientation"
	CategoryLanguage    shared.CategoryID = "language-fluency"
)

// AllCategories возвращает все десять категорий в каноническом порядке.
func AllCategories() []shared.CategoryID {
	return []shared.CategoryID{
		CategoryRiddles,
		CategoryVisual,
		CategoryLogic,
		CategorySequences,
		CategoryMemory,
		CategoryCalculation,
		CategorySpatial,
		CategoryEmotional,
		CategoryOrientation,
		CategoryLanguage,
	}
}

// UnlockWave1 - категории, открывающиеся при 2+ категориях уровня 2+.
func UnlockWave1() []shared.CategoryID {
	return []shared.CategoryID{CategoryCalculation, CategorySpatial}
}

// UnlockWave2 - категории, открывающиеся при 4+ категориях уровня 2+.
func UnlockWave2() []shared.CategoryID {
	return []shared.CategoryID{CategoryEmotional, CategoryOrientation, CategoryLanguage}
}

// startsLocked возвращает true для категорий, заблокированных по умолчанию.
func startsLocked(id shared.CategoryID) bool {
	switch id {
	case CategoryCalculation, CategorySpatial, CategoryEmotional, CategoryOrientation, CategoryLanguage:
		return true
	default:
		return false
	}
}

// IsKnownCategory проверяет, что идентификатор входит в каталог.
func IsKnownCategory(id shared.CategoryID) bool {
	for _, c := range AllCategories() {
		if c == id {
			return true
		}
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// CATEGORY PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// Количество головоломок для заполнения шкалы прогресса категории.
const PuzzlesPerLevel = 100

// Максимальный уровень категории.
const MaxCategoryLevel = 3

// CategoryProgress - прогресс пользователя в одной категории.
type CategoryProgress struct {
	// Progress - заполнение шкалы 0-100, производное от PuzzlesCompleted.
	Progress int

	// Level - уровень категории (1-3), только растёт.
	Level int

	// PuzzlesCompleted - сколько головоломок завершено.
	PuzzlesCompleted int

	// IsLocked - заблокирована ли категория.
	IsLocked bool

	// LastPlayed - календарная дата последней сессии.
	LastPlayed string

	// BestScore - лучший счёт сессии (максимум).
	BestScore int

	// TotalTime - суммарное время в категории, секунды.
	TotalTime int
}

// NewCategoryProgress создаёт прогресс категории по умолчанию.
func NewCategoryProgress(id shared.CategoryID) *CategoryProgress {
	return &CategoryProgress{
		Progress:         0,
		Level:            1,
		PuzzlesCompleted: 0,
		IsLocked:         startsLocked(id),
	}
}

// Record учитывает завершённую сессию в категории.
// Уровень растёт (до 3), только когда счёт >= 90 совпал с заполнением шкалы.
func (cp *CategoryProgress) Record(score shared.Score, timeSpentSec int, today string) {
	cp.PuzzlesCompleted++
	cp.Progress = computeProgress(cp.PuzzlesCompleted)

	if score.IsPassing() && cp.Progress >= 100 && cp.Level < MaxCategoryLevel {
		cp.Level++
	}

	if score.Int() > cp.BestScore {
		cp.BestScore = score.Int()
	}
	cp.TotalTime += timeSpentSec
	cp.LastPlayed = today
}

// Unlock снимает блокировку. Разблокировка монотонна:
// обратного перехода не существует.
func (cp *CategoryProgress) Unlock() {
	cp.IsLocked = false
}

// computeProgress пересчитывает шкалу из числа завершённых головоломок.
func computeProgress(puzzlesCompleted int) int {
	return int(math.Min(100, float64(puzzlesCompleted)/PuzzlesPerLevel*100))
}

// Clone создаёт копию прогресса категории.
func (cp *CategoryProgress) Clone() *CategoryProgress {
	if cp == nil {
		return nil
	}
	clone := *cp
	return &clone
}
