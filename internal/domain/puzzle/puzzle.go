// Package puzzle содержит доменную модель головоломок CogniQuest.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package puzzle

import (
	"context"
	"errors"
	"time"

	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PUZZLE KINDS
// ══════════════════════════════════════════════════════════════════════════════

// Kind определяет тип головоломки. Десять типов соответствуют
// десяти когнитивным категориям приложения.
type Kind string

const (
	// KindRiddle - загадки и словесные головоломки.
	KindRiddle Kind = "riddle"
	// KindVisual - ментальная ротация и визуальные задачи.
	KindVisual Kind = "visual"
	// KindLogic - задачи на дедуктивную логику.
	KindLogic Kind = "logic"
	// KindSequence - числовые последовательности и закономерности.
	KindSequence Kind = "sequence"
	// KindMemory - запоминание последовательностей.
	KindMemory Kind = "memory"
	// KindCalculation - устный счёт и задачи Струпа.
	KindCalculation Kind = "calculation"
	// KindSpatial - пространственные конструкции и танграмы.
	KindSpatial Kind = "spatial"
	// KindEmotional - распознавание эмоций.
	KindEmotional Kind = "emotional"
	// KindOrientation - лабиринты и навигация.
	KindOrientation Kind = "orientation"
	// KindLanguage - анаграммы и вербальная беглость.
	KindLanguage Kind = "language"
)

// IsValid проверяет, что тип головоломки корректен.
func (k Kind) IsValid() bool {
	switch k {
	case KindRiddle, KindVisual, KindLogic, KindSequence, KindMemory,
		KindCalculation, KindSpatial, KindEmotional, KindOrientation, KindLanguage:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: PUZZLE
// ══════════════════════════════════════════════════════════════════════════════

// Puzzle - одна головоломка из пула категории.
type Puzzle struct {
	// ID - уникальный идентификатор головоломки.
	ID string

	// CategoryID - категория, к которой принадлежит головоломка.
	CategoryID shared.CategoryID

	// Kind - тип головоломки.
	Kind Kind

	// Title - название для отображения.
	Title string

	// Level - уровень внутри категории (1-3).
	Level int

	// Difficulty - заявленная сложность (1-10), влияет на очки.
	Difficulty shared.Difficulty

	// TimeLimit - лимит времени на решение в секундах.
	TimeLimit int

	// Content - условие головоломки (формат зависит от Kind,
	// ядро его не интерпретирует).
	Content map[string]interface{}

	// Solution - эталонный ответ (tagged union, см. answer.go).
	Solution Solution

	// Explanation - пояснение для экрана результатов.
	Explanation string
}

// Ошибки доменной модели головоломок.
var (
	// ErrInvalidLevel - уровень вне диапазона 1-3.
	ErrInvalidLevel = errors.New("invalid puzzle level: must be 1-3")

	// ErrInvalidTimeLimit - неположительный лимит времени.
	ErrInvalidTimeLimit = errors.New("invalid time limit: must be positive")

	// ErrNilSolution - у головоломки нет эталонного ответа.
	ErrNilSolution = errors.New("puzzle has no solution")
)

// Validate проверяет корректность головоломки.
func (p *Puzzle) Validate() error {
	if p.ID == "" {
		return errors.New("puzzle id is required")
	}
	if !p.Kind.IsValid() {
		return shared.ErrInvalidPuzzleKind
	}
	if p.Level < 1 || p.Level > 3 {
		return ErrInvalidLevel
	}
	if !p.Difficulty.IsValid() {
		return shared.ErrInvalidDifficulty
	}
	if p.TimeLimit <= 0 {
		return ErrInvalidTimeLimit
	}
	if p.Solution == nil {
		return ErrNilSolution
	}
	return nil
}

// TimeLimitDuration возвращает лимит времени как time.Duration.
func (p *Puzzle) TimeLimitDuration() time.Duration {
	return time.Duration(p.TimeLimit) * time.Second
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет доступ к пулу головоломок.
// Реализуется инфраструктурным слоем (PostgreSQL).
type Repository interface {
	// GetByCategory возвращает головоломки категории указанного уровня.
	GetByCategory(ctx context.Context, categoryID shared.CategoryID, level int) ([]*Puzzle, error)

	// GetByID возвращает головоломку по идентификатору.
	GetByID(ctx context.Context, id string) (*Puzzle, error)
}
