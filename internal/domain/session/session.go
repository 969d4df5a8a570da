// Package session содержит конечный автомат игровой сессии:
// последовательность головоломок, таймеры, паузы, пропуски и итог.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cogniquest/cogniquest-engine/internal/domain/puzzle"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATE - СОСТОЯНИЯ СЕССИИ
// ══════════════════════════════════════════════════════════════════════════════

// State - состояние конечного автомата сессии.
type State int

const (
	// StateLoading - сессия создана, головоломки загружены, игра не началась.
	StateLoading State = iota

	// StateActive - текущая головоломка отсчитывает время.
	StateActive

	// StatePaused - отсчёт заморожен, возобновление без штрафа.
	StatePaused

	// StateAnswered - ответ записан, идёт показ обратной связи.
	StateAnswered

	// StateCompleted - все головоломки пройдены, итог подведён.
	StateCompleted

	// StateAbandoned - пользователь покинул сессию до завершения.
	StateAbandoned

	// StateTerminated - сессия принудительно завершена за нарушения.
	StateTerminated
)

// String возвращает строковое представление состояния.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateAnswered:
		return "answered"
	case StateCompleted:
		return "completed"
	case StateAbandoned:
		return "abandoned"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// IsTerminal сообщает, завершает ли состояние жизненный цикл сессии.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateAbandoned || s == StateTerminated
}

// MaxSessionPuzzles - верхняя граница числа головоломок в сессии.
const MaxSessionPuzzles = 20

// ══════════════════════════════════════════════════════════════════════════════
// SESSION - ИГРОВАЯ СЕССИЯ
// ══════════════════════════════════════════════════════════════════════════════

// Session - одна ограниченная игровая сессия: перемешанный набор головоломок
// (не более MaxSessionPuzzles), по которому пользователь движется строго
// последовательно. Ровно одна головоломка является текущей; повторные
// события для уже отвеченной головоломки игнорируются.
type Session struct {
	mu sync.Mutex

	id         string
	userID     shared.UserID
	categoryID shared.CategoryID
	level      int

	puzzles []*puzzle.Puzzle
	index   int

	state       State
	timeLeftSec int
	answered    bool

	results []puzzle.AttemptResult
	correct int

	startedAt  time.Time
	finishedAt time.Time
}

// New создаёт сессию в состоянии Loading. Порядок головоломок
// определяется вызывающей стороной; список должен быть непустым.
func New(userID shared.UserID, categoryID shared.CategoryID, level int, puzzles []*puzzle.Puzzle) (*Session, error) {
	if len(puzzles) == 0 {
		return nil, shared.ErrNoPuzzles
	}
	if len(puzzles) > MaxSessionPuzzles {
		puzzles = puzzles[:MaxSessionPuzzles]
	}

	return &Session{
		id:         uuid.NewString(),
		userID:     userID,
		categoryID: categoryID,
		level:      level,
		puzzles:    puzzles,
		state:      StateLoading,
	}, nil
}

// ID возвращает идентификатор сессии.
func (s *Session) ID() string { return s.id }

// UserID возвращает владельца сессии.
func (s *Session) UserID() shared.UserID { return s.userID }

// CategoryID возвращает категорию сессии.
func (s *Session) CategoryID() shared.CategoryID { return s.categoryID }

// Level возвращает уровень сессии.
func (s *Session) Level() int { return s.level }

// State возвращает текущее состояние.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ──────────────────────────────────────────────────────────────────────────────
// Переходы
// ──────────────────────────────────────────────────────────────────────────────

// Start переводит сессию из Loading в Active на первой головоломке.
func (s *Session) Start(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoading {
		return shared.ErrSessionNotActive
	}

	s.startedAt = now
	s.activateCurrentLocked()
	return nil
}

// CurrentPuzzle возвращает текущую головоломку.
func (s *Session) CurrentPuzzle() (*puzzle.Puzzle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsTerminal() || s.index >= len(s.puzzles) {
		return nil, false
	}
	return s.puzzles[s.index], true
}

// TimeLeft возвращает остаток времени текущей головоломки в секундах.
func (s *Session) TimeLeft() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeLeftSec
}

// Tick уменьшает остаток времени на секунду. Возвращает true, когда время
// вышло и головоломка должна быть засчитана как таймаут. Вне Active - no-op.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive || s.answered {
		return false
	}

	s.timeLeftSec--
	return s.timeLeftSec <= 0
}

// RecordAnswer записывает результат ответа на текущую головоломку и переводит
// сессию в Answered. Повторный вызов для уже отвеченной головоломки - no-op.
func (s *Session) RecordAnswer(result puzzle.AttemptResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive || s.answered {
		return shared.ErrSessionNotActive
	}

	s.answered = true
	s.state = StateAnswered
	s.results = append(s.results, result)
	if result.IsCorrect {
		s.correct++
	}
	return nil
}

// RecordTimeout засчитывает текущую головоломку как неверный ответ с полным
// лимитом времени в качестве времени реакции. Идентично явному пропуску.
func (s *Session) RecordTimeout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive || s.answered {
		return shared.ErrSessionNotActive
	}

	p := s.puzzles[s.index]
	s.answered = true
	s.state = StateAnswered
	s.results = append(s.results, puzzle.AttemptResult{
		PuzzleID:       p.ID,
		IsCorrect:      false,
		ResponseTimeMs: int64(p.TimeLimit) * 1000,
		Points:         0,
	})
	return nil
}

// Skip - явный пропуск, эквивалентен таймауту. Доступен только до ответа.
func (s *Session) Skip() error {
	return s.RecordTimeout()
}

// Advance переводит сессию к следующей головоломке после показа обратной
// связи, либо завершает сессию, если головоломки кончились.
func (s *Session) Advance(now time.Time) (finished bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAnswered {
		return false, shared.ErrSessionNotActive
	}

	s.index++
	if s.index >= len(s.puzzles) {
		s.state = StateCompleted
		s.finishedAt = now
		return true, nil
	}

	s.activateCurrentLocked()
	return false, nil
}

// Pause замораживает отсчёт. Допустима только из Active.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return shared.ErrSessionNotActive
	}
	s.state = StatePaused
	return nil
}

// Resume возобновляет отсчёт ровно с того места, где он был заморожен.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePaused {
		return shared.ErrSessionNotActive
	}
	s.state = StateActive
	return nil
}

// Abandon помечает сессию покинутой. Из терминального состояния - no-op.
func (s *Session) Abandon(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsTerminal() {
		return
	}
	s.state = StateAbandoned
	s.finishedAt = now
}

// Terminate принудительно завершает сессию за накопленные нарушения.
// Из терминального состояния - no-op.
func (s *Session) Terminate(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsTerminal() {
		return
	}
	s.state = StateTerminated
	s.finishedAt = now
}

func (s *Session) activateCurrentLocked() {
	s.state = StateActive
	s.answered = false
	s.timeLeftSec = s.puzzles[s.index].TimeLimit
}

// ──────────────────────────────────────────────────────────────────────────────
// Итоги
// ──────────────────────────────────────────────────────────────────────────────

// Summary - итог завершённой сессии для отчёта и обновления прогресса.
type Summary struct {
	SessionID  string
	UserID     shared.UserID
	CategoryID shared.CategoryID
	Level      int

	// Score - итоговый счёт сессии 0..100.
	Score shared.Score

	Correct int
	Total   int

	// TotalTimeSec - полное время сессии от старта до завершения.
	TotalTimeSec int

	// TotalPoints - сумма очков за все ответы.
	TotalPoints int

	Results []puzzle.AttemptResult
}

// Summary подводит итог сессии. Счёт считается от полного числа головоломок,
// а не от числа отвеченных: прерванная сессия теряет оставшиеся вопросы.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	totalPoints := 0
	for _, r := range s.results {
		totalPoints += r.Points
	}

	totalTime := 0
	if !s.startedAt.IsZero() && !s.finishedAt.IsZero() {
		totalTime = int(s.finishedAt.Sub(s.startedAt).Seconds())
	}

	results := make([]puzzle.AttemptResult, len(s.results))
	copy(results, s.results)

	return Summary{
		SessionID:    s.id,
		UserID:       s.userID,
		CategoryID:   s.categoryID,
		Level:        s.level,
		Score:        puzzle.SessionScore(s.correct, len(s.puzzles)),
		Correct:      s.correct,
		Total:        len(s.puzzles),
		TotalTimeSec: totalTime,
		TotalPoints:  totalPoints,
		Results:      results,
	}
}
