package anticheat

import (
	"sync"
	"time"

	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ANOMALY DETECTOR - ЭВРИСТИЧЕСКАЯ ПРОВЕРКА ПОПЫТОК
// ══════════════════════════════════════════════════════════════════════════════

// Ёмкости окон истории на пользователя.
const (
	scoreHistoryCap  = 20
	timingHistoryCap = 50
)

// Штрафы и пороги эвристик.
const (
	rapidAttemptWindow  = 1000 * time.Millisecond
	rapidAttemptLimit   = 3 // больше трёх попыток в окне - нарушение
	rapidAttemptPenalty = 30

	tooFastThresholdSec = 2.0
	tooFastPenalty      = 20

	tooSlowThresholdSec = 300.0
	tooSlowPenalty      = 10

	// Проверка согласованности: очки выше среднего более чем на 40
	// при истории длиннее 5 записей срезаются до mean+20.
	improvementJump    = 40
	improvementCeiling = 20
	improvementMinHist = 5
)

// Тексты нарушений. Видны пользователю в уведомлениях, менять осторожно.
const (
	ViolationRapidAttempts    = "too many rapid attempts"
	ViolationTooFast          = "completion time too fast"
	ViolationTooSlow          = "completion time too long"
	ViolationScoreImprovement = "suspicious score improvement"
	ViolationPerfectScores    = "too many consecutive perfect scores"
	ViolationTimingPattern    = "suspicious timing patterns"
)

// Attempt - наблюдаемая попытка решения, подаваемая на проверку.
type Attempt struct {
	UserID         shared.UserID
	PuzzleID       string
	ResponseTimeMs int64
	Timestamp      time.Time
}

// ValidationResult - вердикт проверки одной попытки.
type ValidationResult struct {
	// IsValid - отсутствие нарушений именно в этой попытке.
	IsValid bool

	// AdjustedScore - скорректированные очки 0..100 после штрафов.
	AdjustedScore shared.Score

	// Violations - список сработавших эвристик.
	Violations []string
}

// userHistory - накопленная история одного пользователя.
type userHistory struct {
	scores  *scoreWindow
	timings *timeWindow
}

func newUserHistory() *userHistory {
	return &userHistory{
		scores:  newScoreWindow(scoreHistoryCap),
		timings: newTimeWindow(timingHistoryCap),
	}
}

// Detector хранит истории всех пользователей процесса и проверяет попытки.
// Состояние живёт только в памяти процесса.
type Detector struct {
	mu      sync.Mutex
	history map[shared.UserID]*userHistory
}

// NewDetector создаёт пустой детектор.
func NewDetector() *Detector {
	return &Detector{
		history: make(map[shared.UserID]*userHistory),
	}
}

// ValidateAttempt прогоняет попытку через все эвристики и возвращает вердикт.
// Скорректированные очки начинаются со 100 и уменьшаются за каждое нарушение;
// итог записывается в историю пользователя.
func (d *Detector) ValidateAttempt(attempt Attempt) ValidationResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	hist := d.historyForLocked(attempt.UserID)

	adjusted := 100
	var violations []string

	// Частота: метка попытки учитывается в окне до подсчёта.
	hist.timings.Push(attempt.Timestamp)
	if hist.timings.CountSince(attempt.Timestamp.Add(-rapidAttemptWindow)) > rapidAttemptLimit {
		violations = append(violations, ViolationRapidAttempts)
		adjusted -= rapidAttemptPenalty
	}

	timeSpentSec := float64(attempt.ResponseTimeMs) / 1000.0
	if timeSpentSec < tooFastThresholdSec {
		violations = append(violations, ViolationTooFast)
		adjusted -= tooFastPenalty
	}
	if timeSpentSec > tooSlowThresholdSec {
		violations = append(violations, ViolationTooSlow)
		adjusted -= tooSlowPenalty
	}

	// Согласованность: сравнение с историей ДО записи текущих очков.
	if hist.scores.Len() > improvementMinHist {
		mean := hist.scores.Mean()
		if float64(adjusted) > mean+improvementJump {
			violations = append(violations, ViolationScoreImprovement)
			if ceiling := int(mean) + improvementCeiling; adjusted > ceiling {
				adjusted = ceiling
			}
		}
	}

	if adjusted < 0 {
		adjusted = 0
	}
	hist.scores.Push(adjusted)

	return ValidationResult{
		IsValid:       len(violations) == 0,
		AdjustedScore: shared.Score(adjusted),
		Violations:    violations,
	}
}

// DetectCheatingPatterns - периодическое сканирование истории пользователя.
// Только сигнализирует, очки не меняет.
func (d *Detector) DetectCheatingPatterns(userID shared.UserID) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	hist, ok := d.history[userID]
	if !ok {
		return nil
	}

	var patterns []string

	if hist.scores.Len() > 10 && hist.scores.CountEqual(100) > 5 {
		patterns = append(patterns, ViolationPerfectScores)
	}

	// Более трёх меток, округляющихся в одну и ту же секунду.
	bySecond := make(map[int64]int, hist.timings.Len())
	suspicious := false
	hist.timings.ForEach(func(ts time.Time) {
		sec := ts.Round(time.Second).Unix()
		bySecond[sec]++
		if bySecond[sec] > 3 {
			suspicious = true
		}
	})
	if suspicious {
		patterns = append(patterns, ViolationTimingPattern)
	}

	return patterns
}

// TrackedUsers возвращает пользователей, по которым накоплена история.
// Используется фоновым сканированием паттернов.
func (d *Detector) TrackedUsers() []shared.UserID {
	d.mu.Lock()
	defer d.mu.Unlock()

	users := make([]shared.UserID, 0, len(d.history))
	for id := range d.history {
		users = append(users, id)
	}
	return users
}

// Forget удаляет историю пользователя. Вызывается при сбросе прогресса.
func (d *Detector) Forget(userID shared.UserID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.history, userID)
}

func (d *Detector) historyForLocked(userID shared.UserID) *userHistory {
	hist, ok := d.history[userID]
	if !ok {
		hist = newUserHistory()
		d.history[userID] = hist
	}
	return hist
}
