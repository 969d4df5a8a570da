// Package progress содержит доменную модель прогресса пользователя CogniQuest.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
	"github.com/cogniquest/cogniquest-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER - АГРЕГАТ ПРОГРЕССА ОДНОГО ПОЛЬЗОВАТЕЛЯ
// ══════════════════════════════════════════════════════════════════════════════

// Ledger объединяет статистику пользователя и прогресс всех десяти категорий.
// Все изменения проходят через UpdateProgress/ResetProgress и применяются
// к единому снимку состояния: читатель никогда не видит частичного обновления.
type Ledger struct {
	mu sync.Mutex

	userID     shared.UserID
	stats      *UserStats
	categories map[shared.CategoryID]*CategoryProgress
}

// NewLedger создаёт журнал с состоянием по умолчанию:
// нулевая статистика, пять категорий открыто, пять заблокировано.
func NewLedger(userID shared.UserID) *Ledger {
	categories := make(map[shared.CategoryID]*CategoryProgress, len(AllCategories()))
	for _, id := range AllCategories() {
		categories[id] = NewCategoryProgress(id)
	}

	return &Ledger{
		userID:     userID,
		stats:      NewUserStats(),
		categories: categories,
	}
}

// NewLedgerFromSnapshot восстанавливает журнал из сохранённого снимка.
// Отсутствующие в снимке категории получают значения по умолчанию.
func NewLedgerFromSnapshot(userID shared.UserID, snap Snapshot) *Ledger {
	l := NewLedger(userID)
	if snap.Stats != nil {
		l.stats = snap.Stats.Clone()
	}
	for id, cp := range snap.Categories {
		if IsKnownCategory(id) && cp != nil {
			l.categories[id] = cp.Clone()
		}
	}
	return l
}

// UserID возвращает идентификатор владельца журнала.
func (l *Ledger) UserID() shared.UserID {
	return l.userID
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// UpdateResult описывает, что изменилось после учёта сессии.
// Используется слоем приложения для публикации событий.
type UpdateResult struct {
	// XPGained - начисленный опыт.
	XPGained int

	// NewTotalXP - суммарный опыт после начисления.
	NewTotalXP int

	// LeveledUp - вырос ли глобальный уровень.
	LeveledUp bool

	// OldLevel, NewLevel - глобальный уровень до и после.
	OldLevel, NewLevel int

	// StreakChanged - изменилась ли серия.
	StreakChanged bool

	// OldStreak, NewStreak - серия до и после.
	OldStreak, NewStreak int

	// CategoryLeveledUp - вырос ли уровень категории.
	CategoryLeveledUp bool

	// CategoryLevel - уровень категории после обновления.
	CategoryLevel int

	// Unlocked - категории, разблокированные этим обновлением.
	Unlocked []shared.CategoryID
}

// UpdateProgress учитывает завершённую сессию: начисляет XP, пересчитывает
// уровень и среднее, обновляет серию и прогресс категории, затем запускает
// проверку разблокировок. Все изменения видны читателям атомарно.
func (l *Ledger) UpdateProgress(categoryID shared.CategoryID, level int, score shared.Score, timeSpentSec int, now time.Time) (UpdateResult, error) {
	if !IsKnownCategory(categoryID) {
		return UpdateResult{}, shared.ErrUnknownCategory
	}
	score = score.Clamp()

	l.mu.Lock()
	defer l.mu.Unlock()

	today := timeutil.DateString(now)
	yesterday := timeutil.DateString(now.AddDate(0, 0, -1))

	oldLevel := l.stats.Level
	oldStreak := l.stats.Streak

	xpGained := l.stats.applySession(score, level, timeSpentSec, today, yesterday)
	l.stats.recountAchievements()

	category := l.categories[categoryID]
	oldCategoryLevel := category.Level
	category.Record(score, timeSpentSec, today)

	unlocked := l.evaluateUnlocksLocked()

	return UpdateResult{
		XPGained:          xpGained,
		NewTotalXP:        l.stats.TotalXP.Int(),
		LeveledUp:         l.stats.Level > oldLevel,
		OldLevel:          oldLevel.Int(),
		NewLevel:          l.stats.Level.Int(),
		StreakChanged:     l.stats.Streak != oldStreak,
		OldStreak:         oldStreak,
		NewStreak:         l.stats.Streak,
		CategoryLeveledUp: category.Level > oldCategoryLevel,
		CategoryLevel:     category.Level,
		Unlocked:          unlocked,
	}, nil
}

// evaluateUnlocksLocked применяет волновые правила разблокировки.
// Волна 1 (2+ категории уровня 2+) открывает две категории,
// волна 2 (4+ категории) - ещё три. Разблокировка монотонна.
// Возвращает категории, разблокированные именно этим вызовом.
func (l *Ledger) evaluateUnlocksLocked() []shared.CategoryID {
	advanced := 0
	for _, cp := range l.categories {
		if cp.Level >= 2 {
			advanced++
		}
	}

	var unlocked []shared.CategoryID
	unlock := func(ids []shared.CategoryID) {
		for _, id := range ids {
			if cp := l.categories[id]; cp.IsLocked {
				cp.Unlock()
				unlocked = append(unlocked, id)
			}
		}
	}

	if advanced >= 2 {
		unlock(UnlockWave1())
	}
	if advanced >= 4 {
		unlock(UnlockWave2())
	}

	return unlocked
}

// ══════════════════════════════════════════════════════════════════════════════
// RESET & SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// ResetProgress деструктивно возвращает журнал к значениям по умолчанию.
// Отмены нет.
func (l *Ledger) ResetProgress() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stats.Reset()
	for _, id := range AllCategories() {
		l.categories[id] = NewCategoryProgress(id)
	}
}

// Snapshot - согласованный снимок состояния журнала.
// Все вложенные структуры - копии, их можно безопасно читать и сериализовать.
type Snapshot struct {
	Stats      *UserStats                              `json:"stats"`
	Categories map[shared.CategoryID]*CategoryProgress `json:"categories"`
}

// Snapshot возвращает согласованный снимок журнала.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	categories := make(map[shared.CategoryID]*CategoryProgress, len(l.categories))
	for id, cp := range l.categories {
		categories[id] = cp.Clone()
	}

	return Snapshot{
		Stats:      l.stats.Clone(),
		Categories: categories,
	}
}

// Stats возвращает копию статистики пользователя.
func (l *Ledger) Stats() *UserStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats.Clone()
}

// Category возвращает копию прогресса категории.
func (l *Ledger) Category(id shared.CategoryID) (*CategoryProgress, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cp, ok := l.categories[id]
	if !ok {
		return nil, false
	}
	return cp.Clone(), true
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет долговременное хранилище прогресса.
// Реализация может отказывать временно: вызывающая сторона обязана
// логировать ошибку и повторять запись на следующем сбросе,
// а не прерывать обновление.
type Repository interface {
	// Load загружает снимок прогресса пользователя.
	// Возвращает shared.ErrStateNotFound, если записей ещё нет.
	Load(ctx context.Context, userID shared.UserID) (Snapshot, error)

	// Save сохраняет снимок прогресса пользователя.
	Save(ctx context.Context, userID shared.UserID, snap Snapshot) error

	// Delete удаляет все записи прогресса пользователя. Следующий Load
	// возвращает shared.ErrStateNotFound.
	Delete(ctx context.Context, userID shared.UserID) error
}
