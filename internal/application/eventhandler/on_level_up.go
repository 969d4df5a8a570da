package eventhandler

import (
	"fmt"
	"log/slog"

	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON LEVEL UP / CATEGORY UNLOCKED HANDLER
// Поздравительные уведомления о росте уровня и разблокировке категорий.
// ═══════════════════════════════════════════════════════════════════════════

// OnLevelUpHandler обрабатывает события прогресса, требующие уведомления.
type OnLevelUpHandler struct {
	notifier ViolationNotifier
	logger   *slog.Logger
}

// NewOnLevelUpHandler создаёт обработчик событий прогресса.
func NewOnLevelUpHandler(notifier ViolationNotifier, logger *slog.Logger) *OnLevelUpHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnLevelUpHandler{
		notifier: notifier,
		logger:   logger.With("handler", "on_level_up"),
	}
}

// Handle обрабатывает события LevelUp и CategoryUnlocked.
// Реализует интерфейс shared.EventHandler.
func (h *OnLevelUpHandler) Handle(event shared.Event) error {
	switch e := event.(type) {
	case shared.LevelUpEvent:
		h.logger.Info("level up",
			"user_id", e.UserID,
			"old_level", e.OldLevel,
			"new_level", e.NewLevel,
		)
		h.notifier.Notify(shared.UserID(e.UserID), "level_up",
			fmt.Sprintf("level %d reached", e.NewLevel))

	case shared.CategoryUnlockedEvent:
		h.logger.Info("category unlocked",
			"user_id", e.UserID,
			"category_id", e.CategoryID,
		)
		h.notifier.Notify(shared.UserID(e.UserID), "category_unlocked",
			fmt.Sprintf("category %s unlocked", e.CategoryID))

	default:
		h.logger.Warn("received unexpected event",
			"event_type", event.EventType(),
		)
	}
	return nil
}
