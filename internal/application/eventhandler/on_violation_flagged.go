// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"log/slog"

	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON VIOLATION FLAGGED HANDLER
// Превращает сигналы античита в уведомления пользователю.
// Уведомления отправляются в режиме fire-and-forget: сбой доставки
// не влияет на ход сессии.
// ═══════════════════════════════════════════════════════════════════════════

// ViolationNotifier доставляет пользователю предупреждение о нарушении.
type ViolationNotifier interface {
	Notify(userID shared.UserID, kind, message string)
}

// OnViolationFlaggedHandler обрабатывает событие зафиксированного нарушения.
type OnViolationFlaggedHandler struct {
	notifier ViolationNotifier
	logger   *slog.Logger
}

// NewOnViolationFlaggedHandler создаёт обработчик нарушений.
func NewOnViolationFlaggedHandler(notifier ViolationNotifier, logger *slog.Logger) *OnViolationFlaggedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnViolationFlaggedHandler{
		notifier: notifier,
		logger:   logger.With("handler", "on_violation_flagged"),
	}
}

// Handle обрабатывает событие нарушения.
// Реализует интерфейс shared.EventHandler.
func (h *OnViolationFlaggedHandler) Handle(event shared.Event) error {
	violation, ok := event.(shared.ViolationFlaggedEvent)
	if !ok {
		h.logger.Warn("received non-ViolationFlaggedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("violation flagged",
		"user_id", violation.UserID,
		"session_id", violation.SessionID,
		"reason", violation.Reason,
		"adjusted_score", violation.AdjustedScore,
	)

	h.notifier.Notify(shared.UserID(violation.UserID), "violation", violation.Reason)
	return nil
}
