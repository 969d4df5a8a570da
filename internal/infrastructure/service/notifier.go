package service

import (
	"log/slog"

	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// LogNotifier delivers user-facing notifications to the log. The engine
// has no push channel of its own; the web frontend polls session state,
// so notifications are observability, not delivery.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify records a notification. Fire-and-forget.
func (n *LogNotifier) Notify(userID shared.UserID, kind, message string) {
	n.logger.Info("user notification",
		"user_id", userID.String(),
		"kind", kind,
		"message", message,
	)
}
