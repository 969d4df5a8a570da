package command

import (
	"context"
	"fmt"

	"github.com/cogniquest/cogniquest-engine/internal/application/orchestrator"
	"github.com/cogniquest/cogniquest-engine/internal/domain/anticheat"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
	"github.com/cogniquest/cogniquest-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESET PROGRESS COMMAND
// Destructively restores a user's stats and categories to defaults.
// There is no undo.
// ══════════════════════════════════════════════════════════════════════════════

// ResetProgressCommand contains the data to reset a user's progress.
type ResetProgressCommand struct {
	// UserID is the user whose progress is wiped.
	UserID string
}

// ResetProgressHandler handles the ResetProgressCommand.
type ResetProgressHandler struct {
	progressSvc ProgressService
	detector    *anticheat.Detector
	limiter     *anticheat.AttemptLimiter
	registry    *orchestrator.Registry
	events      shared.EventPublisher
	log         *logger.Logger
}

// NewResetProgressHandler creates a new ResetProgressHandler.
func NewResetProgressHandler(
	progressSvc ProgressService,
	detector *anticheat.Detector,
	limiter *anticheat.AttemptLimiter,
	registry *orchestrator.Registry,
	events shared.EventPublisher,
	log *logger.Logger,
) *ResetProgressHandler {
	return &ResetProgressHandler{
		progressSvc: progressSvc,
		detector:    detector,
		limiter:     limiter,
		registry:    registry,
		events:      events,
		log:         log.With(logger.Component("reset_progress")),
	}
}

// Handle executes the reset progress command. A live session is abandoned
// first so it cannot write stale stats over the fresh state.
func (h *ResetProgressHandler) Handle(ctx context.Context, cmd ResetProgressCommand) error {
	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return fmt.Errorf("reset_progress: %w", err)
	}

	if orch, ok := h.registry.ByUser(userID); ok {
		orch.Abandon()
	}

	if err := h.progressSvc.Reset(ctx, userID); err != nil {
		return fmt.Errorf("reset_progress: %w", err)
	}

	h.detector.Forget(userID)
	h.limiter.Reset(userID)

	_ = h.events.Publish(shared.NewProgressResetEvent(userID.String()))
	h.log.Info("progress reset", logger.UserID(userID.String()))
	return nil
}
