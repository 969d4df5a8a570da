package command

import (
	"context"

	"github.com/cogniquest/cogniquest-engine/internal/application/orchestrator"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION CONTROL COMMANDS
// Pause, resume, skip, and abandon for a live session. All of these are
// idempotent from the UI's perspective: a control event arriving after the
// session moved on is rejected with a state error, never a crash.
// ══════════════════════════════════════════════════════════════════════════════

// SessionControlHandler handles lifecycle commands for live sessions.
type SessionControlHandler struct {
	registry *orchestrator.Registry
}

// NewSessionControlHandler creates a new SessionControlHandler.
func NewSessionControlHandler(registry *orchestrator.Registry) *SessionControlHandler {
	return &SessionControlHandler{registry: registry}
}

// Pause freezes the current puzzle's countdown.
func (h *SessionControlHandler) Pause(ctx context.Context, sessionID string) error {
	orch, ok := h.registry.BySession(sessionID)
	if !ok {
		return shared.ErrSessionFinished
	}
	return orch.Pause()
}

// Resume restarts a paused countdown with no time penalty.
func (h *SessionControlHandler) Resume(ctx context.Context, sessionID string) error {
	orch, ok := h.registry.BySession(sessionID)
	if !ok {
		return shared.ErrSessionFinished
	}
	return orch.Resume()
}

// Skip forfeits the current puzzle, recording it as incorrect with the
// full time limit as response time.
func (h *SessionControlHandler) Skip(ctx context.Context, sessionID string) error {
	orch, ok := h.registry.BySession(sessionID)
	if !ok {
		return shared.ErrSessionFinished
	}
	return orch.Skip()
}

// Abandon closes the session without updating progress.
func (h *SessionControlHandler) Abandon(ctx context.Context, sessionID string) error {
	orch, ok := h.registry.BySession(sessionID)
	if !ok {
		return shared.ErrSessionFinished
	}
	orch.Abandon()
	return nil
}
