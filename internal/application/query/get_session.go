package query

import (
	"context"

	"github.com/cogniquest/cogniquest-engine/internal/application/orchestrator"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SESSION STATE QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetSessionQuery requests the live state of a session.
type GetSessionQuery struct {
	SessionID string
}

// GetSessionResult is a point-in-time view of a live session.
type GetSessionResult struct {
	SessionID   string `json:"session_id"`
	UserID      string `json:"user_id"`
	CategoryID  string `json:"category_id"`
	Level       int    `json:"level"`
	State       string `json:"state"`
	TimeLeftSec int    `json:"time_left_sec"`

	// CurrentPuzzleID is empty once the session is over.
	CurrentPuzzleID string `json:"current_puzzle_id,omitempty"`
}

// GetSessionHandler handles the GetSessionQuery.
type GetSessionHandler struct {
	registry *orchestrator.Registry
}

// NewGetSessionHandler creates a new GetSessionHandler.
func NewGetSessionHandler(registry *orchestrator.Registry) *GetSessionHandler {
	return &GetSessionHandler{registry: registry}
}

// Handle executes the query.
func (h *GetSessionHandler) Handle(ctx context.Context, q GetSessionQuery) (*GetSessionResult, error) {
	orch, ok := h.registry.BySession(q.SessionID)
	if !ok {
		return nil, shared.ErrSessionFinished
	}

	sess := orch.Session()
	result := &GetSessionResult{
		SessionID:   sess.ID(),
		UserID:      sess.UserID().String(),
		CategoryID:  sess.CategoryID().String(),
		Level:       sess.Level(),
		State:       sess.State().String(),
		TimeLeftSec: sess.TimeLeft(),
	}

	if p, ok := sess.CurrentPuzzle(); ok {
		result.CurrentPuzzleID = p.ID
	}

	return result, nil
}
