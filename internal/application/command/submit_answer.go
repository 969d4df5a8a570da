package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/cogniquest/cogniquest-engine/internal/application/orchestrator"
	"github.com/cogniquest/cogniquest-engine/internal/domain/puzzle"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT ANSWER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// SubmitAnswerCommand contains an answer for the current puzzle of a session.
type SubmitAnswerCommand struct {
	// SessionID identifies the live session.
	SessionID string

	// Answer is the user's submitted answer. A nil answer is treated as
	// incorrect, never as an error.
	Answer puzzle.Answer
}

// Validate validates the command.
func (c SubmitAnswerCommand) Validate() error {
	if c.SessionID == "" {
		return errors.New("submit_answer: session_id is required")
	}
	return nil
}

// SubmitAnswerResult contains the outcome of an answer submission.
type SubmitAnswerResult struct {
	// IsCorrect is the verdict of the answer check.
	IsCorrect bool

	// Points awarded for this answer.
	Points int

	// AdjustedScore is the anomaly screen's 0-100 confidence score.
	AdjustedScore int

	// Violations lists anomaly heuristics that flagged this attempt.
	Violations []string

	// Explanation is shown during the feedback phase.
	Explanation string

	// SessionTerminated is set when the violation budget was exhausted.
	SessionTerminated bool
}

// SubmitAnswerHandler handles the SubmitAnswerCommand.
type SubmitAnswerHandler struct {
	registry *orchestrator.Registry
}

// NewSubmitAnswerHandler creates a new SubmitAnswerHandler.
func NewSubmitAnswerHandler(registry *orchestrator.Registry) *SubmitAnswerHandler {
	return &SubmitAnswerHandler{registry: registry}
}

// Handle executes the submit answer command.
func (h *SubmitAnswerHandler) Handle(ctx context.Context, cmd SubmitAnswerCommand) (*SubmitAnswerResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("submit_answer: validation failed: %w", err)
	}

	orch, ok := h.registry.BySession(cmd.SessionID)
	if !ok {
		return nil, shared.ErrSessionFinished
	}

	res, err := orch.SubmitAnswer(cmd.Answer)
	if err != nil {
		return nil, err
	}

	return &SubmitAnswerResult{
		IsCorrect:         res.IsCorrect,
		Points:            res.Points,
		AdjustedScore:     res.AdjustedScore.Int(),
		Violations:        res.Violations,
		Explanation:       res.Explanation,
		SessionTerminated: res.SessionTerminated,
	}, nil
}
