// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/cogniquest/cogniquest-engine/internal/application/orchestrator"
	"github.com/cogniquest/cogniquest-engine/internal/domain/progress"
	"github.com/cogniquest/cogniquest-engine/internal/domain/puzzle"
	"github.com/cogniquest/cogniquest-engine/internal/domain/session"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// START SESSION COMMAND
// Draws a shuffled puzzle set for a category/level and begins a live session.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressService is the application's view of durable progress state.
type ProgressService interface {
	// Snapshot returns the user's progress; new users get defaults.
	Snapshot(ctx context.Context, userID shared.UserID) (progress.Snapshot, error)

	// Reset destructively restores the user's progress to defaults.
	Reset(ctx context.Context, userID shared.UserID) error
}

// PuzzleSigner signs puzzles served to clients so answers can be
// matched to an untampered puzzle.
type PuzzleSigner interface {
	Sign(p *puzzle.Puzzle) string
}

// StartSessionCommand contains the data to start a game session.
type StartSessionCommand struct {
	// UserID is the player starting the session.
	UserID string

	// CategoryID is the cognitive-skill category to play.
	CategoryID string

	// Level is the category level (1-3).
	Level int
}

// Validate validates the command.
func (c StartSessionCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("start_session: user_id is required")
	}
	if c.CategoryID == "" {
		return errors.New("start_session: category_id is required")
	}
	if c.Level < 1 || c.Level > 3 {
		return fmt.Errorf("start_session: level must be 1-3, got %d", c.Level)
	}
	return nil
}

// StartSessionResult contains the result of starting a session.
type StartSessionResult struct {
	// SessionID identifies the live session for subsequent commands.
	SessionID string

	// PuzzleCount is the number of puzzles drawn into the session.
	PuzzleCount int

	// FirstPuzzle is the puzzle now awaiting an answer.
	FirstPuzzle *puzzle.Puzzle

	// FirstPuzzleSignature is the integrity signature for FirstPuzzle.
	// Empty when puzzle signing is disabled.
	FirstPuzzleSignature string
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// StartSessionHandler handles the StartSessionCommand.
type StartSessionHandler struct {
	puzzleRepo   puzzle.Repository
	progressSvc  ProgressService
	registry     *orchestrator.Registry
	orchestrator orchestrator.Config
	signer       PuzzleSigner
}

// WithSigner enables integrity signatures on served puzzles.
func (h *StartSessionHandler) WithSigner(signer PuzzleSigner) *StartSessionHandler {
	h.signer = signer
	return h
}

// NewStartSessionHandler creates a new StartSessionHandler.
func NewStartSessionHandler(
	puzzleRepo puzzle.Repository,
	progressSvc ProgressService,
	registry *orchestrator.Registry,
	orchestratorConfig orchestrator.Config,
) *StartSessionHandler {
	return &StartSessionHandler{
		puzzleRepo:   puzzleRepo,
		progressSvc:  progressSvc,
		registry:     registry,
		orchestrator: orchestratorConfig,
	}
}

// Handle executes the start session command.
func (h *StartSessionHandler) Handle(ctx context.Context, cmd StartSessionCommand) (*StartSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("start_session: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("start_session: %w", err)
	}
	categoryID, err := shared.NewCategoryID(cmd.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("start_session: %w", err)
	}
	if !progress.IsKnownCategory(categoryID) {
		return nil, shared.ErrUnknownCategory
	}

	// Locked categories cannot be played.
	snap, err := h.progressSvc.Snapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("start_session: failed to load progress: %w", err)
	}
	if cp, ok := snap.Categories[categoryID]; ok && cp.IsLocked {
		return nil, shared.ErrCategoryLocked
	}

	pool, err := h.puzzleRepo.GetByCategory(ctx, categoryID, cmd.Level)
	if err != nil {
		return nil, fmt.Errorf("start_session: failed to load puzzles: %w", err)
	}
	if len(pool) == 0 {
		return nil, shared.ErrNoPuzzles
	}

	// A user runs one live session at a time; a new start abandons the old.
	if prev, ok := h.registry.ByUser(userID); ok {
		prev.Abandon()
	}

	sess, err := session.New(userID, categoryID, cmd.Level, shufflePuzzles(pool))
	if err != nil {
		return nil, fmt.Errorf("start_session: %w", err)
	}

	orch := orchestrator.New(sess, h.orchestrator)
	h.registry.Register(orch)

	if err := orch.Start(); err != nil {
		return nil, fmt.Errorf("start_session: failed to start: %w", err)
	}

	first, _ := sess.CurrentPuzzle()
	result := &StartSessionResult{
		SessionID:   sess.ID(),
		PuzzleCount: min(len(pool), session.MaxSessionPuzzles),
		FirstPuzzle: first,
	}
	if h.signer != nil && first != nil {
		result.FirstPuzzleSignature = h.signer.Sign(first)
	}
	return result, nil
}

// shufflePuzzles returns a shuffled copy of the pool.
func shufflePuzzles(pool []*puzzle.Puzzle) []*puzzle.Puzzle {
	shuffled := make([]*puzzle.Puzzle, len(pool))
	copy(shuffled, pool)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}
