package command

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cogniquest/cogniquest-engine/internal/application/orchestrator"
	"github.com/cogniquest/cogniquest-engine/internal/domain/anticheat"
	"github.com/cogniquest/cogniquest-engine/internal/domain/puzzle"
	"github.com/cogniquest/cogniquest-engine/internal/domain/session"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
	"github.com/cogniquest/cogniquest-engine/pkg/logger"
	"github.com/cogniquest/cogniquest-engine/pkg/timeutil"
)

// startTestSession starts a live session and returns its ID together with
// the registry and the clock driving it.
func startTestSession(t *testing.T, puzzleCount int) (string, *orchestrator.Registry, *timeutil.FakeClock) {
	t.Helper()

	registry := orchestrator.NewRegistry()
	clock := timeutil.NewFakeClock(commandTime)

	cfg := testOrchestratorConfig()
	cfg.Clock = clock

	h := NewStartSessionHandler(
		&fakePuzzleRepo{pool: testPool(puzzleCount)},
		&fakeProgressService{snapshot: defaultSnapshot()},
		registry,
		cfg,
	)

	res, err := h.Handle(context.Background(), StartSessionCommand{
		UserID:     testUserID,
		CategoryID: testCategory,
		Level:      1,
	})
	assert.NoError(t, err)
	return res.SessionID, registry, clock
}

func TestSubmitAnswer_UnknownSession(t *testing.T) {
	h := NewSubmitAnswerHandler(orchestrator.NewRegistry())

	_, err := h.Handle(context.Background(), SubmitAnswerCommand{SessionID: "nope", Answer: puzzle.Number(1)})
	assert.ErrorIs(t, err, shared.ErrSessionFinished)
}

func TestSubmitAnswer_Validation(t *testing.T) {
	h := NewSubmitAnswerHandler(orchestrator.NewRegistry())

	_, err := h.Handle(context.Background(), SubmitAnswerCommand{})
	assert.Error(t, err)
}

func TestSubmitAnswer_RecordsAnswer(t *testing.T) {
	sessionID, registry, clock := startTestSession(t, 3)
	h := NewSubmitAnswerHandler(registry)

	clock.Advance(5 * time.Second)

	res, err := h.Handle(context.Background(), SubmitAnswerCommand{
		SessionID: sessionID,
		Answer:    puzzle.Number(999),
	})
	assert.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, 0, res.Points)

	orch, _ := registry.BySession(sessionID)
	assert.Equal(t, session.StateAnswered, orch.Session().State())
}

func TestSubmitAnswer_NilAnswerIsIncorrect(t *testing.T) {
	sessionID, registry, _ := startTestSession(t, 1)
	h := NewSubmitAnswerHandler(registry)

	res, err := h.Handle(context.Background(), SubmitAnswerCommand{SessionID: sessionID})
	assert.NoError(t, err)
	assert.False(t, res.IsCorrect)
}

func TestSessionControl_PauseResumeSkipAbandon(t *testing.T) {
	sessionID, registry, _ := startTestSession(t, 2)
	h := NewSessionControlHandler(registry)
	ctx := context.Background()

	assert.NoError(t, h.Pause(ctx, sessionID))
	orch, _ := registry.BySession(sessionID)
	assert.Equal(t, session.StatePaused, orch.Session().State())

	assert.NoError(t, h.Resume(ctx, sessionID))
	assert.Equal(t, session.StateActive, orch.Session().State())

	assert.NoError(t, h.Skip(ctx, sessionID))
	assert.Equal(t, session.StateAnswered, orch.Session().State())

	assert.NoError(t, h.Abandon(ctx, sessionID))
	assert.Equal(t, session.StateAbandoned, orch.Session().State())

	// The finished session is no longer addressable.
	assert.ErrorIs(t, h.Pause(ctx, sessionID), shared.ErrSessionFinished)
}

func TestSessionControl_UnknownSession(t *testing.T) {
	h := NewSessionControlHandler(orchestrator.NewRegistry())
	ctx := context.Background()

	assert.ErrorIs(t, h.Pause(ctx, "nope"), shared.ErrSessionFinished)
	assert.ErrorIs(t, h.Resume(ctx, "nope"), shared.ErrSessionFinished)
	assert.ErrorIs(t, h.Skip(ctx, "nope"), shared.ErrSessionFinished)
	assert.ErrorIs(t, h.Abandon(ctx, "nope"), shared.ErrSessionFinished)
}

func TestResetProgress_WipesStateAndAbandonsSession(t *testing.T) {
	sessionID, registry, _ := startTestSession(t, 2)

	svc := &fakeProgressService{snapshot: defaultSnapshot()}
	detector := anticheat.NewDetector()
	limiter := anticheat.NewAttemptLimiter(anticheat.DefaultLimiterConfig())

	detector.ValidateAttempt(anticheat.Attempt{
		UserID:         shared.UserID(testUserID),
		PuzzleID:       "p-0",
		ResponseTimeMs: 10_000,
		Timestamp:      commandTime,
	})
	assert.NoError(t, limiter.Allow(shared.UserID(testUserID), commandTime))

	h := NewResetProgressHandler(
		svc, detector, limiter, registry, nullBus{},
		logger.New(logger.Options{Output: io.Discard, Level: logger.LevelFatal}),
	)

	assert.NoError(t, h.Handle(context.Background(), ResetProgressCommand{UserID: testUserID}))

	assert.Equal(t, []shared.UserID{shared.UserID(testUserID)}, svc.resets)
	assert.Empty(t, detector.TrackedUsers())

	// The live session was abandoned before the wipe.
	_, ok := registry.BySession(sessionID)
	assert.False(t, ok)
}

func TestResetProgress_InvalidUserID(t *testing.T) {
	h := NewResetProgressHandler(
		&fakeProgressService{}, anticheat.NewDetector(),
		anticheat.NewAttemptLimiter(anticheat.DefaultLimiterConfig()),
		orchestrator.NewRegistry(), nullBus{},
		logger.New(logger.Options{Output: io.Discard, Level: logger.LevelFatal}),
	)

	assert.Error(t, h.Handle(context.Background(), ResetProgressCommand{UserID: "nope"}))
}
