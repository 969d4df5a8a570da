package query

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cogniquest/cogniquest-engine/internal/application/orchestrator"
	"github.com/cogniquest/cogniquest-engine/internal/domain/anticheat"
	"github.com/cogniquest/cogniquest-engine/internal/domain/progress"
	"github.com/cogniquest/cogniquest-engine/internal/domain/puzzle"
	"github.com/cogniquest/cogniquest-engine/internal/domain/session"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
	"github.com/cogniquest/cogniquest-engine/pkg/logger"
	"github.com/cogniquest/cogniquest-engine/pkg/timeutil"
)

type nullProgress struct{}

func (nullProgress) UpdateProgress(_ context.Context, _ shared.UserID, _ shared.CategoryID, _ int, _ shared.Score, _ int) (progress.UpdateResult, error) {
	return progress.UpdateResult{}, nil
}

type nullBus struct{}

func (nullBus) Publish(_ shared.Event) error { return nil }

type nullNotifier struct{}

func (nullNotifier) Notify(_ shared.UserID, _, _ string) {}

func liveSession(t *testing.T) (*orchestrator.Registry, string, *timeutil.FakeClock) {
	t.Helper()

	puzzles := make([]*puzzle.Puzzle, 3)
	for i := range puzzles {
		puzzles[i] = &puzzle.Puzzle{
			ID:         fmt.Sprintf("p-%d", i),
			CategoryID: progress.CategoryLogic,
			Kind:       puzzle.KindLogic,
			Level:      1,
			Difficulty: shared.Difficulty(5),
			TimeLimit:  30,
			Solution:   puzzle.Number(float64(i)),
		}
	}

	sess, err := session.New(shared.UserID(testUserID), progress.CategoryLogic, 1, puzzles)
	assert.NoError(t, err)

	clock := timeutil.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	orch := orchestrator.New(sess, orchestrator.Config{
		Clock:    clock,
		Logger:   logger.New(logger.Options{Output: io.Discard, Level: logger.LevelFatal}),
		Detector: anticheat.NewDetector(),
		Limiter:  anticheat.NewAttemptLimiter(anticheat.DefaultLimiterConfig()),
		Progress: nullProgress{},
		Events:   nullBus{},
		Notifier: nullNotifier{},
	})

	registry := orchestrator.NewRegistry()
	registry.Register(orch)
	assert.NoError(t, orch.Start())

	return registry, sess.ID(), clock
}

func TestGetSession_LiveView(t *testing.T) {
	registry, sessionID, clock := liveSession(t)
	h := NewGetSessionHandler(registry)

	clock.Advance(4 * time.Second)

	res, err := h.Handle(context.Background(), GetSessionQuery{SessionID: sessionID})
	assert.NoError(t, err)
	assert.Equal(t, sessionID, res.SessionID)
	assert.Equal(t, testUserID, res.UserID)
	assert.Equal(t, "logical-reasoning", res.CategoryID)
	assert.Equal(t, 1, res.Level)
	assert.Equal(t, "active", res.State)
	assert.Equal(t, 26, res.TimeLeftSec)
	assert.Equal(t, "p-0", res.CurrentPuzzleID)
}

func TestGetSession_UnknownSession(t *testing.T) {
	registry, _, _ := liveSession(t)
	h := NewGetSessionHandler(registry)

	_, err := h.Handle(context.Background(), GetSessionQuery{SessionID: "gone"})
	assert.ErrorIs(t, err, shared.ErrSessionFinished)
}
