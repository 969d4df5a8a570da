package orchestrator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cogniquest/cogniquest-engine/internal/domain/anticheat"
	"github.com/cogniquest/cogniquest-engine/internal/domain/progress"
	"github.com/cogniquest/cogniquest-engine/internal/domain/puzzle"
	"github.com/cogniquest/cogniquest-engine/internal/domain/session"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
	"github.com/cogniquest/cogniquest-engine/pkg/logger"
	"github.com/cogniquest/cogniquest-engine/pkg/timeutil"
)

const testUserID = shared.UserID("4d8e2f1a-6b3c-4d9e-8f0a-1b2c3d4e5f60")
const testCategory = shared.CategoryID("logical-reasoning")

var startTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────────────────────────────────

type fakeBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (b *fakeBus) Publish(event shared.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *fakeBus) ofType(t shared.EventType) []shared.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []shared.Event
	for _, e := range b.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeProgress struct {
	mu     sync.Mutex
	calls  int
	userID shared.UserID
	score  shared.Score
	result progress.UpdateResult
	err    error
}

func (p *fakeProgress) UpdateProgress(_ context.Context, userID shared.UserID, _ shared.CategoryID, _ int, score shared.Score, _ int) (progress.UpdateResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.userID = userID
	p.score = score
	return p.result, p.err
}

type fakeNotifier struct {
	mu    sync.Mutex
	kinds []string
}

func (n *fakeNotifier) Notify(_ shared.UserID, kind, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
}

// ──────────────────────────────────────────────────────────────────────────────
// Harness
// ──────────────────────────────────────────────────────────────────────────────

type harness struct {
	orch     *Orchestrator
	clock    *timeutil.FakeClock
	bus      *fakeBus
	progress *fakeProgress
	limiter  *anticheat.AttemptLimiter
}

func newHarness(t *testing.T, puzzleCount int, limiterCfg anticheat.LimiterConfig) *harness {
	t.Helper()

	puzzles := make([]*puzzle.Puzzle, puzzleCount)
	for i := range puzzles {
		puzzles[i] = &puzzle.Puzzle{
			ID:          fmt.Sprintf("p-%d", i),
			CategoryID:  testCategory,
			Kind:        puzzle.KindLogic,
			Level:       1,
			Difficulty:  shared.Difficulty(5),
			TimeLimit:   30,
			Solution:    puzzle.Number(float64(i)),
			Explanation: "because",
		}
	}

	sess, err := session.New(testUserID, testCategory, 1, puzzles)
	assert.NoError(t, err)

	h := &harness{
		clock:    timeutil.NewFakeClock(startTime),
		bus:      &fakeBus{},
		progress: &fakeProgress{},
		limiter:  anticheat.NewAttemptLimiter(limiterCfg),
	}
	h.orch = New(sess, Config{
		Clock:    h.clock,
		Logger:   logger.New(logger.Options{Output: io.Discard, Level: logger.LevelFatal}),
		Detector: anticheat.NewDetector(),
		Limiter:  h.limiter,
		Progress: h.progress,
		Events:   h.bus,
		Notifier: &fakeNotifier{},
	})
	return h
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestOrchestrator_HappyPath(t *testing.T) {
	h := newHarness(t, 2, anticheat.DefaultLimiterConfig())
	h.progress.result = progress.UpdateResult{
		XPGained:   1000,
		NewTotalXP: 1000,
		LeveledUp:  true,
		OldLevel:   1,
		NewLevel:   2,
		Unlocked:   []shared.CategoryID{shared.CategoryID("mental-calculation")},
	}

	assert.NoError(t, h.orch.Start())
	assert.Equal(t, session.StateActive, h.orch.Session().State())

	// Answer the first puzzle after five seconds of countdown.
	h.clock.Advance(5 * time.Second)
	res, err := h.orch.SubmitAnswer(puzzle.Number(0))
	assert.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, "because", res.Explanation)
	assert.Empty(t, res.Violations)

	// difficulty*10 + timeLeft*2 + difficulty*5 with 25s remaining.
	assert.Equal(t, 125, res.Points)

	// Feedback elapses, second puzzle activates.
	h.clock.Advance(2 * time.Second)
	h.clock.Advance(5 * time.Second)
	res, err = h.orch.SubmitAnswer(puzzle.Number(1))
	assert.NoError(t, err)
	assert.True(t, res.IsCorrect)

	// Final feedback completes the session.
	h.clock.Advance(2 * time.Second)
	assert.Equal(t, session.StateCompleted, h.orch.Session().State())

	assert.Equal(t, 1, h.progress.calls)
	assert.Equal(t, testUserID, h.progress.userID)
	assert.Equal(t, shared.Score(100), h.progress.score)

	assert.Len(t, h.bus.ofType(shared.EventSessionCompleted), 1)
	assert.Len(t, h.bus.ofType(shared.EventXPGained), 1)
	assert.Len(t, h.bus.ofType(shared.EventLevelUp), 1)
	assert.Len(t, h.bus.ofType(shared.EventCategoryUnlock), 1)
}

func TestOrchestrator_WrongAnswerScoresZeroPoints(t *testing.T) {
	h := newHarness(t, 1, anticheat.DefaultLimiterConfig())

	assert.NoError(t, h.orch.Start())
	h.clock.Advance(5 * time.Second)

	res, err := h.orch.SubmitAnswer(puzzle.Number(99))
	assert.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, 0, res.Points)

	h.clock.Advance(2 * time.Second)
	assert.Equal(t, session.StateCompleted, h.orch.Session().State())
	assert.Equal(t, shared.Score(0), h.progress.score)
}

func TestOrchestrator_TimeoutAdvancesSession(t *testing.T) {
	h := newHarness(t, 1, anticheat.DefaultLimiterConfig())

	assert.NoError(t, h.orch.Start())

	// Run the countdown all the way out, then through the feedback delay.
	h.clock.Advance(30 * time.Second)
	assert.Equal(t, session.StateAnswered, h.orch.Session().State())

	h.clock.Advance(2 * time.Second)
	assert.Equal(t, session.StateCompleted, h.orch.Session().State())

	summary := h.orch.Session().Summary()
	assert.Len(t, summary.Results, 1)
	assert.False(t, summary.Results[0].IsCorrect)
	assert.Equal(t, int64(30_000), summary.Results[0].ResponseTimeMs)
}

func TestOrchestrator_AnomalousAttemptAttenuatesPoints(t *testing.T) {
	h := newHarness(t, 1, anticheat.DefaultLimiterConfig())

	assert.NoError(t, h.orch.Start())

	// Answering instantly trips the too-fast heuristic. The answer stays
	// correct but earns points scaled by the adjusted score.
	res, err := h.orch.SubmitAnswer(puzzle.Number(0))
	assert.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Contains(t, res.Violations, anticheat.ViolationTooFast)
	assert.Equal(t, shared.Score(80), res.AdjustedScore)

	// Raw points would be 135 with the full 30s remaining.
	assert.Equal(t, 108, res.Points)
	assert.False(t, res.SessionTerminated)

	assert.Len(t, h.bus.ofType(shared.EventViolationFlagged), 1)
}

func TestOrchestrator_LimiterRejection(t *testing.T) {
	h := newHarness(t, 2, anticheat.LimiterConfig{MaxAttempts: 1, Window: time.Minute})

	assert.NoError(t, h.orch.Start())
	h.clock.Advance(5 * time.Second)

	_, err := h.orch.SubmitAnswer(puzzle.Number(0))
	assert.NoError(t, err)

	h.clock.Advance(2 * time.Second)
	h.clock.Advance(5 * time.Second)

	_, err = h.orch.SubmitAnswer(puzzle.Number(1))
	assert.ErrorIs(t, err, shared.ErrAttemptRateLimited)
}

func TestOrchestrator_DoubleSubmitRejected(t *testing.T) {
	h := newHarness(t, 2, anticheat.DefaultLimiterConfig())

	assert.NoError(t, h.orch.Start())
	h.clock.Advance(5 * time.Second)

	_, err := h.orch.SubmitAnswer(puzzle.Number(0))
	assert.NoError(t, err)

	// The session sits in feedback; a second submit for the same puzzle
	// is rejected.
	_, err = h.orch.SubmitAnswer(puzzle.Number(0))
	assert.ErrorIs(t, err, shared.ErrSessionNotActive)
}

func TestOrchestrator_ViolationThresholdTerminates(t *testing.T) {
	h := newHarness(t, 1, anticheat.DefaultLimiterConfig())

	assert.NoError(t, h.orch.Start())

	assert.False(t, h.orch.RecordViolations("a", "b", "c", "d"))
	assert.Equal(t, session.StateActive, h.orch.Session().State())

	assert.True(t, h.orch.RecordViolations("e"))
	assert.Equal(t, session.StateTerminated, h.orch.Session().State())

	assert.Len(t, h.bus.ofType(shared.EventSessionTerminated), 1)
	assert.Len(t, h.bus.ofType(shared.EventViolationFlagged), 5)

	// No progress is recorded for a terminated session.
	assert.Equal(t, 0, h.progress.calls)

	_, err := h.orch.SubmitAnswer(puzzle.Number(0))
	assert.Error(t, err)
}

func TestOrchestrator_RecordViolationsOnTerminalSessionIsNoop(t *testing.T) {
	h := newHarness(t, 1, anticheat.DefaultLimiterConfig())

	assert.NoError(t, h.orch.Start())
	h.orch.Abandon()

	assert.False(t, h.orch.RecordViolations("a"))
	assert.Empty(t, h.bus.ofType(shared.EventViolationFlagged))
}

func TestOrchestrator_PauseFreezesCountdown(t *testing.T) {
	h := newHarness(t, 1, anticheat.DefaultLimiterConfig())

	assert.NoError(t, h.orch.Start())
	h.clock.Advance(2 * time.Second)
	assert.Equal(t, 28, h.orch.Session().TimeLeft())

	assert.NoError(t, h.orch.Pause())
	h.clock.Advance(10 * time.Minute)
	assert.Equal(t, session.StatePaused, h.orch.Session().State())
	assert.Equal(t, 28, h.orch.Session().TimeLeft())

	assert.NoError(t, h.orch.Resume())
	h.clock.Advance(time.Second)
	assert.Equal(t, 27, h.orch.Session().TimeLeft())
}

func TestOrchestrator_SkipRecordsTimeout(t *testing.T) {
	h := newHarness(t, 2, anticheat.DefaultLimiterConfig())

	assert.NoError(t, h.orch.Start())
	assert.NoError(t, h.orch.Skip())

	h.clock.Advance(2 * time.Second)
	assert.Equal(t, session.StateActive, h.orch.Session().State())

	p, ok := h.orch.Session().CurrentPuzzle()
	assert.True(t, ok)
	assert.Equal(t, "p-1", p.ID)
}

func TestOrchestrator_AbandonSkipsProgressUpdate(t *testing.T) {
	h := newHarness(t, 2, anticheat.DefaultLimiterConfig())

	assert.NoError(t, h.orch.Start())
	h.clock.Advance(3 * time.Second)
	h.orch.Abandon()

	assert.Equal(t, session.StateAbandoned, h.orch.Session().State())
	assert.Equal(t, 0, h.progress.calls)

	// Stopped timers stay stopped: advancing time changes nothing.
	h.clock.Advance(time.Minute)
	assert.Equal(t, session.StateAbandoned, h.orch.Session().State())
}

func TestOrchestrator_ProgressFailureDoesNotBlockCompletion(t *testing.T) {
	h := newHarness(t, 1, anticheat.DefaultLimiterConfig())
	h.progress.err = fmt.Errorf("database down")

	assert.NoError(t, h.orch.Start())
	h.clock.Advance(5 * time.Second)
	_, err := h.orch.SubmitAnswer(puzzle.Number(0))
	assert.NoError(t, err)

	h.clock.Advance(2 * time.Second)
	assert.Equal(t, session.StateCompleted, h.orch.Session().State())

	// The completion event is still published.
	assert.Len(t, h.bus.ofType(shared.EventSessionCompleted), 1)
	assert.Empty(t, h.bus.ofType(shared.EventXPGained))
}

func TestRegistry_TracksLiveSessions(t *testing.T) {
	h := newHarness(t, 1, anticheat.DefaultLimiterConfig())
	r := NewRegistry()

	r.Register(h.orch)

	got, ok := r.BySession(h.orch.Session().ID())
	assert.True(t, ok)
	assert.Equal(t, h.orch, got)

	got, ok = r.ByUser(testUserID)
	assert.True(t, ok)
	assert.Equal(t, h.orch, got)

	assert.Len(t, r.Live(), 1)
}

func TestRegistry_RemovesFinishedSessions(t *testing.T) {
	h := newHarness(t, 1, anticheat.DefaultLimiterConfig())
	r := NewRegistry()

	r.Register(h.orch)
	assert.NoError(t, h.orch.Start())
	h.orch.Abandon()

	_, ok := r.BySession(h.orch.Session().ID())
	assert.False(t, ok)
	_, ok = r.ByUser(testUserID)
	assert.False(t, ok)
	assert.Empty(t, r.Live())
}

func TestRegistry_NewSessionReplacesUserEntry(t *testing.T) {
	first := newHarness(t, 1, anticheat.DefaultLimiterConfig())
	second := newHarness(t, 1, anticheat.DefaultLimiterConfig())
	r := NewRegistry()

	r.Register(first.orch)
	r.Register(second.orch)

	got, ok := r.ByUser(testUserID)
	assert.True(t, ok)
	assert.Equal(t, second.orch, got)

	// Finishing the replaced session must not evict the newer one.
	first.orch.Abandon()
	got, ok = r.ByUser(testUserID)
	assert.True(t, ok)
	assert.Equal(t, second.orch, got)
}
