package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cogniquest/cogniquest-engine/internal/domain/puzzle"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

const testUserID = shared.UserID("6a1b9c3d-2e4f-4a5b-8c7d-9e0f1a2b3c4d")
const testCategory = shared.CategoryID("logical-reasoning")

var startTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func makePuzzles(n int) []*puzzle.Puzzle {
	puzzles := make([]*puzzle.Puzzle, n)
	for i := range puzzles {
		puzzles[i] = &puzzle.Puzzle{
			ID:         fmt.Sprintf("p-%d", i),
			CategoryID: testCategory,
			Kind:       puzzle.KindLogic,
			Level:      1,
			Difficulty: shared.Difficulty(5),
			TimeLimit:  30,
			Solution:   puzzle.Number(float64(i)),
		}
	}
	return puzzles
}

func TestNew_RequiresPuzzles(t *testing.T) {
	_, err := New(testUserID, testCategory, 1, nil)
	assert.ErrorIs(t, err, shared.ErrNoPuzzles)
}

func TestNew_TruncatesOversizedPool(t *testing.T) {
	s, err := New(testUserID, testCategory, 1, makePuzzles(35))
	assert.NoError(t, err)
	assert.Equal(t, MaxSessionPuzzles, s.Summary().Total)
}

func TestStart_OnlyFromLoading(t *testing.T) {
	s, err := New(testUserID, testCategory, 1, makePuzzles(2))
	assert.NoError(t, err)
	assert.Equal(t, StateLoading, s.State())

	assert.NoError(t, s.Start(startTime))
	assert.Equal(t, StateActive, s.State())
	assert.Equal(t, 30, s.TimeLeft())

	assert.ErrorIs(t, s.Start(startTime), shared.ErrSessionNotActive)
}

func TestAnswerFlow(t *testing.T) {
	s, _ := New(testUserID, testCategory, 1, makePuzzles(2))
	assert.NoError(t, s.Start(startTime))

	p, ok := s.CurrentPuzzle()
	assert.True(t, ok)
	assert.Equal(t, "p-0", p.ID)

	err := s.RecordAnswer(puzzle.AttemptResult{PuzzleID: p.ID, IsCorrect: true, Points: 85})
	assert.NoError(t, err)
	assert.Equal(t, StateAnswered, s.State())

	// A second answer for the same puzzle is rejected.
	err = s.RecordAnswer(puzzle.AttemptResult{PuzzleID: p.ID, IsCorrect: true})
	assert.ErrorIs(t, err, shared.ErrSessionNotActive)

	finished, err := s.Advance(startTime.Add(10 * time.Second))
	assert.NoError(t, err)
	assert.False(t, finished)
	assert.Equal(t, StateActive, s.State())

	p, ok = s.CurrentPuzzle()
	assert.True(t, ok)
	assert.Equal(t, "p-1", p.ID)

	assert.NoError(t, s.RecordAnswer(puzzle.AttemptResult{PuzzleID: p.ID, IsCorrect: false}))
	finished, err = s.Advance(startTime.Add(30 * time.Second))
	assert.NoError(t, err)
	assert.True(t, finished)
	assert.Equal(t, StateCompleted, s.State())
}

func TestAdvance_OnlyAfterAnswer(t *testing.T) {
	s, _ := New(testUserID, testCategory, 1, makePuzzles(2))
	assert.NoError(t, s.Start(startTime))

	_, err := s.Advance(startTime)
	assert.ErrorIs(t, err, shared.ErrSessionNotActive)
}

func TestTick_CountsDownToTimeout(t *testing.T) {
	s, _ := New(testUserID, testCategory, 1, makePuzzles(1))
	assert.NoError(t, s.Start(startTime))

	for i := 0; i < 29; i++ {
		assert.False(t, s.Tick())
	}
	assert.True(t, s.Tick())
	assert.Equal(t, 0, s.TimeLeft())
}

func TestRecordTimeout_CountsAsWrongAnswerAtFullLimit(t *testing.T) {
	s, _ := New(testUserID, testCategory, 1, makePuzzles(1))
	assert.NoError(t, s.Start(startTime))

	assert.NoError(t, s.RecordTimeout())
	assert.Equal(t, StateAnswered, s.State())

	finished, err := s.Advance(startTime.Add(30 * time.Second))
	assert.NoError(t, err)
	assert.True(t, finished)

	summary := s.Summary()
	assert.Len(t, summary.Results, 1)
	assert.False(t, summary.Results[0].IsCorrect)
	assert.Equal(t, int64(30_000), summary.Results[0].ResponseTimeMs)
	assert.Equal(t, 0, summary.Results[0].Points)
}

func TestSkip_EquivalentToTimeout(t *testing.T) {
	s, _ := New(testUserID, testCategory, 1, makePuzzles(2))
	assert.NoError(t, s.Start(startTime))

	assert.NoError(t, s.Skip())
	assert.Equal(t, StateAnswered, s.State())

	// Skipping an already answered puzzle is rejected.
	assert.ErrorIs(t, s.Skip(), shared.ErrSessionNotActive)
}

func TestPauseResume(t *testing.T) {
	s, _ := New(testUserID, testCategory, 1, makePuzzles(1))

	// Pause is only valid while active.
	assert.ErrorIs(t, s.Pause(), shared.ErrSessionNotActive)

	assert.NoError(t, s.Start(startTime))
	s.Tick()
	assert.NoError(t, s.Pause())
	assert.Equal(t, StatePaused, s.State())

	// The countdown is frozen while paused.
	assert.False(t, s.Tick())
	assert.Equal(t, 29, s.TimeLeft())

	assert.NoError(t, s.Resume())
	assert.Equal(t, StateActive, s.State())
	assert.Equal(t, 29, s.TimeLeft())

	assert.ErrorIs(t, s.Resume(), shared.ErrSessionNotActive)
}

func TestAbandon(t *testing.T) {
	s, _ := New(testUserID, testCategory, 1, makePuzzles(2))
	assert.NoError(t, s.Start(startTime))

	s.Abandon(startTime.Add(time.Minute))
	assert.Equal(t, StateAbandoned, s.State())

	// Terminal states are final.
	s.Terminate(startTime.Add(2 * time.Minute))
	assert.Equal(t, StateAbandoned, s.State())

	_, ok := s.CurrentPuzzle()
	assert.False(t, ok)
}

func TestTerminate(t *testing.T) {
	s, _ := New(testUserID, testCategory, 1, makePuzzles(2))
	assert.NoError(t, s.Start(startTime))

	s.Terminate(startTime.Add(time.Minute))
	assert.Equal(t, StateTerminated, s.State())
	assert.True(t, s.State().IsTerminal())
}

func TestSummary_ScoreUsesFullPuzzleCount(t *testing.T) {
	s, _ := New(testUserID, testCategory, 1, makePuzzles(4))
	assert.NoError(t, s.Start(startTime))

	p, _ := s.CurrentPuzzle()
	assert.NoError(t, s.RecordAnswer(puzzle.AttemptResult{PuzzleID: p.ID, IsCorrect: true, Points: 100}))

	// Abandoning forfeits the remaining three puzzles.
	s.Abandon(startTime.Add(45 * time.Second))

	summary := s.Summary()
	assert.Equal(t, shared.Score(25), summary.Score)
	assert.Equal(t, 1, summary.Correct)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 100, summary.TotalPoints)
	assert.Equal(t, 45, summary.TotalTimeSec)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "terminated", StateTerminated.String())
	assert.Equal(t, "unknown", State(99).String())
}
