package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cogniquest/cogniquest-engine/internal/application/orchestrator"
	"github.com/cogniquest/cogniquest-engine/internal/domain/anticheat"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
	"github.com/cogniquest/cogniquest-engine/pkg/timeutil"
)

const testUserID = shared.UserID("5e1f2a3b-4c5d-4e6f-8a7b-8c9d0e1f2a3b")

var reminderTime = time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ──────────────────────────────────────────────────────────────────────────────
// Flush progress job
// ──────────────────────────────────────────────────────────────────────────────

type fakeFlusher struct {
	dirty   int
	flushes int
}

func (f *fakeFlusher) Flush(_ context.Context) int {
	f.flushes++
	flushed := f.dirty
	f.dirty = 0
	return flushed
}

func (f *fakeFlusher) DirtyCount() int {
	return f.dirty
}

func TestFlushProgressJob_FlushesDirtyState(t *testing.T) {
	flusher := &fakeFlusher{dirty: 3}
	job := NewFlushProgressJob(flusher, discardLogger(), DefaultFlushProgressConfig())

	assert.Equal(t, "flush_progress", job.Name())
	assert.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, flusher.flushes)
	assert.Equal(t, 0, flusher.dirty)
}

func TestFlushProgressJob_SkipsWhenClean(t *testing.T) {
	flusher := &fakeFlusher{}
	job := NewFlushProgressJob(flusher, discardLogger(), DefaultFlushProgressConfig())

	assert.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 0, flusher.flushes)
}

// ──────────────────────────────────────────────────────────────────────────────
// Streak reminder job
// ──────────────────────────────────────────────────────────────────────────────

type fakeStreakSource struct {
	records []StreakRecord
	err     error
}

func (s *fakeStreakSource) ActiveStreaks(_ context.Context) ([]StreakRecord, error) {
	return s.records, s.err
}

type recordingNotifier struct {
	mu    sync.Mutex
	users []shared.UserID
	kinds []string
}

func (n *recordingNotifier) Notify(userID shared.UserID, kind, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userID)
	n.kinds = append(n.kinds, kind)
}

func TestStreakReminderJob_RemindsAtRiskUsers(t *testing.T) {
	playedToday := shared.UserID("11111111-2222-4333-8444-555555555555")
	shortStreak := shared.UserID("66666666-7777-4888-9999-aaaaaaaaaaaa")

	source := &fakeStreakSource{records: []StreakRecord{
		{UserID: testUserID, Streak: 5, LastPlayDate: "2024-03-09"},
		{UserID: playedToday, Streak: 8, LastPlayDate: "2024-03-10"},
		{UserID: shortStreak, Streak: 1, LastPlayDate: "2024-03-09"},
	}}
	notifier := &recordingNotifier{}
	clock := timeutil.NewFakeClock(reminderTime)

	job := NewStreakReminderJob(source, notifier, clock, discardLogger(), DefaultStreakReminderConfig())

	assert.Equal(t, "streak_reminder", job.Name())
	assert.NoError(t, job.Run(context.Background()))

	// Only the user with a streak worth keeping who has not played today.
	assert.Equal(t, []shared.UserID{testUserID}, notifier.users)
	assert.Equal(t, []string{"streak_reminder"}, notifier.kinds)
}

func TestStreakReminderJob_SourceFailure(t *testing.T) {
	source := &fakeStreakSource{err: errors.New("database down")}
	job := NewStreakReminderJob(source, &recordingNotifier{}, timeutil.NewFakeClock(reminderTime), discardLogger(), DefaultStreakReminderConfig())

	assert.Error(t, job.Run(context.Background()))
}

func TestStreakReminderJob_NoCandidates(t *testing.T) {
	source := &fakeStreakSource{}
	notifier := &recordingNotifier{}
	job := NewStreakReminderJob(source, notifier, timeutil.NewFakeClock(reminderTime), discardLogger(), DefaultStreakReminderConfig())

	assert.NoError(t, job.Run(context.Background()))
	assert.Empty(t, notifier.users)
}

// ──────────────────────────────────────────────────────────────────────────────
// Pattern scan job
// ──────────────────────────────────────────────────────────────────────────────

type capturingBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (b *capturingBus) Publish(event shared.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func TestScanPatternsJob_PublishesDetectedPatterns(t *testing.T) {
	detector := anticheat.NewDetector()

	// Four attempts rounding to the same second form a timing pattern.
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		detector.ValidateAttempt(anticheat.Attempt{
			UserID:         testUserID,
			PuzzleID:       "p-1",
			ResponseTimeMs: 10_000,
			Timestamp:      base.Add(time.Duration(i) * 100 * time.Millisecond),
		})
	}

	bus := &capturingBus{}
	job := NewScanPatternsJob(detector, orchestrator.NewRegistry(), bus, discardLogger(), DefaultScanPatternsConfig())

	assert.Equal(t, "scan_patterns", job.Name())
	assert.NoError(t, job.Run(context.Background()))

	assert.Len(t, bus.events, 1)
	assert.Equal(t, shared.EventPatternDetected, bus.events[0].EventType())
}

func TestScanPatternsJob_CleanHistoriesStayQuiet(t *testing.T) {
	detector := anticheat.NewDetector()
	detector.ValidateAttempt(anticheat.Attempt{
		UserID:         testUserID,
		PuzzleID:       "p-1",
		ResponseTimeMs: 10_000,
		Timestamp:      time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	})

	bus := &capturingBus{}
	job := NewScanPatternsJob(detector, orchestrator.NewRegistry(), bus, discardLogger(), DefaultScanPatternsConfig())

	assert.NoError(t, job.Run(context.Background()))
	assert.Empty(t, bus.events)
}
