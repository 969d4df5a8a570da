// Package orchestrator drives live game sessions: puzzle sequencing,
// per-puzzle countdowns, answer scoring, anomaly screening, and the final
// progress update.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/cogniquest/cogniquest-engine/internal/domain/anticheat"
	"github.com/cogniquest/cogniquest-engine/internal/domain/progress"
	"github.com/cogniquest/cogniquest-engine/internal/domain/puzzle"
	"github.com/cogniquest/cogniquest-engine/internal/domain/session"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
	"github.com/cogniquest/cogniquest-engine/pkg/logger"
	"github.com/cogniquest/cogniquest-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION ORCHESTRATOR
// ══════════════════════════════════════════════════════════════════════════════

const (
	// tickInterval is the countdown resolution.
	tickInterval = time.Second

	// feedbackDelay is how long answer feedback stays on screen before
	// the session auto-advances to the next puzzle.
	feedbackDelay = 2000 * time.Millisecond
)

// ProgressUpdater applies a finished session to the user's durable progress.
type ProgressUpdater interface {
	UpdateProgress(ctx context.Context, userID shared.UserID, categoryID shared.CategoryID, level int, score shared.Score, timeSpentSec int) (progress.UpdateResult, error)
}

// Notifier surfaces violation and feedback toasts. Calls are fire-and-forget;
// the orchestrator never blocks on or fails because of a notification.
type Notifier interface {
	Notify(userID shared.UserID, kind, message string)
}

// SubmitResult is returned to the caller after an answer is processed.
type SubmitResult struct {
	// IsCorrect is the verdict of the answer check.
	IsCorrect bool

	// Points awarded for this answer, after anomaly attenuation.
	Points int

	// AdjustedScore is the anomaly detector's 0-100 confidence score.
	AdjustedScore shared.Score

	// Violations lists heuristics that flagged this attempt.
	Violations []string

	// Explanation is shown during the feedback phase.
	Explanation string

	// SessionTerminated is set when this attempt pushed the session over
	// the violation threshold.
	SessionTerminated bool
}

// Orchestrator owns one live session. All timer callbacks and API calls are
// serialized through a single mutex, so session state never races.
type Orchestrator struct {
	mu sync.Mutex

	sess     *session.Session
	clock    timeutil.Clock
	log      *logger.Logger
	detector *anticheat.Detector
	limiter  *anticheat.AttemptLimiter
	monitor  *anticheat.ViolationMonitor
	progress ProgressUpdater
	events   shared.EventPublisher
	notifier Notifier

	tickTimer     timeutil.Timer
	feedbackTimer timeutil.Timer

	// onFinish is called once, after the session reaches a terminal state.
	onFinish func(*Orchestrator)
}

// Config bundles the orchestrator's collaborators.
type Config struct {
	Clock    timeutil.Clock
	Logger   *logger.Logger
	Detector *anticheat.Detector
	Limiter  *anticheat.AttemptLimiter
	Progress ProgressUpdater
	Events   shared.EventPublisher
	Notifier Notifier
}

// New creates an orchestrator for a loaded session.
func New(sess *session.Session, cfg Config) *Orchestrator {
	return &Orchestrator{
		sess:     sess,
		clock:    cfg.Clock,
		log:      cfg.Logger.With(logger.Component("orchestrator"), logger.SessionID(sess.ID())),
		detector: cfg.Detector,
		limiter:  cfg.Limiter,
		monitor:  anticheat.NewViolationMonitor(),
		progress: cfg.Progress,
		events:   cfg.Events,
		notifier: cfg.Notifier,
	}
}

// Session returns the underlying session.
func (o *Orchestrator) Session() *session.Session {
	return o.sess
}

// SetOnFinish registers a callback invoked once when the session ends.
// Must be called before Start.
func (o *Orchestrator) SetOnFinish(fn func(*Orchestrator)) {
	o.onFinish = fn
}

// Start begins the session: first puzzle becomes active, countdown starts.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.sess.Start(o.clock.Now()); err != nil {
		return err
	}

	o.log.Info("session started",
		logger.UserID(o.sess.UserID().String()),
		logger.Category(o.sess.CategoryID().String()),
	)
	o.scheduleTickLocked()
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Countdown
// ──────────────────────────────────────────────────────────────────────────────

func (o *Orchestrator) scheduleTickLocked() {
	o.tickTimer = o.clock.AfterFunc(tickInterval, o.onTick)
}

func (o *Orchestrator) stopTimersLocked() {
	if o.tickTimer != nil {
		o.tickTimer.Stop()
		o.tickTimer = nil
	}
	if o.feedbackTimer != nil {
		o.feedbackTimer.Stop()
		o.feedbackTimer = nil
	}
}

func (o *Orchestrator) onTick() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sess.State() != session.StateActive {
		return
	}

	if o.sess.Tick() {
		// Time ran out: record as an incorrect answer with the full
		// time limit as response time, same as an explicit skip.
		if err := o.sess.RecordTimeout(); err == nil {
			o.log.Debug("puzzle timed out", logger.UserID(o.sess.UserID().String()))
			o.scheduleFeedbackLocked()
		}
		return
	}

	o.scheduleTickLocked()
}

// ──────────────────────────────────────────────────────────────────────────────
// Player actions
// ──────────────────────────────────────────────────────────────────────────────

// SubmitAnswer checks the answer, scores it, screens it for anomalies, and
// records the result. A second submit for the same puzzle is a no-op error.
func (o *Orchestrator) SubmitAnswer(answer puzzle.Answer) (SubmitResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.clock.Now()
	userID := o.sess.UserID()

	if err := o.limiter.Allow(userID, now); err != nil {
		if terminated := o.recordViolationsLocked(now, anticheat.ViolationRapidAttempts); terminated {
			return SubmitResult{SessionTerminated: true}, err
		}
		return SubmitResult{}, err
	}

	p, ok := o.sess.CurrentPuzzle()
	if !ok {
		return SubmitResult{}, shared.ErrSessionNotActive
	}

	timeLeft := o.sess.TimeLeft()
	responseTimeMs := int64(p.TimeLimit-timeLeft) * 1000

	isCorrect := puzzle.CheckAnswer(answer, p.Solution)
	points := puzzle.CalculatePoints(isCorrect, responseTimeMs, p.Difficulty, float64(timeLeft))

	verdict := o.detector.ValidateAttempt(anticheat.Attempt{
		UserID:         userID,
		PuzzleID:       p.ID,
		ResponseTimeMs: responseTimeMs,
		Timestamp:      now,
	})

	// Anomalous attempts keep their correctness but earn attenuated points.
	if !verdict.IsValid {
		points = points * verdict.AdjustedScore.Int() / 100
	}

	if err := o.sess.RecordAnswer(puzzle.AttemptResult{
		PuzzleID:       p.ID,
		IsCorrect:      isCorrect,
		ResponseTimeMs: responseTimeMs,
		Points:         points,
	}); err != nil {
		return SubmitResult{}, err
	}

	result := SubmitResult{
		IsCorrect:     isCorrect,
		Points:        points,
		AdjustedScore: verdict.AdjustedScore,
		Violations:    verdict.Violations,
		Explanation:   p.Explanation,
	}

	if len(verdict.Violations) > 0 {
		for _, v := range verdict.Violations {
			_ = o.events.Publish(shared.NewViolationFlaggedEvent(
				userID.String(), o.sess.ID(), v, verdict.AdjustedScore.Int(),
			))
		}
		if o.recordViolationsLocked(now, verdict.Violations...) {
			result.SessionTerminated = true
			return result, nil
		}
	}

	o.scheduleFeedbackLocked()
	return result, nil
}

// Skip forfeits the current puzzle, recording it exactly like a timeout.
func (o *Orchestrator) Skip() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.sess.Skip(); err != nil {
		return err
	}
	o.scheduleFeedbackLocked()
	return nil
}

// Pause freezes the countdown. Elapsed pause time carries no penalty.
func (o *Orchestrator) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.sess.Pause(); err != nil {
		return err
	}
	if o.tickTimer != nil {
		o.tickTimer.Stop()
		o.tickTimer = nil
	}
	return nil
}

// Resume restarts the countdown exactly where Pause left it.
func (o *Orchestrator) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.sess.Resume(); err != nil {
		return err
	}
	o.scheduleTickLocked()
	return nil
}

// Abandon closes the session without updating progress.
func (o *Orchestrator) Abandon() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopTimersLocked()
	o.sess.Abandon(o.clock.Now())
	o.log.Info("session abandoned", logger.UserID(o.sess.UserID().String()))
	o.finishLocked()
}

// RecordViolations feeds externally detected violations (pattern scans)
// into this session's violation budget.
func (o *Orchestrator) RecordViolations(reasons ...string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(reasons) == 0 || o.sess.State().IsTerminal() {
		return false
	}

	for _, r := range reasons {
		_ = o.events.Publish(shared.NewViolationFlaggedEvent(
			o.sess.UserID().String(), o.sess.ID(), r, 0,
		))
	}
	return o.recordViolationsLocked(o.clock.Now(), reasons...)
}

// ──────────────────────────────────────────────────────────────────────────────
// Feedback and completion
// ──────────────────────────────────────────────────────────────────────────────

func (o *Orchestrator) scheduleFeedbackLocked() {
	if o.tickTimer != nil {
		o.tickTimer.Stop()
		o.tickTimer = nil
	}
	o.feedbackTimer = o.clock.AfterFunc(feedbackDelay, o.onFeedbackElapsed)
}

func (o *Orchestrator) onFeedbackElapsed() {
	o.mu.Lock()
	defer o.mu.Unlock()

	finished, err := o.sess.Advance(o.clock.Now())
	if err != nil {
		return
	}

	if finished {
		o.completeLocked()
		return
	}
	o.scheduleTickLocked()
}

// completeLocked finalizes a fully played session: computes the summary,
// applies it to the progression ledger, and publishes the resulting events.
// Persistence failures are logged, never surfaced to the player.
func (o *Orchestrator) completeLocked() {
	summary := o.sess.Summary()
	userID := summary.UserID

	o.log.Info("session completed",
		logger.UserID(userID.String()),
		logger.Category(summary.CategoryID.String()),
		logger.Score(summary.Score.Int()),
		logger.Int("correct", summary.Correct),
		logger.Int("total", summary.Total),
	)

	res, err := o.progress.UpdateProgress(
		context.Background(),
		userID, summary.CategoryID, summary.Level,
		summary.Score, summary.TotalTimeSec,
	)
	if err != nil {
		o.log.Error("progress update failed", logger.Err(err), logger.UserID(userID.String()))
	} else {
		o.publishProgressEventsLocked(summary, res)
	}

	_ = o.events.Publish(shared.NewSessionCompletedEvent(
		userID.String(), summary.SessionID, summary.CategoryID.String(),
		summary.Score.Int(), summary.Correct, summary.Total, summary.TotalTimeSec,
	))

	o.finishLocked()
}

func (o *Orchestrator) publishProgressEventsLocked(summary session.Summary, res progress.UpdateResult) {
	userID := summary.UserID.String()
	categoryID := summary.CategoryID.String()

	if res.XPGained > 0 {
		_ = o.events.Publish(shared.NewXPGainedEvent(userID, categoryID, res.XPGained, res.NewTotalXP))
	}
	if res.LeveledUp {
		_ = o.events.Publish(shared.NewLevelUpEvent(userID, res.OldLevel, res.NewLevel, res.NewTotalXP))
	}
	if res.StreakChanged {
		_ = o.events.Publish(shared.NewStreakUpdatedEvent(userID, res.OldStreak, res.NewStreak))
	}
	if res.CategoryLeveledUp {
		_ = o.events.Publish(shared.NewCategoryLevelUpEvent(userID, categoryID, res.CategoryLevel))
	}
	for _, unlocked := range res.Unlocked {
		_ = o.events.Publish(shared.NewCategoryUnlockedEvent(userID, unlocked.String()))
	}
}

// recordViolationsLocked accumulates violations and force-terminates the
// session once the budget is exhausted. Reports whether it terminated.
func (o *Orchestrator) recordViolationsLocked(now time.Time, reasons ...string) bool {
	if !o.monitor.Record(reasons...) {
		return false
	}

	o.stopTimersLocked()
	o.sess.Terminate(now)

	o.log.Warn("session terminated for violations",
		logger.UserID(o.sess.UserID().String()),
		logger.Int("violations", o.monitor.Count()),
	)

	_ = o.events.Publish(shared.NewSessionTerminatedEvent(
		o.sess.UserID().String(), o.sess.ID(), o.monitor.Violations(),
	))

	o.finishLocked()
	return true
}

func (o *Orchestrator) finishLocked() {
	o.stopTimersLocked()
	if o.onFinish != nil {
		fn := o.onFinish
		o.onFinish = nil
		fn(o)
	}
}
