package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
	"github.com/cogniquest/cogniquest-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK REMINDER JOB
// ══════════════════════════════════════════════════════════════════════════════

// StreakRecord is one user's streak standing as read from storage.
type StreakRecord struct {
	UserID       shared.UserID
	Streak       int
	LastPlayDate string
}

// StreakSource lists users with an active streak.
type StreakSource interface {
	ActiveStreaks(ctx context.Context) ([]StreakRecord, error)
}

// StreakNotifier delivers the reminder.
type StreakNotifier interface {
	Notify(userID shared.UserID, kind, message string)
}

// StreakReminderJob runs in the evening and reminds users who have an
// active streak but have not played today. A streak resets to 1 on the
// next session after a missed day, so the reminder is the last chance
// to keep it.
type StreakReminderJob struct {
	source   StreakSource
	notifier StreakNotifier
	clock    timeutil.Clock
	logger   *slog.Logger
	config   StreakReminderConfig
}

// StreakReminderConfig contains configuration for the reminder job.
type StreakReminderConfig struct {
	// MinStreak is the smallest streak worth reminding about.
	MinStreak int

	// Timeout is the maximum duration for one reminder pass.
	Timeout time.Duration
}

// DefaultStreakReminderConfig returns sensible defaults.
func DefaultStreakReminderConfig() StreakReminderConfig {
	return StreakReminderConfig{
		MinStreak: 2,
		Timeout:   2 * time.Minute,
	}
}

// NewStreakReminderJob creates a new StreakReminderJob.
func NewStreakReminderJob(
	source StreakSource,
	notifier StreakNotifier,
	clock timeutil.Clock,
	logger *slog.Logger,
	config StreakReminderConfig,
) *StreakReminderJob {
	if clock == nil {
		clock = timeutil.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreakReminderJob{
		source:   source,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
		config:   config,
	}
}

// Name returns the unique name of the job.
func (j *StreakReminderJob) Name() string {
	return "streak_reminder"
}

// Description returns a human-readable description of the job.
func (j *StreakReminderJob) Description() string {
	return "Reminds users with an active streak who have not played today"
}

// Run executes the job.
func (j *StreakReminderJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	records, err := j.source.ActiveStreaks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active streaks: %w", err)
	}

	today := timeutil.DateString(j.clock.Now())
	reminded := 0

	for _, rec := range records {
		if rec.Streak < j.config.MinStreak || rec.LastPlayDate == today {
			continue
		}

		message := fmt.Sprintf("Your %d-day streak ends at midnight. Solve one puzzle to keep it going!", rec.Streak)
		j.notifier.Notify(rec.UserID, "streak_reminder", message)
		reminded++
	}

	j.logger.Info("streak reminder job completed",
		"candidates", len(records),
		"reminded", reminded,
	)
	return nil
}
