package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/cogniquest/cogniquest-engine/internal/application/orchestrator"
	"github.com/cogniquest/cogniquest-engine/internal/domain/anticheat"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCAN PATTERNS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ScanPatternsJob runs the long-horizon cheating pattern scan over every
// user the detector is tracking. Per-attempt checks run inline during
// gameplay; the pattern scan looks across whole attempt histories
// (perfect-score runs, synchronized timestamps) and is too broad to run
// on the hot path.
type ScanPatternsJob struct {
	detector *anticheat.Detector
	registry *orchestrator.Registry
	events   shared.EventPublisher
	logger   *slog.Logger
	config   ScanPatternsConfig
}

// ScanPatternsConfig contains configuration for the pattern scan job.
type ScanPatternsConfig struct {
	// Timeout is the maximum duration for one scan pass.
	Timeout time.Duration
}

// DefaultScanPatternsConfig returns sensible defaults.
func DefaultScanPatternsConfig() ScanPatternsConfig {
	return ScanPatternsConfig{
		Timeout: 1 * time.Minute,
	}
}

// NewScanPatternsJob creates a new ScanPatternsJob.
func NewScanPatternsJob(
	detector *anticheat.Detector,
	registry *orchestrator.Registry,
	events shared.EventPublisher,
	logger *slog.Logger,
	config ScanPatternsConfig,
) *ScanPatternsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanPatternsJob{
		detector: detector,
		registry: registry,
		events:   events,
		logger:   logger,
		config:   config,
	}
}

// Name returns the unique name of the job.
func (j *ScanPatternsJob) Name() string {
	return "scan_patterns"
}

// Description returns a human-readable description of the job.
func (j *ScanPatternsJob) Description() string {
	return "Scans attempt histories for suspicious cheating patterns"
}

// Run executes the job.
func (j *ScanPatternsJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	users := j.detector.TrackedUsers()
	flagged := 0

	for _, userID := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		patterns := j.detector.DetectCheatingPatterns(userID)
		if len(patterns) == 0 {
			continue
		}
		flagged++

		j.logger.Warn("cheating patterns detected",
			"user_id", userID.String(),
			"patterns", patterns,
		)

		if j.events != nil {
			event := shared.NewPatternDetectedEvent(userID.String(), patterns)
			if err := j.events.Publish(event); err != nil {
				j.logger.Error("failed to publish pattern event",
					"user_id", userID.String(),
					"error", err,
				)
			}
		}

		// If the user is mid-session, feed the patterns into the
		// session's violation count so repeat offenders terminate.
		if orch, ok := j.registry.ByUser(userID); ok {
			if terminated := orch.RecordViolations(patterns...); terminated {
				j.logger.Warn("session terminated by pattern scan",
					"user_id", userID.String(),
				)
			}
		}
	}

	j.logger.Info("pattern scan completed",
		"scanned", len(users),
		"flagged", flagged,
	)
	return nil
}
