// Package jobs contains implementations of scheduled jobs for the
// CogniQuest engine.
package jobs

import (
	"context"
	"log/slog"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// FLUSH PROGRESS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ProgressFlusher is implemented by the write-behind progress store.
type ProgressFlusher interface {
	Flush(ctx context.Context) int
	DirtyCount() int
}

// FlushProgressJob periodically forces a flush of dirty progress
// ledgers. The store already debounces its own flushes; this job is a
// safety net so state dirtied right before a quiet period still reaches
// PostgreSQL within a bounded interval.
type FlushProgressJob struct {
	store  ProgressFlusher
	logger *slog.Logger
	config FlushProgressConfig
}

// FlushProgressConfig contains configuration for the flush job.
type FlushProgressConfig struct {
	// Timeout is the maximum duration for one flush pass.
	Timeout time.Duration
}

// DefaultFlushProgressConfig returns sensible defaults.
func DefaultFlushProgressConfig() FlushProgressConfig {
	return FlushProgressConfig{
		Timeout: 30 * time.Second,
	}
}

// NewFlushProgressJob creates a new FlushProgressJob.
func NewFlushProgressJob(store ProgressFlusher, logger *slog.Logger, config FlushProgressConfig) *FlushProgressJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlushProgressJob{
		store:  store,
		logger: logger,
		config: config,
	}
}

// Name returns the unique name of the job.
func (j *FlushProgressJob) Name() string {
	return "flush_progress"
}

// Description returns a human-readable description of the job.
func (j *FlushProgressJob) Description() string {
	return "Persists dirty progress ledgers to durable storage"
}

// Run executes the job.
func (j *FlushProgressJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	dirty := j.store.DirtyCount()
	if dirty == 0 {
		return nil
	}

	start := time.Now()
	flushed := j.store.Flush(ctx)

	j.logger.Info("progress flush job completed",
		"dirty", dirty,
		"flushed", flushed,
		"duration", time.Since(start),
	)
	return nil
}
