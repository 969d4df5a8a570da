// Package scheduler runs the engine's background jobs: the periodic
// progress flush, the anti-cheat pattern sweep and the daily streak
// reminder. Jobs declare their timing through a Schedule; the scheduler
// owns the loop and derives every instant from a timeutil.Clock, so the
// whole package is testable against a fake clock.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cogniquest/cogniquest-engine/pkg/timeutil"
)

var (
	ErrNilJob         = errors.New("scheduler: job is nil")
	ErrNilSchedule    = errors.New("scheduler: schedule is nil")
	ErrDuplicateJob   = errors.New("scheduler: job already registered")
	ErrAlreadyRunning = errors.New("scheduler: already running")
	ErrNotRunning     = errors.New("scheduler: not running")
)

// Job is one unit of background work. Run must honor ctx cancellation;
// the scheduler cancels it on Stop.
type Job interface {
	Name() string
	Description() string
	Run(ctx context.Context) error
}

// Schedule decides when a job fires. Next returns the first instant
// strictly after t at which the job is due.
type Schedule interface {
	Next(t time.Time) time.Time
	String() string
}

// entry is one registered job with its firing state.
type entry struct {
	job      Job
	schedule Schedule
	nextRun  time.Time
	runs     int64
	failures int64
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	Logger *slog.Logger

	// Clock supplies the current time and the loop ticker.
	Clock timeutil.Clock

	// Timezone for schedule arithmetic (default UTC).
	Timezone *time.Location

	// EnableMetrics turns on run counters.
	EnableMetrics bool
}

// Scheduler drives registered jobs off a one-second tick. Jobs execute
// one at a time on the loop goroutine; a slow job delays the others but
// never overlaps them.
type Scheduler struct {
	mu sync.Mutex

	log     *slog.Logger
	clock   timeutil.Clock
	tz      *time.Location
	entries map[string]*entry
	metrics *Metrics

	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.NewRealClock()
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}

	s := &Scheduler{
		log:     cfg.Logger,
		clock:   cfg.Clock,
		tz:      cfg.Timezone,
		entries: make(map[string]*entry),
	}
	if cfg.EnableMetrics {
		s.metrics = NewMetrics()
	}
	return s
}

// Register adds a job. The first firing time is computed from the
// scheduler's clock at registration.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	e := &entry{
		job:      job,
		schedule: schedule,
		nextRun:  schedule.Next(s.now()),
	}
	s.entries[name] = e

	s.log.Info("job registered",
		"job", name,
		"description", job.Description(),
		"schedule", schedule.String(),
		"next_run", e.nextRun.Format(time.RFC3339),
	)
	return nil
}

// NextRun reports when the named job fires next. The zero time means
// the job is unknown.
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[name]; ok {
		return e.nextRun
	}
	return time.Time{}
}

// Start launches the loop goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	jobCount := len(s.entries)
	s.mu.Unlock()

	s.log.Info("scheduler started", "jobs", jobCount)

	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop cancels the loop and waits for a running job to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
	return nil
}

// IsRunning reports whether the loop is live.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Metrics returns the run counters, nil when disabled.
func (s *Scheduler) Metrics() *Metrics {
	return s.metrics
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C():
			s.runDue(s.ctx, s.now())
		}
	}
}

// runDue fires every job whose nextRun has passed, advancing its
// schedule before execution so a crash inside Run cannot cause a
// double fire on restart of the loop.
func (s *Scheduler) runDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	var due []*entry
	for _, e := range s.entries {
		if !e.nextRun.After(now) {
			e.nextRun = e.schedule.Next(now)
			due = append(due, e)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		s.runEntry(ctx, e)
	}
}

func (s *Scheduler) runEntry(ctx context.Context, e *entry) {
	name := e.job.Name()
	started := s.now()

	err := e.job.Run(ctx)
	elapsed := s.now().Sub(started)

	s.mu.Lock()
	e.runs++
	if err != nil {
		e.failures++
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.record(name, elapsed, err == nil)
	}

	if err != nil {
		s.log.Error("job failed", "job", name, "elapsed", elapsed.String(), "error", err)
		return
	}
	s.log.Info("job completed", "job", name, "elapsed", elapsed.String())
}

func (s *Scheduler) now() time.Time {
	return s.clock.Now().In(s.tz)
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// Metrics counts job executions.
type Metrics struct {
	mu sync.Mutex

	runs     int64
	failures int64
	elapsed  time.Duration
	byJob    map[string]int64
}

// NewMetrics creates empty counters.
func NewMetrics() *Metrics {
	return &Metrics{byJob: make(map[string]int64)}
}

func (m *Metrics) record(job string, elapsed time.Duration, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs++
	m.elapsed += elapsed
	m.byJob[job]++
	if !ok {
		m.failures++
	}
}

// MetricsSnapshot is a point-in-time view of the counters.
type MetricsSnapshot struct {
	TotalRuns     int64
	TotalFailures int64
	TotalElapsed  time.Duration
	RunsByJob     map[string]int64
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	byJob := make(map[string]int64, len(m.byJob))
	for k, v := range m.byJob {
		byJob[k] = v
	}
	return MetricsSnapshot{
		TotalRuns:     m.runs,
		TotalFailures: m.failures,
		TotalElapsed:  m.elapsed,
		RunsByJob:     byJob,
	}
}
