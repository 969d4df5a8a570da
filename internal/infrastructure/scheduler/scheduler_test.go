package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cogniquest/cogniquest-engine/pkg/timeutil"
)

var schedStart = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type countingJob struct {
	mu   sync.Mutex
	name string
	runs int
	err  error
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "test job" }

func (j *countingJob) Run(_ context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs++
	return j.err
}

func (j *countingJob) runCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func newTestScheduler(clock timeutil.Clock) *Scheduler {
	return NewScheduler(SchedulerConfig{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:         clock,
		Timezone:      time.UTC,
		EnableMetrics: true,
	})
}

func TestRegister_FirstRunComputedFromClock(t *testing.T) {
	clock := timeutil.NewFakeClock(schedStart)
	s := newTestScheduler(clock)

	cron, err := ParseCronExpression("0 20 * * *")
	assert.NoError(t, err)
	assert.NoError(t, s.Register(&countingJob{name: "reminder"}, cron))

	// 12:00 on the fake clock, so the first firing is 20:00 that day.
	assert.Equal(t, time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC), s.NextRun("reminder"))
	assert.True(t, s.NextRun("unknown").IsZero())
}

func TestRegister_Validation(t *testing.T) {
	s := newTestScheduler(timeutil.NewFakeClock(schedStart))

	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "flush"}, nil), ErrNilSchedule)

	assert.NoError(t, s.Register(&countingJob{name: "flush"}, NewIntervalSchedule(time.Minute)))
	assert.ErrorIs(t, s.Register(&countingJob{name: "flush"}, NewIntervalSchedule(time.Minute)), ErrDuplicateJob)
}

func TestRunDue_FiresAndReschedules(t *testing.T) {
	clock := timeutil.NewFakeClock(schedStart)
	s := newTestScheduler(clock)

	job := &countingJob{name: "flush"}
	assert.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))

	// Not due yet.
	clock.Advance(30 * time.Second)
	s.runDue(context.Background(), clock.Now())
	assert.Equal(t, 0, job.runCount())

	// Past the interval it fires once and reschedules.
	clock.Advance(31 * time.Second)
	s.runDue(context.Background(), clock.Now())
	assert.Equal(t, 1, job.runCount())
	assert.Equal(t, clock.Now().Add(time.Minute), s.NextRun("flush"))

	// The same instant does not double-fire.
	s.runDue(context.Background(), clock.Now())
	assert.Equal(t, 1, job.runCount())
}

func TestRunDue_RecordsFailures(t *testing.T) {
	clock := timeutil.NewFakeClock(schedStart)
	s := newTestScheduler(clock)

	job := &countingJob{name: "scan", err: errors.New("detector offline")}
	assert.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))

	clock.Advance(2 * time.Minute)
	s.runDue(context.Background(), clock.Now())

	snap := s.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalRuns)
	assert.Equal(t, int64(1), snap.TotalFailures)
	assert.Equal(t, int64(1), snap.RunsByJob["scan"])
}

func TestStartStop_Lifecycle(t *testing.T) {
	clock := timeutil.NewFakeClock(schedStart)
	s := newTestScheduler(clock)

	assert.ErrorIs(t, s.Stop(), ErrNotRunning)

	assert.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)

	assert.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
}
