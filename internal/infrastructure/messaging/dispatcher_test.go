package messaging

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

func testDispatcherConfig(bus shared.EventBus) DispatcherConfig {
	cfg := DefaultDispatcherConfig(bus)
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func TestDispatcher_RoutesByEventType(t *testing.T) {
	d := NewDispatcher(testDispatcherConfig(nil))

	var levelUps, violations int
	assert.NoError(t, d.Register(shared.EventLevelUp, "count_level_ups", func(_ shared.Event) error {
		levelUps++
		return nil
	}))
	assert.NoError(t, d.Register(shared.EventViolationFlagged, "count_violations", func(_ shared.Event) error {
		violations++
		return nil
	}))

	assert.NoError(t, d.Dispatch(shared.NewLevelUpEvent("u-1", 1, 2, 1000)))
	assert.NoError(t, d.Dispatch(shared.NewLevelUpEvent("u-1", 2, 3, 2000)))

	assert.Equal(t, 2, levelUps)
	assert.Equal(t, 0, violations)
}

func TestDispatcher_UnroutedEventIsNoOp(t *testing.T) {
	d := NewDispatcher(testDispatcherConfig(nil))

	assert.NoError(t, d.Dispatch(shared.NewStreakUpdatedEvent("u-1", 1, 2)))
	assert.Equal(t, 0, d.DeadLetters().Size())
}

func TestDispatcher_RegisterValidation(t *testing.T) {
	d := NewDispatcher(testDispatcherConfig(nil))

	assert.Error(t, d.Register(shared.EventLevelUp, "no_handler", nil))
	assert.Error(t, d.Register(shared.EventLevelUp, "", func(_ shared.Event) error { return nil }))
}

func TestDispatcher_RetriesBeforeDeadLettering(t *testing.T) {
	cfg := testDispatcherConfig(nil)
	cfg.MaxAttempts = 3
	d := NewDispatcher(cfg)

	attempts := 0
	assert.NoError(t, d.Register(shared.EventLevelUp, "always_fails", func(_ shared.Event) error {
		attempts++
		return assert.AnError
	}))

	err := d.Dispatch(shared.NewLevelUpEvent("u-1", 1, 2, 1000))
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)

	letters := d.DeadLetters().Entries()
	assert.Len(t, letters, 1)
	assert.Equal(t, "always_fails", letters[0].HandlerName)
	assert.Equal(t, shared.EventLevelUp, letters[0].Event.EventType())
}

func TestDispatcher_RetrySuccessAvoidsDeadLetter(t *testing.T) {
	cfg := testDispatcherConfig(nil)
	cfg.MaxAttempts = 3
	d := NewDispatcher(cfg)

	attempts := 0
	assert.NoError(t, d.Register(shared.EventLevelUp, "flaky", func(_ shared.Event) error {
		attempts++
		if attempts < 2 {
			return assert.AnError
		}
		return nil
	}))

	assert.NoError(t, d.Dispatch(shared.NewLevelUpEvent("u-1", 1, 2, 1000)))
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 0, d.DeadLetters().Size())
}

func TestDispatcher_RecoveryMiddlewareConvertsPanics(t *testing.T) {
	cfg := testDispatcherConfig(nil)
	cfg.MaxAttempts = 1
	d := NewDispatcher(cfg)
	d.Use(RecoveryMiddleware(cfg.Logger))

	assert.NoError(t, d.Register(shared.EventLevelUp, "panics", func(_ shared.Event) error {
		panic("boom")
	}))

	err := d.Dispatch(shared.NewLevelUpEvent("u-1", 1, 2, 1000))
	assert.ErrorContains(t, err, "handler panic")
	assert.Equal(t, 1, d.DeadLetters().Size())
}

func TestDispatcher_StartAttachesToBus(t *testing.T) {
	bus := NewInMemoryEventBus(syncBusConfig())
	defer bus.Close()

	d := NewDispatcher(testDispatcherConfig(bus))
	defer func() { _ = d.Stop() }()

	var handled int
	assert.NoError(t, d.Register(shared.EventLevelUp, "count", func(_ shared.Event) error {
		handled++
		return nil
	}))
	assert.NoError(t, d.Start())

	assert.NoError(t, bus.Publish(shared.NewLevelUpEvent("u-1", 1, 2, 1000)))
	assert.Equal(t, 1, handled)
}

func TestDeadLetterQueue_DropsOldestWhenFull(t *testing.T) {
	q := NewDeadLetterQueue(2)

	q.Add(DeadLetter{HandlerName: "a"})
	q.Add(DeadLetter{HandlerName: "b"})
	q.Add(DeadLetter{HandlerName: "c"})

	entries := q.Entries()
	assert.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].HandlerName)
	assert.Equal(t, "c", entries[1].HandlerName)
}
