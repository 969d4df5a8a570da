package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
	"github.com/cogniquest/cogniquest-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher routes bus events to named handlers. Handlers run on the
// bus delivery goroutine (the async bus already decouples publishers);
// failures are retried with backoff and parked in the dead-letter
// queue once attempts are exhausted.
type Dispatcher struct {
	mu          sync.RWMutex
	bus         shared.EventBus
	routes      map[shared.EventType][]route
	middlewares []Middleware

	retrier *retry.Retrier
	dead    *DeadLetterQueue
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type route struct {
	name    string
	handler shared.EventHandler
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	EventBus shared.EventBus
	Logger   *slog.Logger

	// MaxAttempts per handler invocation, including the first.
	MaxAttempts int

	// RetryDelay is the initial backoff between attempts.
	RetryDelay time.Duration

	// DeadLetterCapacity bounds the parked-event queue.
	DeadLetterCapacity int
}

// DefaultDispatcherConfig returns the engine defaults.
func DefaultDispatcherConfig(bus shared.EventBus) DispatcherConfig {
	return DispatcherConfig{
		EventBus:           bus,
		MaxAttempts:        3,
		RetryDelay:         100 * time.Millisecond,
		DeadLetterCapacity: 256,
	}
}

// NewDispatcher creates a dispatcher. Call Start to attach it to the bus.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		bus:    cfg.EventBus,
		routes: make(map[shared.EventType][]route),
		retrier: retry.New(
			retry.WithMaxAttempts(cfg.MaxAttempts),
			retry.WithInitialDelay(cfg.RetryDelay),
			retry.WithRetryIf(func(error) bool { return true }),
		),
		dead:   NewDeadLetterQueue(cfg.DeadLetterCapacity),
		log:    cfg.Logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register binds a named handler to one event type. A type may carry
// several handlers; each fails or succeeds independently.
func (d *Dispatcher) Register(eventType shared.EventType, name string, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("dispatcher: handler is nil")
	}
	if name == "" {
		return errors.New("dispatcher: handler name is empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.routes[eventType] = append(d.routes[eventType], route{name: name, handler: handler})
	d.log.Debug("handler registered", "event_type", eventType, "handler", name)
	return nil
}

// Use appends middleware. Middleware wraps every handler, outermost
// first, and applies per attempt.
func (d *Dispatcher) Use(middleware Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middlewares = append(d.middlewares, middleware)
}

// Start subscribes the dispatcher to all bus events.
func (d *Dispatcher) Start() error {
	return d.bus.SubscribeAll(d.Dispatch)
}

// Stop cancels in-flight retries.
func (d *Dispatcher) Stop() error {
	d.cancel()
	d.log.Info("dispatcher stopped")
	return nil
}

// DeadLetters returns the queue of events whose handlers exhausted
// their attempts.
func (d *Dispatcher) DeadLetters() *DeadLetterQueue {
	return d.dead
}

// Dispatch routes one event. An unrouted type is a no-op. The returned
// error aggregates handler failures after retries.
func (d *Dispatcher) Dispatch(event shared.Event) error {
	d.mu.RLock()
	routes := d.routes[event.EventType()]
	middlewares := d.middlewares
	d.mu.RUnlock()

	var failed []error
	for _, r := range routes {
		if err := d.deliver(event, r, middlewares); err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", r.name, err))
		}
	}
	return errors.Join(failed...)
}

func (d *Dispatcher) deliver(event shared.Event, r route, middlewares []Middleware) error {
	handler := r.handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}

	err := d.retrier.Do(d.ctx, func(context.Context) error {
		return handler(event)
	})
	if err == nil {
		return nil
	}

	d.dead.Add(DeadLetter{
		Event:       event,
		HandlerName: r.name,
		Err:         err,
		FailedAt:    time.Now(),
	})
	d.log.Error("handler exhausted retries",
		"event_type", event.EventType(),
		"handler", r.name,
		"error", err,
	)
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// Middleware wraps handler execution.
type Middleware func(shared.EventHandler) shared.EventHandler

// RecoveryMiddleware converts handler panics into errors.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panic recovered",
						"event_type", event.EventType(),
						"panic", r,
						"stack", string(debug.Stack()),
					)
					err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next(event)
		}
	}
}

// LoggingMiddleware logs each handler invocation with its outcome.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)
			elapsed := time.Since(start)

			if err != nil {
				logger.Error("handler failed",
					"event_type", event.EventType(),
					"aggregate_id", event.AggregateID(),
					"elapsed", elapsed,
					"error", err,
				)
				return err
			}
			logger.Debug("handler completed",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"elapsed", elapsed,
			)
			return nil
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEAD LETTER QUEUE
// ══════════════════════════════════════════════════════════════════════════════

// DeadLetter is one event a handler could not process.
type DeadLetter struct {
	Event       shared.Event
	HandlerName string
	Err         error
	FailedAt    time.Time
}

// DeadLetterQueue is a bounded FIFO of failed events. When full, the
// oldest entry is dropped.
type DeadLetterQueue struct {
	mu       sync.Mutex
	entries  []DeadLetter
	capacity int
}

// NewDeadLetterQueue creates a queue holding at most capacity entries.
func NewDeadLetterQueue(capacity int) *DeadLetterQueue {
	if capacity < 1 {
		capacity = 256
	}
	return &DeadLetterQueue{capacity: capacity}
}

// Add parks a failed event.
func (q *DeadLetterQueue) Add(entry DeadLetter) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.capacity {
		q.entries = q.entries[1:]
	}
	q.entries = append(q.entries, entry)
}

// Entries copies the parked events, oldest first.
func (q *DeadLetterQueue) Entries() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]DeadLetter, len(q.entries))
	copy(out, q.entries)
	return out
}

// Size reports the number of parked events.
func (q *DeadLetterQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
