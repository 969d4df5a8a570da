// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Progress events
	EventXPGained        EventType = "progress.xp_gained"
	EventLevelUp         EventType = "progress.level_up"
	EventStreakUpdated   EventType = "progress.streak_updated"
	EventProgressReset   EventType = "progress.reset"
	EventCategoryLevelUp EventType = "progress.category_level_up"
	EventCategoryUnlock  EventType = "progress.category_unlocked"

	// Session events
	EventSessionStarted    EventType = "session.started"
	EventSessionCompleted  EventType = "session.completed"
	EventSessionAbandoned  EventType = "session.abandoned"
	EventSessionTerminated EventType = "session.terminated"

	// Anti-cheat events
	EventViolationFlagged EventType = "anticheat.violation_flagged"
	EventPatternDetected  EventType = "anticheat.pattern_detected"

	// System events
	EventStateFlushed EventType = "system.state_flushed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted when a user gains XP from a completed session.
type XPGainedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	CategoryID string `json:"category_id"`
	Amount     int    `json:"amount"`
	NewTotal   int    `json:"new_total"`
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"category_id": e.CategoryID,
		"amount":      e.Amount,
		"new_total":   e.NewTotal,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(userID, categoryID string, amount, newTotal int) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent:  NewBaseEvent(EventXPGained, userID),
		UserID:     userID,
		CategoryID: categoryID,
		Amount:     amount,
		NewTotal:   newTotal,
	}
}

// LevelUpEvent is emitted when a user's global level increases.
type LevelUpEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	TotalXP  int    `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"total_xp":  e.TotalXP,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel, totalXP int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   totalXP,
	}
}

// StreakUpdatedEvent is emitted when a user's daily streak changes.
type StreakUpdatedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	OldStreak int    `json:"old_streak"`
	NewStreak int    `json:"new_streak"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"old_streak": e.OldStreak,
		"new_streak": e.NewStreak,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(userID string, oldStreak, newStreak int) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent: NewBaseEvent(EventStreakUpdated, userID),
		UserID:    userID,
		OldStreak: oldStreak,
		NewStreak: newStreak,
	}
}

// CategoryUnlockedEvent is emitted when a locked category is force-unlocked.
type CategoryUnlockedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	CategoryID string `json:"category_id"`
}

// Payload implements Event interface.
func (e CategoryUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"category_id": e.CategoryID,
	}
}

// NewCategoryUnlockedEvent creates a new CategoryUnlockedEvent.
func NewCategoryUnlockedEvent(userID, categoryID string) CategoryUnlockedEvent {
	return CategoryUnlockedEvent{
		BaseEvent:  NewBaseEvent(EventCategoryUnlock, userID),
		UserID:     userID,
		CategoryID: categoryID,
	}
}

// CategoryLevelUpEvent is emitted when a category advances a level.
type CategoryLevelUpEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	CategoryID string `json:"category_id"`
	NewLevel   int    `json:"new_level"`
}

// Payload implements Event interface.
func (e CategoryLevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"category_id": e.CategoryID,
		"new_level":   e.NewLevel,
	}
}

// NewCategoryLevelUpEvent creates a new CategoryLevelUpEvent.
func NewCategoryLevelUpEvent(userID, categoryID string, newLevel int) CategoryLevelUpEvent {
	return CategoryLevelUpEvent{
		BaseEvent:  NewBaseEvent(EventCategoryLevelUp, userID),
		UserID:     userID,
		CategoryID: categoryID,
		NewLevel:   newLevel,
	}
}

// ProgressResetEvent is emitted when a user's progress is destructively reset.
type ProgressResetEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
}

// Payload implements Event interface.
func (e ProgressResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
	}
}

// NewProgressResetEvent creates a new ProgressResetEvent.
func NewProgressResetEvent(userID string) ProgressResetEvent {
	return ProgressResetEvent{
		BaseEvent: NewBaseEvent(EventProgressReset, userID),
		UserID:    userID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Session Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionCompletedEvent is emitted when a session finishes normally.
type SessionCompletedEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	SessionID      string `json:"session_id"`
	CategoryID     string `json:"category_id"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correct_answers"`
	TotalQuestions int    `json:"total_questions"`
	TotalTimeSec   int    `json:"total_time_sec"`
}

// Payload implements Event interface.
func (e SessionCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"session_id":      e.SessionID,
		"category_id":     e.CategoryID,
		"score":           e.Score,
		"correct_answers": e.CorrectAnswers,
		"total_questions": e.TotalQuestions,
		"total_time_sec":  e.TotalTimeSec,
	}
}

// NewSessionCompletedEvent creates a new SessionCompletedEvent.
func NewSessionCompletedEvent(userID, sessionID, categoryID string, score, correct, total, totalTimeSec int) SessionCompletedEvent {
	return SessionCompletedEvent{
		BaseEvent:      NewBaseEvent(EventSessionCompleted, sessionID),
		UserID:         userID,
		SessionID:      sessionID,
		CategoryID:     categoryID,
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: total,
		TotalTimeSec:   totalTimeSec,
	}
}

// SessionTerminatedEvent is emitted when anti-cheat forces a session to end.
type SessionTerminatedEvent struct {
	BaseEvent
	UserID     string   `json:"user_id"`
	SessionID  string   `json:"session_id"`
	Violations []string `json:"violations"`
}

// Payload implements Event interface.
func (e SessionTerminatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"session_id": e.SessionID,
		"violations": e.Violations,
	}
}

// NewSessionTerminatedEvent creates a new SessionTerminatedEvent.
func NewSessionTerminatedEvent(userID, sessionID string, violations []string) SessionTerminatedEvent {
	return SessionTerminatedEvent{
		BaseEvent:  NewBaseEvent(EventSessionTerminated, sessionID),
		UserID:     userID,
		SessionID:  sessionID,
		Violations: violations,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Anti-cheat Events
// ═══════════════════════════════════════════════════════════════════════════

// ViolationFlaggedEvent is emitted for every flagged anomalous behavior.
type ViolationFlaggedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	SessionID     string `json:"session_id,omitempty"`
	Reason        string `json:"reason"`
	AdjustedScore int    `json:"adjusted_score"`
}

// Payload implements Event interface.
func (e ViolationFlaggedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"session_id":     e.SessionID,
		"reason":         e.Reason,
		"adjusted_score": e.AdjustedScore,
	}
}

// NewViolationFlaggedEvent creates a new ViolationFlaggedEvent.
func NewViolationFlaggedEvent(userID, sessionID, reason string, adjustedScore int) ViolationFlaggedEvent {
	return ViolationFlaggedEvent{
		BaseEvent:     NewBaseEvent(EventViolationFlagged, userID),
		UserID:        userID,
		SessionID:     sessionID,
		Reason:        reason,
		AdjustedScore: adjustedScore,
	}
}

// PatternDetectedEvent is emitted when a background scan finds a
// suspicious pattern in a user's attempt history.
type PatternDetectedEvent struct {
	BaseEvent
	UserID   string   `json:"user_id"`
	Patterns []string `json:"patterns"`
}

// Payload implements Event interface.
func (e PatternDetectedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":  e.UserID,
		"patterns": e.Patterns,
	}
}

// NewPatternDetectedEvent creates a new PatternDetectedEvent.
func NewPatternDetectedEvent(userID string, patterns []string) PatternDetectedEvent {
	return PatternDetectedEvent{
		BaseEvent: NewBaseEvent(EventPatternDetected, userID),
		UserID:    userID,
		Patterns:  patterns,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// System Events
// ═══════════════════════════════════════════════════════════════════════════

// StateFlushedEvent is emitted after the write-behind store persists
// dirty progress state to durable storage.
type StateFlushedEvent struct {
	BaseEvent
	Flushed int `json:"flushed"`
	Failed  int `json:"failed"`
}

// Payload implements Event interface.
func (e StateFlushedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"flushed": e.Flushed,
		"failed":  e.Failed,
	}
}

// NewStateFlushedEvent creates a new StateFlushedEvent.
func NewStateFlushedEvent(flushed, failed int) StateFlushedEvent {
	return StateFlushedEvent{
		BaseEvent: NewBaseEvent(EventStateFlushed, "engine"),
		Flushed:   flushed,
		Failed:    failed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber

	// Close shuts the bus down and waits for in-flight deliveries.
	Close() error
}
