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
// Each event represents something significant that happened in the engine.
const (
	// Progress events
	EventProgressChanged EventType = "progress.changed"
	EventTargetUpdated   EventType = "progress.target_updated"
	EventStreakExtended  EventType = "progress.streak_extended"
	EventStreakReset     EventType = "progress.streak_reset"

	// Achievement events
	EventAchievementEarned  EventType = "achievement.earned"
	EventEvaluationFailed   EventType = "achievement.evaluation_failed"
	EventCatalogInitialized EventType = "achievement.catalog_initialized"

	// Leaderboard events
	EventLeaderboardRebuilt EventType = "leaderboard.rebuilt"
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

// NewBaseEvent creates a new base event stamped at the given time.
func NewBaseEvent(eventType EventType, aggregateID string, occurredAt time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   occurredAt,
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

// ProgressChangedEvent is emitted after every successful recorded action.
// It is the trigger for achievement evaluation.
type ProgressChangedEvent struct {
	BaseEvent
	UserID      string  `json:"user_id"`
	WorkspaceID string  `json:"workspace_id"`
	Module      string  `json:"module"`
	Action      string  `json:"action"`
	Increment   float64 `json:"increment"`
	NewValue    float64 `json:"new_value"`
	StreakCount int     `json:"streak_count"`
}

// Payload implements Event interface.
func (e ProgressChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"workspace_id": e.WorkspaceID,
		"module":       e.Module,
		"action":       e.Action,
		"increment":    e.Increment,
		"new_value":    e.NewValue,
		"streak_count": e.StreakCount,
	}
}

// NewProgressChangedEvent creates a new ProgressChangedEvent.
func NewProgressChangedEvent(userID, workspaceID, module, action string, increment, newValue float64, streak int, occurredAt time.Time) ProgressChangedEvent {
	return ProgressChangedEvent{
		BaseEvent:   NewBaseEvent(EventProgressChanged, userID, occurredAt),
		UserID:      userID,
		WorkspaceID: workspaceID,
		Module:      module,
		Action:      action,
		Increment:   increment,
		NewValue:    newValue,
		StreakCount: streak,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementEarnedEvent is emitted when an achievement transitions to completed.
type AchievementEarnedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	WorkspaceID   string `json:"workspace_id"`
	AchievementID string `json:"achievement_id"`
	Name          string `json:"name"`
	Points        int    `json:"points"`
}

// Payload implements Event interface.
func (e AchievementEarnedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"workspace_id":   e.WorkspaceID,
		"achievement_id": e.AchievementID,
		"name":           e.Name,
		"points":         e.Points,
	}
}

// NewAchievementEarnedEvent creates a new AchievementEarnedEvent.
func NewAchievementEarnedEvent(userID, workspaceID, achievementID, name string, points int, occurredAt time.Time) AchievementEarnedEvent {
	return AchievementEarnedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementEarned, userID, occurredAt),
		UserID:        userID,
		WorkspaceID:   workspaceID,
		AchievementID: achievementID,
		Name:          name,
		Points:        points,
	}
}

// EvaluationFailedEvent is emitted when an asynchronous evaluation pass fails.
// The triggering increment is already durable; the worker re-checks out of band.
type EvaluationFailedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
	Reason      string `json:"reason"`
}

// Payload implements Event interface.
func (e EvaluationFailedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"workspace_id": e.WorkspaceID,
		"reason":       e.Reason,
	}
}

// NewEvaluationFailedEvent creates a new EvaluationFailedEvent.
func NewEvaluationFailedEvent(userID, workspaceID, reason string, occurredAt time.Time) EvaluationFailedEvent {
	return EvaluationFailedEvent{
		BaseEvent:   NewBaseEvent(EventEvaluationFailed, userID, occurredAt),
		UserID:      userID,
		WorkspaceID: workspaceID,
		Reason:      reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Leaderboard Events
// ═══════════════════════════════════════════════════════════════════════════

// LeaderboardRebuiltEvent is emitted when a workspace leaderboard cache is rebuilt.
type LeaderboardRebuiltEvent struct {
	BaseEvent
	WorkspaceID string `json:"workspace_id"`
	EntryCount  int    `json:"entry_count"`
}

// Payload implements Event interface.
func (e LeaderboardRebuiltEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"workspace_id": e.WorkspaceID,
		"entry_count":  e.EntryCount,
	}
}

// NewLeaderboardRebuiltEvent creates a new LeaderboardRebuiltEvent.
func NewLeaderboardRebuiltEvent(workspaceID string, entryCount int, occurredAt time.Time) LeaderboardRebuiltEvent {
	return LeaderboardRebuiltEvent{
		BaseEvent:   NewBaseEvent(EventLeaderboardRebuilt, workspaceID, occurredAt),
		WorkspaceID: workspaceID,
		EntryCount:  entryCount,
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
}
