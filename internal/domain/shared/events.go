// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"context"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the progress domain. Events are published after the owning
// transaction commits; handlers are best-effort side effects.
const (
	// Progress events
	EventXPGained      EventType = "progress.xp_gained"
	EventLevelUp       EventType = "progress.level_up"
	EventStreakUpdated EventType = "progress.streak_updated"
	EventStreakBroken  EventType = "progress.streak_broken"

	// Achievement events
	EventAchievementUnlocked EventType = "achievement.unlocked"

	// Certificate events
	EventCertificateQueued EventType = "certificate.queued"
	EventCertificateIssued EventType = "certificate.issued"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
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
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted whenever the ledger records a positive grant.
type XPGainedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Amount int    `json:"amount"`
	Source string `json:"source"`
	NewXP  int    `json:"new_xp"`
}

// NewXPGainedEvent creates an XPGainedEvent.
func NewXPGainedEvent(userID UserID, amount int, source string, newXP XP) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, userID.String()),
		UserID:    userID.String(),
		Amount:    amount,
		Source:    source,
		NewXP:     newXP.Int(),
	}
}

// LevelUpEvent is emitted when a grant pushes the user past a level boundary.
type LevelUpEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	NewXP    int    `json:"new_xp"`
}

// NewLevelUpEvent creates a LevelUpEvent.
func NewLevelUpEvent(userID UserID, oldLevel, newLevel Level, newXP XP) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID.String()),
		UserID:    userID.String(),
		OldLevel:  oldLevel.Int(),
		NewLevel:  newLevel.Int(),
		NewXP:     newXP.Int(),
	}
}

// StreakUpdatedEvent is emitted when the daily streak advances.
type StreakUpdatedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
}

// NewStreakUpdatedEvent creates a StreakUpdatedEvent.
func NewStreakUpdatedEvent(userID UserID, current, longest int) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent:     NewBaseEvent(EventStreakUpdated, userID.String()),
		UserID:        userID.String(),
		CurrentStreak: current,
		LongestStreak: longest,
	}
}

// StreakBrokenEvent is emitted when a gap of more than one day resets the streak.
type StreakBrokenEvent struct {
	BaseEvent
	UserID         string    `json:"user_id"`
	PreviousStreak int       `json:"previous_streak"`
	BrokenAt       time.Time `json:"broken_at"`
}

// NewStreakBrokenEvent creates a StreakBrokenEvent.
func NewStreakBrokenEvent(userID UserID, previousStreak int, brokenAt time.Time) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID.String()),
		UserID:         userID.String(),
		PreviousStreak: previousStreak,
		BrokenAt:       brokenAt,
	}
}

// AchievementUnlockedEvent is emitted when an achievement is granted.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	AchievementKey string `json:"achievement_key"`
	XPReward       int    `json:"xp_reward"`
}

// NewAchievementUnlockedEvent creates an AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID UserID, key string, xpReward int) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:      NewBaseEvent(EventAchievementUnlocked, userID.String()),
		UserID:         userID.String(),
		AchievementKey: key,
		XPReward:       xpReward,
	}
}

// CertificateQueuedEvent is emitted when an assessment queues a certificate.
type CertificateQueuedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
}

// NewCertificateQueuedEvent creates a CertificateQueuedEvent.
func NewCertificateQueuedEvent(userID UserID, courseID string) CertificateQueuedEvent {
	return CertificateQueuedEvent{
		BaseEvent: NewBaseEvent(EventCertificateQueued, userID.String()),
		UserID:    userID.String(),
		CourseID:  courseID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Publishing
// ═══════════════════════════════════════════════════════════════════════════

// EventPublisher publishes domain events to interested subscribers.
// Publishing happens after the producing transaction commits; subscriber
// failures are contained by the bus, never propagated back into the
// command that produced the event.
type EventPublisher interface {
	// Publish delivers the event to all subscribers of its type.
	Publish(ctx context.Context, event Event) error

	// PublishAll publishes a batch of events in order.
	PublishAll(ctx context.Context, events []Event) error
}

// EventHandler processes a single domain event.
type EventHandler interface {
	Handle(ctx context.Context, event Event) error
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event Event) error

// Handle implements EventHandler.
func (f EventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// NopPublisher discards all events. Used in tests.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// PublishAll implements EventPublisher.
func (NopPublisher) PublishAll(context.Context, []Event) error { return nil }
