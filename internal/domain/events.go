package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Event Interface and Base Event
// -----------------------------------------------------------------------------

// Event represents a domain event
type Event interface {
	// EventID returns the unique identifier for this event
	EventID() uuid.UUID
	// EventType returns the type name of this event
	EventType() string
	// OccurredAt returns when this event occurred
	OccurredAt() time.Time
	// AggregateID returns the ID of the aggregate that produced this event
	AggregateID() uuid.UUID
	// AggregateType returns the type of aggregate that produced this event
	AggregateType() string
}

// BaseEvent provides common event fields
type BaseEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateUUID uuid.UUID `json:"aggregate_id"`
	AggregateName string    `json:"aggregate_type"`
}

// NewBaseEvent creates a new BaseEvent
func NewBaseEvent(eventType, aggregateType string, aggregateID uuid.UUID) BaseEvent {
	return BaseEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     time.Now(),
		AggregateUUID: aggregateID,
		AggregateName: aggregateType,
	}
}

func (e BaseEvent) EventID() uuid.UUID     { return e.ID }
func (e BaseEvent) EventType() string      { return e.Type }
func (e BaseEvent) OccurredAt() time.Time  { return e.Timestamp }
func (e BaseEvent) AggregateID() uuid.UUID { return e.AggregateUUID }
func (e BaseEvent) AggregateType() string  { return e.AggregateName }

// -----------------------------------------------------------------------------
// Event Handler and Dispatcher
// -----------------------------------------------------------------------------

// EventHandler processes domain events
type EventHandler func(event Event)

// EventDispatcher manages in-process event subscriptions and publishing.
// External listeners subscribe through the message queue instead.
type EventDispatcher struct {
	mu          sync.RWMutex
	handlers    map[string][]EventHandler
	allHandlers []EventHandler // handlers for all events
}

// NewEventDispatcher creates a new event dispatcher
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[string][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type
func (d *EventDispatcher) Subscribe(eventType string, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// SubscribeAll registers a handler for all event types
func (d *EventDispatcher) SubscribeAll(handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allHandlers = append(d.allHandlers, handler)
}

// Publish dispatches an event to all registered handlers
func (d *EventDispatcher) Publish(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if handlers, ok := d.handlers[event.EventType()]; ok {
		for _, h := range handlers {
			h(event)
		}
	}

	for _, h := range d.allHandlers {
		h(event)
	}
}

// -----------------------------------------------------------------------------
// Submission Events
// -----------------------------------------------------------------------------

// SubmissionCompletedEvent is published after every successfully processed
// submission, both in-process and on the message queue.
type SubmissionCompletedEvent struct {
	BaseEvent
	UserID       uuid.UUID      `json:"user_id"`
	MissionID    string         `json:"mission_id"`
	SubmissionID uuid.UUID      `json:"submission_id"`
	Score        int            `json:"score"`
	Success      bool           `json:"success"`
	Concepts     []string       `json:"concepts"`
	WeakConcepts []string       `json:"weak_concepts"`
	Difficulty   Difficulty     `json:"difficulty"`
	Feedback     AnalysisResult `json:"ai_feedback"`
}

// NewSubmissionCompletedEvent creates a new submission completed event
func NewSubmissionCompletedEvent(userID uuid.UUID, missionID string, submissionID uuid.UUID, score int, success bool, concepts, weakConcepts []string, difficulty Difficulty, feedback AnalysisResult) SubmissionCompletedEvent {
	return SubmissionCompletedEvent{
		BaseEvent:    NewBaseEvent("submission.completed", "Submission", submissionID),
		UserID:       userID,
		MissionID:    missionID,
		SubmissionID: submissionID,
		Score:        score,
		Success:      success,
		Concepts:     concepts,
		WeakConcepts: weakConcepts,
		Difficulty:   difficulty,
		Feedback:     feedback,
	}
}

// -----------------------------------------------------------------------------
// Progress Events
// -----------------------------------------------------------------------------

// MasteryUpdatedEvent is published when a user's concept mastery changes
type MasteryUpdatedEvent struct {
	BaseEvent
	Concepts     []string `json:"concepts"`
	WeakConcepts []string `json:"weak_concepts"`
	Version      int64    `json:"version"`
}

// NewMasteryUpdatedEvent creates a new mastery updated event
func NewMasteryUpdatedEvent(userID uuid.UUID, concepts, weakConcepts []string, version int64) MasteryUpdatedEvent {
	return MasteryUpdatedEvent{
		BaseEvent:    NewBaseEvent("mastery.updated", "MasteryProfile", userID),
		Concepts:     concepts,
		WeakConcepts: weakConcepts,
		Version:      version,
	}
}

// -----------------------------------------------------------------------------
// Reward Events
// -----------------------------------------------------------------------------

// XPAwardedEvent is published when mission XP is granted
type XPAwardedEvent struct {
	BaseEvent
	MissionID string `json:"mission_id"`
	XPGained  int    `json:"xp_gained"`
	TotalXP   int    `json:"total_xp"`
	Level     int    `json:"level"`
	LeveledUp bool   `json:"leveled_up"`
}

// NewXPAwardedEvent creates a new XP awarded event
func NewXPAwardedEvent(userID uuid.UUID, missionID string, xpGained, totalXP, level int, leveledUp bool) XPAwardedEvent {
	return XPAwardedEvent{
		BaseEvent: NewBaseEvent("xp.awarded", "RewardLedger", userID),
		MissionID: missionID,
		XPGained:  xpGained,
		TotalXP:   totalXP,
		Level:     level,
		LeveledUp: leveledUp,
	}
}

// AchievementUnlockedEvent is published when an achievement unlocks
type AchievementUnlockedEvent struct {
	BaseEvent
	AchievementID string `json:"achievement_id"`
	Name          string `json:"name"`
	Rarity        Rarity `json:"rarity"`
}

// NewAchievementUnlockedEvent creates a new achievement unlocked event
func NewAchievementUnlockedEvent(userID uuid.UUID, def AchievementDefinition) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent("achievement.unlocked", "RewardLedger", userID),
		AchievementID: def.ID,
		Name:          def.Name,
		Rarity:        def.Rarity,
	}
}

// StreakChangedEvent is published when the daily streak moves
type StreakChangedEvent struct {
	BaseEvent
	Streak  int           `json:"streak"`
	Outcome StreakOutcome `json:"outcome"`
}

// NewStreakChangedEvent creates a new streak changed event
func NewStreakChangedEvent(userID uuid.UUID, streak int, outcome StreakOutcome) StreakChangedEvent {
	return StreakChangedEvent{
		BaseEvent: NewBaseEvent("streak.changed", "RewardLedger", userID),
		Streak:    streak,
		Outcome:   outcome,
	}
}
