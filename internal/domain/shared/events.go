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
	// Attempt events
	EventAttemptCompleted EventType = "attempt.completed"

	// Badge events
	EventBadgeSuggested EventType = "badge.suggested"
	EventBadgeAwarded   EventType = "badge.awarded"

	// Recommendation events
	EventRecommendationCreated   EventType = "recommendation.created"
	EventRecommendationResolved  EventType = "recommendation.resolved"
	EventRecommendationDismissed EventType = "recommendation.dismissed"

	// Attention events
	EventAttentionCleared EventType = "attention.cleared"
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

// EventHandler processes a single domain event.
type EventHandler func(event Event) error

// EventBus delivers domain events to subscribed handlers.
type EventBus interface {
	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error

	// Publish sends an event to all subscribed handlers.
	Publish(event Event) error

	// Close gracefully shuts down the bus.
	Close() error
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
// Attempt Events
// ═══════════════════════════════════════════════════════════════════════════

// AttemptCompletedEvent is emitted when a student finishes an assignment attempt.
type AttemptCompletedEvent struct {
	BaseEvent
	StudentID    string  `json:"student_id"`
	AssignmentID string  `json:"assignment_id"`
	Subject      string  `json:"subject"`
	Score        float64 `json:"score"`
	HintRate     float64 `json:"hint_rate"`
	TimeSpentMin float64 `json:"time_spent_min,omitempty"`
}

// Payload implements Event interface.
func (e AttemptCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":     e.StudentID,
		"assignment_id":  e.AssignmentID,
		"subject":        e.Subject,
		"score":          e.Score,
		"hint_rate":      e.HintRate,
		"time_spent_min": e.TimeSpentMin,
	}
}

// NewAttemptCompletedEvent creates an attempt.completed event.
func NewAttemptCompletedEvent(studentID, assignmentID, subject string, score, hintRate, timeSpentMin float64) AttemptCompletedEvent {
	return AttemptCompletedEvent{
		BaseEvent:    NewBaseEvent(EventAttemptCompleted, studentID),
		StudentID:    studentID,
		AssignmentID: assignmentID,
		Subject:      subject,
		Score:        score,
		HintRate:     hintRate,
		TimeSpentMin: timeSpentMin,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Badge Events
// ═══════════════════════════════════════════════════════════════════════════

// BadgeSuggestedEvent is emitted when the criteria evaluator produces a new
// badge suggestion for teacher review.
type BadgeSuggestedEvent struct {
	BaseEvent
	SuggestionID string `json:"suggestion_id"`
	StudentID    string `json:"student_id"`
	BadgeType    string `json:"badge_type"`
	Subject      string `json:"subject,omitempty"`
	AssignmentID string `json:"assignment_id,omitempty"`
	Priority     string `json:"priority"`
	Reason       string `json:"reason"`
}

// Payload implements Event interface.
func (e BadgeSuggestedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"suggestion_id": e.SuggestionID,
		"student_id":    e.StudentID,
		"badge_type":    e.BadgeType,
		"subject":       e.Subject,
		"assignment_id": e.AssignmentID,
		"priority":      e.Priority,
		"reason":        e.Reason,
	}
}

// NewBadgeSuggestedEvent creates a badge.suggested event.
func NewBadgeSuggestedEvent(suggestionID, studentID, badgeType, subject, assignmentID, priority, reason string) BadgeSuggestedEvent {
	return BadgeSuggestedEvent{
		BaseEvent:    NewBaseEvent(EventBadgeSuggested, studentID),
		SuggestionID: suggestionID,
		StudentID:    studentID,
		BadgeType:    badgeType,
		Subject:      subject,
		AssignmentID: assignmentID,
		Priority:     priority,
		Reason:       reason,
	}
}

// BadgeAwardedEvent is emitted when a teacher accepts a suggestion and the
// badge is recorded as awarded.
type BadgeAwardedEvent struct {
	BaseEvent
	StudentID    string `json:"student_id"`
	BadgeType    string `json:"badge_type"`
	Subject      string `json:"subject,omitempty"`
	AssignmentID string `json:"assignment_id,omitempty"`
}

// Payload implements Event interface.
func (e BadgeAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":    e.StudentID,
		"badge_type":    e.BadgeType,
		"subject":       e.Subject,
		"assignment_id": e.AssignmentID,
	}
}

// NewBadgeAwardedEvent creates a badge.awarded event.
func NewBadgeAwardedEvent(studentID, badgeType, subject, assignmentID string) BadgeAwardedEvent {
	return BadgeAwardedEvent{
		BaseEvent:    NewBaseEvent(EventBadgeAwarded, studentID),
		StudentID:    studentID,
		BadgeType:    badgeType,
		Subject:      subject,
		AssignmentID: assignmentID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Recommendation Events
// ═══════════════════════════════════════════════════════════════════════════

// RecommendationCreatedEvent is emitted when a new insight recommendation is stored.
type RecommendationCreatedEvent struct {
	BaseEvent
	RecommendationID string `json:"recommendation_id"`
	StudentID        string `json:"student_id"`
	AssignmentID     string `json:"assignment_id,omitempty"`
	InsightType      string `json:"insight_type"`
	RuleName         string `json:"rule_name"`
}

// Payload implements Event interface.
func (e RecommendationCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"recommendation_id": e.RecommendationID,
		"student_id":        e.StudentID,
		"assignment_id":     e.AssignmentID,
		"insight_type":      e.InsightType,
		"rule_name":         e.RuleName,
	}
}

// NewRecommendationCreatedEvent creates a recommendation.created event.
func NewRecommendationCreatedEvent(recommendationID, studentID, assignmentID, insightType, ruleName string) RecommendationCreatedEvent {
	return RecommendationCreatedEvent{
		BaseEvent:        NewBaseEvent(EventRecommendationCreated, recommendationID),
		RecommendationID: recommendationID,
		StudentID:        studentID,
		AssignmentID:     assignmentID,
		InsightType:      insightType,
		RuleName:         ruleName,
	}
}

// RecommendationResolvedEvent is emitted when a teacher resolves a recommendation.
type RecommendationResolvedEvent struct {
	BaseEvent
	RecommendationID string `json:"recommendation_id"`
	StudentID        string `json:"student_id"`
	ResolvedBy       string `json:"resolved_by,omitempty"`
}

// Payload implements Event interface.
func (e RecommendationResolvedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"recommendation_id": e.RecommendationID,
		"student_id":        e.StudentID,
		"resolved_by":       e.ResolvedBy,
	}
}

// NewRecommendationResolvedEvent creates a recommendation.resolved event.
func NewRecommendationResolvedEvent(recommendationID, studentID, resolvedBy string) RecommendationResolvedEvent {
	return RecommendationResolvedEvent{
		BaseEvent:        NewBaseEvent(EventRecommendationResolved, recommendationID),
		RecommendationID: recommendationID,
		StudentID:        studentID,
		ResolvedBy:       resolvedBy,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Attention Events
// ═══════════════════════════════════════════════════════════════════════════

// AttentionClearedEvent is emitted when a student drops off the
// needs-attention list because their last active attention item was resolved.
type AttentionClearedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
}

// Payload implements Event interface.
func (e AttentionClearedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
	}
}

// NewAttentionClearedEvent creates an attention.cleared event.
func NewAttentionClearedEvent(studentID string) AttentionClearedEvent {
	return AttentionClearedEvent{
		BaseEvent: NewBaseEvent(EventAttentionCleared, studentID),
		StudentID: studentID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Serialization Helpers
// ═══════════════════════════════════════════════════════════════════════════

// MarshalEvent serializes an event to JSON.
func MarshalEvent(event Event) ([]byte, error) {
	return json.Marshal(event)
}

// EventEnvelope wraps an event payload with its type for transport.
type EventEnvelope struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Aggregate string                 `json:"aggregate_id"`
	Payload   map[string]interface{} `json:"payload"`
}

// NewEventEnvelope builds a transport envelope from a domain event.
func NewEventEnvelope(event Event) EventEnvelope {
	return EventEnvelope{
		Type:      event.EventType(),
		Timestamp: event.OccurredAt(),
		Aggregate: event.AggregateID(),
		Payload:   event.Payload(),
	}
}
