package events

import "time"

// DomainEvent is the base interface for all domain events.
// Events represent something that has happened in the past.
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetUserID() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	UserID      string    `json:"user_id"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetUserID() string       { return e.UserID }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

func newBase(eventType, aggregateID, userID string) BaseEvent {
	return BaseEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		UserID:      userID,
		Timestamp:   time.Now().UTC(),
	}
}

// Event types
const (
	TypeIdeaCaptured          = "idea.captured"
	TypeIdeaClassified        = "idea.classified"
	TypeIdeaExpanded          = "idea.expanded"
	TypeVisualGenerated       = "visual.generated"
	TypeProposalGenerated     = "proposal.generated"
	TypeProposalApproved      = "proposal.approved"
	TypeProposalRejected      = "proposal.rejected"
	TypeAgentStatus           = "agent.status"
	TypeNotificationCreated   = "notification.created"
	TypeNotificationDismissed = "notification.dismissed"
	TypeSystemAlert           = "system.alert"
)
