// Package messaging moves domain events between processes: a Redis channel
// for instance fan-out, EventBridge for downstream consumers, and a
// MultiPublisher that feeds several sinks at once.
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"dreamcatcher/domain/events"
)

// Envelope is the wire form of an event.
type Envelope struct {
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	UserID      string          `json:"user_id,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	Origin      string          `json:"origin"`
	Payload     json.RawMessage `json:"payload"`
}

// Encode wraps evt in an envelope stamped with origin.
func Encode(evt events.DomainEvent, origin string) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", evt.GetEventType(), err)
	}
	return json.Marshal(Envelope{
		EventType:   evt.GetEventType(),
		AggregateID: evt.GetAggregateID(),
		UserID:      evt.GetUserID(),
		Timestamp:   evt.GetTimestamp(),
		Origin:      origin,
		Payload:     payload,
	})
}

// Decode parses an envelope back into a Relayed event.
func Decode(data []byte) (events.Relayed, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return events.Relayed{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventType == "" {
		return events.Relayed{}, fmt.Errorf("decode envelope: missing event type")
	}
	return events.Relayed{
		BaseEvent: events.BaseEvent{
			AggregateID: env.AggregateID,
			EventType:   env.EventType,
			UserID:      env.UserID,
			Timestamp:   env.Timestamp,
		},
		Origin:  env.Origin,
		Payload: env.Payload,
	}, nil
}
