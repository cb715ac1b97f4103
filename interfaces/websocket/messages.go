package websocket

import (
	"encoding/json"

	"dreamcatcher/domain/events"
)

// MessageType names a message pushed to clients.
type MessageType string

const (
	MessageConnectionEstablished MessageType = "connection_established"
	MessagePong                  MessageType = "pong"

	MessageIdeaCaptured      MessageType = "idea_captured"
	MessageDreamCaptured     MessageType = "dream_captured"
	MessageIdeaClassified    MessageType = "idea_classified"
	MessageIdeaExpanded      MessageType = "idea_expanded"
	MessageVisualGenerated   MessageType = "visual_generated"
	MessageProposalGenerated MessageType = "proposal_generated"
	MessageProposalApproved  MessageType = "proposal_approved"
	MessageProposalRejected  MessageType = "proposal_rejected"
	MessageAgentStatus       MessageType = "agent_status"
	MessageNotification      MessageType = "notification"
	MessageSystemAlert       MessageType = "system_alert"
)

// Message is the JSON frame sent to clients.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

var eventMessages = map[string]MessageType{
	events.TypeIdeaCaptured:          MessageIdeaCaptured,
	events.TypeIdeaClassified:        MessageIdeaClassified,
	events.TypeIdeaExpanded:          MessageIdeaExpanded,
	events.TypeVisualGenerated:       MessageVisualGenerated,
	events.TypeProposalGenerated:     MessageProposalGenerated,
	events.TypeProposalApproved:      MessageProposalApproved,
	events.TypeProposalRejected:      MessageProposalRejected,
	events.TypeAgentStatus:           MessageAgentStatus,
	events.TypeNotificationCreated:   MessageNotification,
	events.TypeNotificationDismissed: MessageNotification,
	events.TypeSystemAlert:           MessageSystemAlert,
}

// messageFor converts a domain event into a client message. ok is false for
// events clients do not receive.
func messageFor(evt events.DomainEvent) (Message, bool, error) {
	msgType, ok := eventMessages[evt.GetEventType()]
	if !ok {
		return Message{}, false, nil
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return Message{}, false, err
	}
	if msgType == MessageIdeaCaptured && isDream(evt, data) {
		msgType = MessageDreamCaptured
	}
	return Message{Type: msgType, Data: data, Timestamp: evt.GetTimestamp().Unix()}, true, nil
}

func isDream(evt events.DomainEvent, data []byte) bool {
	if captured, ok := evt.(events.IdeaCaptured); ok {
		return captured.SourceType == "dream"
	}
	var probe struct {
		SourceType string `json:"source_type"`
	}
	return json.Unmarshal(data, &probe) == nil && probe.SourceType == "dream"
}
