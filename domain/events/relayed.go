package events

import "encoding/json"

// Relayed is an event received from another instance. Only its envelope
// fields are decoded; the payload is passed on untouched and marshals back
// to the original JSON.
type Relayed struct {
	BaseEvent
	Origin  string
	Payload json.RawMessage
}

// MarshalJSON returns the original event JSON.
func (r Relayed) MarshalJSON() ([]byte, error) {
	if len(r.Payload) == 0 {
		return []byte("{}"), nil
	}
	return r.Payload, nil
}
