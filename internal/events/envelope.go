package events

import (
	"encoding/json"
	"time"
)

// Envelope is the wire format for everything published on the bus.
// Payload stays raw so subscribers decode only the event types they
// care about.
type Envelope struct {
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	RoomID        string          `json:"room_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope builds a room-scoped envelope; roomID drives channel
// resolution.
func NewEnvelope(eventType, aggregateType, aggregateID, roomID string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		RoomID:        roomID,
		OccurredAt:    time.Now().UTC(),
		Payload:       data,
	}, nil
}
