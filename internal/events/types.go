package events

import "fmt"

// Event types follow the format: domain.action
const (
	EventTypeMessageCreated = "message.created"

	EventTypeRoomCreated        = "room.created"
	EventTypeRoomDeleted        = "room.deleted"
	EventTypeParticipantAdded   = "participant.added"
	EventTypeParticipantRemoved = "participant.removed"

	EventTypeTypingStarted = "typing.started"
	EventTypeTypingStopped = "typing.stopped"
)

// Aggregate type constants
const (
	AggregateTypeMessage  = "message"
	AggregateTypeRoom     = "room"
	AggregateTypePresence = "presence"
)

// Redis channel layout. Message and presence traffic for a room travel on
// distinct channels so presence handling can never disturb message
// delivery.
const (
	ChannelPrefixRoom     = "channel:room:"
	channelSuffixPresence = ":presence"
)

// MessageChannel is the durable-message fan-out channel for a room.
func MessageChannel(roomID string) string {
	return ChannelPrefixRoom + roomID
}

// PresenceChannel carries ephemeral typing traffic for a room.
func PresenceChannel(roomID string) string {
	return fmt.Sprintf("%s%s%s", ChannelPrefixRoom, roomID, channelSuffixPresence)
}
