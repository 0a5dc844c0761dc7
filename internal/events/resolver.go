package events

// ChannelResolver determines which Redis channels an event is published to.
type ChannelResolver interface {
	ResolveChannels(env Envelope) []string
}

// RoomChannelResolver routes room-scoped events to per-room channels,
// keeping presence traffic separate from message traffic.
type RoomChannelResolver struct{}

func NewRoomChannelResolver() *RoomChannelResolver {
	return &RoomChannelResolver{}
}

func (r *RoomChannelResolver) ResolveChannels(env Envelope) []string {
	if env.RoomID == "" {
		return nil
	}
	switch env.EventType {
	case EventTypeMessageCreated,
		EventTypeRoomCreated,
		EventTypeRoomDeleted,
		EventTypeParticipantAdded,
		EventTypeParticipantRemoved:
		return []string{MessageChannel(env.RoomID)}
	case EventTypeTypingStarted, EventTypeTypingStopped:
		return []string{PresenceChannel(env.RoomID)}
	}
	return nil
}
