package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"ambassador-chat/internal/events"
	"ambassador-chat/internal/presence"
	"ambassador-chat/pkg/logger"

	"github.com/google/uuid"
)

// Bridge feeds the Redis channels into this node: message-channel traffic
// goes straight to the hub, presence-channel traffic is folded into the
// local coordinator so every node converges on the same typing sets.
type Bridge struct {
	subscriber events.Subscriber
	hub        *Hub
	coord      *presence.Coordinator
	log        *logger.Logger
}

func NewBridge(subscriber events.Subscriber, hub *Hub, coord *presence.Coordinator, log *logger.Logger) *Bridge {
	return &Bridge{subscriber: subscriber, hub: hub, coord: coord, log: log}
}

// Run subscribes to all room channels and keeps resubscribing after
// transient failures until the context ends.
func (b *Bridge) Run(ctx context.Context) {
	patterns := []string{events.ChannelPrefixRoom + "*"}
	for {
		err := b.subscriber.Subscribe(ctx, patterns, b.handle)
		if ctx.Err() != nil {
			return
		}
		if err != nil && b.log != nil {
			b.log.Warnf("bridge subscription dropped, resubscribing: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (b *Bridge) handle(channel string, payload []byte) {
	if strings.HasSuffix(channel, ":presence") {
		b.handlePresence(payload)
		return
	}
	b.hub.Broadcast(channel, payload)
}

func (b *Bridge) handlePresence(payload []byte) {
	if b.coord == nil {
		return
	}

	var env events.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return
	}

	var typing struct {
		RoomID string `json:"room_id"`
		UserID string `json:"user_id"`
		Typing bool   `json:"typing"`
	}
	if err := json.Unmarshal(env.Payload, &typing); err != nil {
		return
	}

	roomID, err := uuid.Parse(typing.RoomID)
	if err != nil {
		return
	}
	userID, err := uuid.Parse(typing.UserID)
	if err != nil {
		return
	}

	b.coord.ApplyRemote(roomID, userID, typing.Typing)
}
