package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"ambassador-chat/internal/events"
	"ambassador-chat/internal/presence"
	"ambassador-chat/internal/proxy"
	"ambassador-chat/internal/services"
	"ambassador-chat/internal/transport/httpdto"
	"ambassador-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Stream names a client can subscribe to per room. Message and presence
// streams stay separate end to end.
const (
	StreamMessages = "messages"
	StreamPresence = "presence"
)

// controlFrame is what clients send over the socket. The socket carries
// no chat content upstream; sends go through the REST surface.
type controlFrame struct {
	Action string `json:"action"` // subscribe, unsubscribe, heartbeat
	RoomID string `json:"room_id"`
	Stream string `json:"stream,omitempty"`
	Typing bool   `json:"typing,omitempty"`
}

type snapshotFrame struct {
	Type    string    `json:"type"`
	RoomID  string    `json:"room_id"`
	Typing  []string  `json:"typing"`
	TakenAt time.Time `json:"taken_at"`
}

type Handler struct {
	tokens *services.TokenVerifier
	hub    *Hub
	access *proxy.AccessControl
	coord  *presence.Coordinator
	log    *logger.Logger
}

func NewHandler(tokens *services.TokenVerifier, hub *Hub, access *proxy.AccessControl, coord *presence.Coordinator, log *logger.Logger) *Handler {
	return &Handler{tokens: tokens, hub: hub, access: access, coord: coord, log: log}
}

// Connect upgrades the HTTP request and serves the read loop until the
// client goes away. Every subscription opened here is released on exit.
func (h *Handler) Connect(c *gin.Context) {
	userID, err := h.tokens.ParseUserID(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, userID.String())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	go client.WriteLoop(ctx)

	presenceSubs := make(map[uuid.UUID]*presence.Subscription)
	defer func() {
		for _, sub := range presenceSubs {
			sub.Close()
		}
		h.hub.Unregister(client)
	}()

	// Idle subscribers are the normal case: the read deadline is refreshed
	// by pong replies to the write loop's pings, not just by data frames.
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame controlFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		h.handleFrame(ctx, client, userID, frame, presenceSubs)
	}
}

func (h *Handler) handleFrame(ctx context.Context, client *Client, userID uuid.UUID, frame controlFrame, presenceSubs map[uuid.UUID]*presence.Subscription) {
	roomID, err := uuid.Parse(frame.RoomID)
	if err != nil {
		return
	}

	switch frame.Action {
	case "subscribe":
		if h.access != nil {
			if err := h.access.CanViewRoom(ctx, userID, roomID); err != nil {
				return
			}
		}
		switch frame.Stream {
		case StreamMessages:
			h.hub.Subscribe(client, events.MessageChannel(roomID.String()))
		case StreamPresence:
			if _, ok := presenceSubs[roomID]; ok {
				return
			}
			sub := h.coord.Subscribe(ctx, roomID, userID)
			presenceSubs[roomID] = sub
			go h.pumpSnapshots(client, sub)
		}

	case "unsubscribe":
		switch frame.Stream {
		case StreamMessages:
			h.hub.Unsubscribe(client, events.MessageChannel(roomID.String()))
		case StreamPresence:
			if sub, ok := presenceSubs[roomID]; ok {
				sub.Close()
				delete(presenceSubs, roomID)
			}
		}

	case "heartbeat":
		h.coord.Heartbeat(ctx, roomID, userID, frame.Typing)
	}
}

// pumpSnapshots forwards coordinator snapshots to the client until the
// subscription closes.
func (h *Handler) pumpSnapshots(client *Client, sub *presence.Subscription) {
	for snap := range sub.Updates() {
		typing := make([]string, 0, len(snap.Typing))
		for _, id := range snap.Typing {
			typing = append(typing, id.String())
		}
		data, err := json.Marshal(snapshotFrame{
			Type:    "presence.snapshot",
			RoomID:  snap.RoomID.String(),
			Typing:  typing,
			TakenAt: snap.TakenAt,
		})
		if err != nil {
			continue
		}
		client.SendMessage(data)
	}
}
