package httpdto

import (
	"time"

	"ambassador-chat/internal/domain/message"

	"github.com/samber/lo"
)

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type MessageResponse struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Seq       int64     `json:"seq"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ListMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
	// NextCursor is the seq of the last message returned; pass it back as
	// ?after= to resume.
	NextCursor int64 `json:"next_cursor"`
}

func FromMessage(m message.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID.String(),
		RoomID:    m.RoomID.String(),
		SenderID:  m.SenderID.String(),
		Seq:       m.Seq,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func FromMessageSlice(msgs []message.Message) ListMessagesResponse {
	resp := ListMessagesResponse{
		Messages: lo.Map(msgs, func(m message.Message, _ int) MessageResponse {
			return FromMessage(m)
		}),
	}
	if len(msgs) > 0 {
		resp.NextCursor = msgs[len(msgs)-1].Seq
	}
	return resp
}
