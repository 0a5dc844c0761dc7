package message

import (
	"time"

	"github.com/google/uuid"
)

// Message represents the chat_messages table. Rows are immutable once
// written; they are removed only when their room is deleted.
type Message struct {
	ID       uuid.UUID
	RoomID   uuid.UUID `gorm:"index:idx_chat_messages_room_seq,priority:1"`
	SenderID uuid.UUID
	// Seq is assigned from the room sequence inside the send transaction
	// and defines the per-room ordering and the listing cursor.
	Seq       int64 `gorm:"index:idx_chat_messages_room_seq,priority:2"`
	Content   string
	CreatedAt time.Time
}

func (Message) TableName() string {
	return "chat_messages"
}
