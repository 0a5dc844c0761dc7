package repository

import (
	"context"

	"ambassador-chat/internal/domain/message"
	"ambassador-chat/internal/domain/room"

	"github.com/google/uuid"
)

type RoomRepository interface {
	Create(ctx context.Context, r *room.ChatRoom) error
	GetByID(ctx context.Context, id uuid.UUID) (room.ChatRoom, error)
	GetByPairKey(ctx context.Context, pairKey string) (room.ChatRoom, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetUserRooms(ctx context.Context, userID uuid.UUID, page, limit int) ([]room.ChatRoom, int64, error)

	AddMembership(ctx context.Context, m *room.Membership) error
	RemoveMembership(ctx context.Context, roomID, userID uuid.UUID) error
	RemoveAllMemberships(ctx context.Context, roomID uuid.UUID) error
	GetMemberships(ctx context.Context, roomID uuid.UUID) ([]room.Membership, error)
	IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	GetMemberCount(ctx context.Context, roomID uuid.UUID) (int64, error)

	IncrementSequence(ctx context.Context, roomID uuid.UUID) (int64, error)
	DeleteSequence(ctx context.Context, roomID uuid.UUID) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	GetRoomMessages(ctx context.Context, roomID uuid.UUID, afterSeq int64, limit int) ([]message.Message, error)
	DeleteRoomMessages(ctx context.Context, roomID uuid.UUID) (int64, error)
	CountRoomMessages(ctx context.Context, roomID uuid.UUID) (int64, error)
}
