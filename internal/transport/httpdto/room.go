package httpdto

import (
	"time"

	"ambassador-chat/internal/domain/room"

	"github.com/samber/lo"
)

type CreatePrivateRoomRequest struct {
	OtherUserID string `json:"other_user_id" binding:"required,uuid"`
}

type CreateGroupRoomRequest struct {
	Name    string   `json:"name" binding:"required"`
	Members []string `json:"members" binding:"required,min=2,dive,uuid"`
}

type AddParticipantRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

type RoomResponse struct {
	ID          string           `json:"id"`
	Kind        string           `json:"kind"`
	DisplayName string           `json:"display_name,omitempty"`
	CreatedBy   string           `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
	Members     []MemberResponse `json:"members,omitempty"`
	// Existed is set on private-room provisioning: true means the caller
	// joined a conversation that already existed.
	Existed *bool `json:"existed,omitempty"`
}

type MemberResponse struct {
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

type ListRoomsResponse struct {
	Rooms []RoomResponse `json:"rooms"`
	Total int64          `json:"total"`
}

type MembershipResponse struct {
	RoomID   string `json:"room_id"`
	IsMember bool   `json:"is_member"`
}

func FromRoom(r room.ChatRoom) RoomResponse {
	return RoomResponse{
		ID:          r.ID.String(),
		Kind:        r.Kind,
		DisplayName: r.DisplayName.String,
		CreatedBy:   r.CreatedBy.String(),
		CreatedAt:   r.CreatedAt,
		Members: lo.Map(r.Memberships, func(m room.Membership, _ int) MemberResponse {
			return MemberResponse{UserID: m.UserID.String(), JoinedAt: m.JoinedAt}
		}),
	}
}

func FromRoomWithExisted(r room.ChatRoom, existed bool) RoomResponse {
	resp := FromRoom(r)
	resp.Existed = &existed
	return resp
}

func FromRoomSlice(rooms []room.ChatRoom) []RoomResponse {
	return lo.Map(rooms, func(r room.ChatRoom, _ int) RoomResponse {
		return FromRoom(r)
	})
}
