package room

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Room kinds
const (
	KindPrivate = "PRIVATE"
	KindGroup   = "GROUP"
)

// PairKeyDelimiter separates the two identities inside a pair key. It is
// not a legal character in UUID strings, so keys cannot collide.
const PairKeyDelimiter = "|"

// ChatRoom represents the chat_rooms table
type ChatRoom struct {
	ID          uuid.UUID
	Kind        string
	DisplayName sql.NullString
	// PairKey is set only for PRIVATE rooms. The unique index on it is
	// what enforces "at most one private room per pair of users".
	PairKey   sql.NullString `gorm:"uniqueIndex"`
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	// Relationships
	Memberships []Membership `gorm:"foreignKey:RoomID"`
}

// Membership represents the room_memberships table
type Membership struct {
	RoomID   uuid.UUID `gorm:"primaryKey"`
	UserID   uuid.UUID `gorm:"primaryKey"`
	JoinedAt time.Time
	AddedBy  uuid.NullUUID
}

// RoomSequence represents the room_sequences table. LastSeq is the write
// counter that defines message order within a room.
type RoomSequence struct {
	RoomID    uuid.UUID `gorm:"primaryKey"`
	LastSeq   int64
	UpdatedAt time.Time
}

func (ChatRoom) TableName() string {
	return "chat_rooms"
}

func (Membership) TableName() string {
	return "room_memberships"
}

func (RoomSequence) TableName() string {
	return "room_sequences"
}

/// PairKey derives the canonical pairing key for a private room: the two
// ids sorted lexicographically and joined with the delimiter. Order of
// arguments does not matter.
func PairKey(a, b uuid.UUID) string {
	first, second := a.String(), b.String()
	if strings.Compare(first, second) > 0 {
		first, second = second, first
	}
	return first + PairKeyDelimiter + second
}

// IsPrivate reports whether the room is a two-person private room.
func (r ChatRoom) IsPrivate() bool {
	return r.Kind == KindPrivate
}

// MemberIDs returns the user ids of the preloaded memberships.
func (r ChatRoom) MemberIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Memberships))
	for _, m := range r.Memberships {
		ids = append(ids, m.UserID)
	}
	return ids
}
