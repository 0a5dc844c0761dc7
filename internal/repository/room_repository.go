package repository

import (
	"context"
	"errors"

	"ambassador-chat/internal/domain/room"
	chaterrors "ambassador-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresRoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &PostgresRoomRepository{db: db}
}

func (r *PostgresRoomRepository) Create(ctx context.Context, c *room.ChatRoom) error {
	res := r.db.WithContext(ctx).Create(c)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return chaterrors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (room.ChatRoom, error) {
	var c room.ChatRoom
	err := r.db.WithContext(ctx).
		Preload("Memberships").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return room.ChatRoom{}, chaterrors.ErrNotFound
		}
		return room.ChatRoom{}, err
	}
	return c, nil
}

func (r *PostgresRoomRepository) GetByPairKey(ctx context.Context, pairKey string) (room.ChatRoom, error) {
	var c room.ChatRoom
	err := r.db.WithContext(ctx).
		Preload("Memberships").
		Where("pair_key = ?", pairKey).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return room.ChatRoom{}, chaterrors.ErrNotFound
		}
		return room.ChatRoom{}, err
	}
	return c, nil
}

func (r *PostgresRoomRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&room.ChatRoom{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}

func (r *PostgresRoomRepository) GetUserRooms(ctx context.Context, userID uuid.UUID, page, limit int) ([]room.ChatRoom, int64, error) {
	var rooms []room.ChatRoom
	var total int64

	subQuery := r.db.Model(&room.Membership{}).
		Select("room_id").
		Where("user_id = ?", userID)

	q := r.db.WithContext(ctx).
		Model(&room.ChatRoom{}).
		Where("id IN (?)", subQuery)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := q.
		Preload("Memberships").
		Order("updated_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&rooms).Error; err != nil {
		return nil, 0, err
	}

	return rooms, total, nil
}

func (r *PostgresRoomRepository) AddMembership(ctx context.Context, m *room.Membership) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return chaterrors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresRoomRepository) RemoveMembership(ctx context.Context, roomID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Delete(&room.Membership{}, "room_id = ? AND user_id = ?", roomID, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}

func (r *PostgresRoomRepository) RemoveAllMemberships(ctx context.Context, roomID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&room.Membership{}, "room_id = ?", roomID).Error
}

func (r *PostgresRoomRepository) GetMemberships(ctx context.Context, roomID uuid.UUID) ([]room.Membership, error) {
	var memberships []room.Membership
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *PostgresRoomRepository) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&room.Membership{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresRoomRepository) GetMemberCount(ctx context.Context, roomID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&room.Membership{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// IncrementSequence advances the room's write counter and returns the new
// value. The whole increment is a single upsert so two concurrent senders
// can never read the same counter value and hand out a duplicate seq.
func (r *PostgresRoomRepository) IncrementSequence(ctx context.Context, roomID uuid.UUID) (int64, error) {
	var lastSeq int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO room_sequences (room_id, last_seq, updated_at)
		VALUES (?, 1, NOW())
		ON CONFLICT (room_id)
		DO UPDATE SET last_seq = room_sequences.last_seq + 1, updated_at = NOW()
		RETURNING last_seq`, roomID).Scan(&lastSeq).Error
	if err != nil {
		return 0, err
	}
	return lastSeq, nil
}

func (r *PostgresRoomRepository) DeleteSequence(ctx context.Context, roomID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&room.RoomSequence{}, "room_id = ?", roomID).Error
}
