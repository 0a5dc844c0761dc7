package repository

import (
	"context"
	"errors"

	"ambassador-chat/internal/domain/message"
	chaterrors "ambassador-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return chaterrors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, chaterrors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

// GetRoomMessages returns messages with seq greater than afterSeq, oldest
// first. afterSeq 0 starts from the beginning; the last seq returned is
// the cursor for the next page.
func (r *PostgresMessageRepository) GetRoomMessages(ctx context.Context, roomID uuid.UUID, afterSeq int64, limit int) ([]message.Message, error) {
	var msgs []message.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND seq > ?", roomID, afterSeq).
		Order("seq ASC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *PostgresMessageRepository) DeleteRoomMessages(ctx context.Context, roomID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Delete(&message.Message{}, "room_id = ?", roomID)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *PostgresMessageRepository) CountRoomMessages(ctx context.Context, roomID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
