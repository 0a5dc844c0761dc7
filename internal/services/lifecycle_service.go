package services

import (
	"context"
	"fmt"

	"ambassador-chat/internal/events"
	"ambassador-chat/internal/redis"
	"ambassador-chat/internal/repository"
	chaterrors "ambassador-chat/pkg/errors"
	"ambassador-chat/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LifecycleService tears down a room and every dependent row. External
// links are cleaned first through the collaborator hook; the database rows
// then go in one transaction, so a caller either sees the room whole or
// gone, never half-deleted.
type LifecycleService struct {
	db          *gorm.DB
	roomRepo    repository.RoomRepository
	messageRepo repository.MessageRepository
	links       LinkCleaner
	typing      *redis.TypingStore
	bus         events.Bus
	log         *logger.Logger
}

func NewLifecycleService(
	db *gorm.DB,
	roomRepo repository.RoomRepository,
	messageRepo repository.MessageRepository,
	links LinkCleaner,
	typing *redis.TypingStore,
	bus events.Bus,
	log *logger.Logger,
) *LifecycleService {
	return &LifecycleService{
		db:          db,
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		links:       links,
		typing:      typing,
		bus:         bus,
		log:         log,
	}
}

// DeleteRoom removes a room with all its messages and memberships.
// Order: collaborator links, messages, sequence, memberships, room row.
// If the link hook fails nothing at all is removed. The hook is idempotent
// by contract, so a crash between the hook and the commit is safe to
// retry.
func (s *LifecycleService) DeleteRoom(ctx context.Context, roomID, requesterID uuid.UUID) error {
	if _, err := s.roomRepo.GetByID(ctx, roomID); err != nil {
		return err
	}

	isMember, err := s.roomRepo.IsMember(ctx, roomID, requesterID)
	if err != nil {
		return err
	}
	if !isMember {
		return chaterrors.ErrForbidden
	}

	if s.links != nil {
		if err := s.links.RemoveLinksForRoom(ctx, roomID); err != nil {
			return fmt.Errorf("%w: removing links for room %s: %v", chaterrors.ErrDependency, roomID, err)
		}
	}

	run := func(roomRepo repository.RoomRepository, msgRepo repository.MessageRepository) error {
		if _, err := msgRepo.DeleteRoomMessages(ctx, roomID); err != nil {
			return err
		}
		if err := roomRepo.DeleteSequence(ctx, roomID); err != nil {
			return err
		}
		if err := roomRepo.RemoveAllMemberships(ctx, roomID); err != nil {
			return err
		}
		// Concurrent deleters serialize here; the loser gets ErrNotFound.
		return roomRepo.Delete(ctx, roomID)
	}

	if s.db != nil {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return run(repository.NewRoomRepository(tx), repository.NewMessageRepository(tx))
		})
	} else {
		err = run(s.roomRepo, s.messageRepo)
	}
	if err != nil {
		return err
	}

	if s.typing != nil {
		if err := s.typing.Clear(ctx, roomID.String()); err != nil && s.log != nil {
			s.log.Warnf("failed to clear typing set for room %s: %v", roomID, err)
		}
	}
	s.publishRoomDeleted(ctx, roomID, requesterID)
	return nil
}

func (s *LifecycleService) publishRoomDeleted(ctx context.Context, roomID, requesterID uuid.UUID) {
	if s.bus == nil {
		return
	}
	env, err := events.NewEnvelope(events.EventTypeRoomDeleted, events.AggregateTypeRoom, roomID.String(), roomID.String(), map[string]any{
		"room_id":    roomID.String(),
		"deleted_by": requesterID.String(),
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, env); err != nil && s.log != nil {
		s.log.Warnf("failed to publish room.deleted for %s: %v", roomID, err)
	}
}
