package services

import (
	"context"
	"errors"
	"time"

	"ambassador-chat/internal/domain/room"
	"ambassador-chat/internal/events"
	"ambassador-chat/internal/proxy"
	"ambassador-chat/internal/repository"
	chaterrors "ambassador-chat/pkg/errors"
	"ambassador-chat/pkg/logger"

	"github.com/google/uuid"
)

// RoomService exposes the room store: lookups, listings and membership
// changes for existing rooms. Creation lives in ProvisioningService,
// deletion in LifecycleService.
type RoomService struct {
	repo   repository.RoomRepository
	access *proxy.AccessControl
	bus    events.Bus
	log    *logger.Logger
}

func NewRoomService(repo repository.RoomRepository, access *proxy.AccessControl, bus events.Bus, log *logger.Logger) *RoomService {
	return &RoomService{repo: repo, access: access, bus: bus, log: log}
}

func (s *RoomService) FindRoom(ctx context.Context, roomID, callerID uuid.UUID) (room.ChatRoom, error) {
	if s.access != nil {
		if err := s.access.CanViewRoom(ctx, callerID, roomID); err != nil {
			return room.ChatRoom{}, err
		}
	}
	return s.repo.GetByID(ctx, roomID)
}

func (s *RoomService) ListRoomsForUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]room.ChatRoom, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	return s.repo.GetUserRooms(ctx, userID, page, limit)
}

func (s *RoomService) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	return s.repo.IsMember(ctx, roomID, userID)
}

// AddParticipant adds a user to a group room. Adding an existing member is
// a no-op; private rooms never grow.
func (s *RoomService) AddParticipant(ctx context.Context, roomID, actorID, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return chaterrors.ErrInvalidInput
	}
	if s.access != nil {
		if err := s.access.CanManageParticipants(ctx, actorID, roomID); err != nil {
			return err
		}
	}

	r, err := s.repo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if r.IsPrivate() {
		return chaterrors.ErrInvalidTransition
	}

	m := &room.Membership{
		RoomID:   roomID,
		UserID:   userID,
		JoinedAt: time.Now(),
		AddedBy:  uuid.NullUUID{UUID: actorID, Valid: true},
	}
	if err := s.repo.AddMembership(ctx, m); err != nil {
		if errors.Is(err, chaterrors.ErrAlreadyExists) {
			return nil
		}
		return err
	}

	s.publishParticipantEvent(ctx, events.EventTypeParticipantAdded, roomID, userID)
	return nil
}

// minGroupMembers is the floor a group room is created with and never
// shrinks below: the creator plus two other members.
const minGroupMembers = 3

// RemoveParticipant removes a user from a group room. Private rooms stay
// at exactly two members for their lifetime; the only way out is deletion.
// Group rooms never shrink below minGroupMembers.
func (s *RoomService) RemoveParticipant(ctx context.Context, roomID, actorID, userID uuid.UUID) error {
	if s.access != nil {
		if err := s.access.CanManageParticipants(ctx, actorID, roomID); err != nil {
			return err
		}
	}

	r, err := s.repo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if r.IsPrivate() {
		return chaterrors.ErrInvalidTransition
	}

	isMember, err := s.repo.IsMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return chaterrors.ErrNotFound
	}

	count, err := s.repo.GetMemberCount(ctx, roomID)
	if err != nil {
		return err
	}
	if count <= minGroupMembers {
		return chaterrors.ErrInvalidTransition
	}

	if err := s.repo.RemoveMembership(ctx, roomID, userID); err != nil {
		return err
	}

	s.publishParticipantEvent(ctx, events.EventTypeParticipantRemoved, roomID, userID)
	return nil
}

func (s *RoomService) publishParticipantEvent(ctx context.Context, eventType string, roomID, userID uuid.UUID) {
	if s.bus == nil {
		return
	}
	env, err := events.NewEnvelope(eventType, events.AggregateTypeRoom, roomID.String(), roomID.String(), map[string]any{
		"room_id": roomID.String(),
		"user_id": userID.String(),
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, env); err != nil && s.log != nil {
		s.log.Warnf("failed to publish %s for room %s: %v", eventType, roomID, err)
	}
}
