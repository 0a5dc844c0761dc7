package proxy

import (
	"context"

	"ambassador-chat/internal/repository"
	chaterrors "ambassador-chat/pkg/errors"

	"github.com/google/uuid"
)

// AccessControl answers membership-based authorization questions for the
// conversation core. Callers are expected to be authenticated already;
// this only checks that they belong to the room they act on.
type AccessControl struct {
	roomRepo repository.RoomRepository
}

func NewAccessControl(roomRepo repository.RoomRepository) *AccessControl {
	return &AccessControl{roomRepo: roomRepo}
}

func (a *AccessControl) CanSendMessage(ctx context.Context, userID, roomID uuid.UUID) error {
	return a.ensureMember(ctx, roomID, userID)
}

func (a *AccessControl) CanViewRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	return a.ensureMember(ctx, roomID, userID)
}

func (a *AccessControl) CanDeleteRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	return a.ensureMember(ctx, roomID, userID)
}

func (a *AccessControl) CanManageParticipants(ctx context.Context, userID, roomID uuid.UUID) error {
	return a.ensureMember(ctx, roomID, userID)
}

func (a *AccessControl) ensureMember(ctx context.Context, roomID, userID uuid.UUID) error {
	if a.roomRepo == nil {
		return chaterrors.ErrForbidden
	}
	ok, err := a.roomRepo.IsMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return chaterrors.ErrForbidden
	}
	return nil
}
