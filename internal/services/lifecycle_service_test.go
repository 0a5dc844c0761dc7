package services

import (
	"context"
	"errors"
	"testing"

	chaterrors "ambassador-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lifecycleFixture struct {
	svc      *LifecycleService
	roomRepo *fakeRoomRepo
	msgRepo  *fakeMessageRepo
	links    *fakeLinkCleaner
	bus      *fakeBus
	roomID   uuid.UUID
	alice    uuid.UUID
	bob      uuid.UUID
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()

	roomRepo := newFakeRoomRepo()
	msgRepo := newFakeMessageRepo()
	links := &fakeLinkCleaner{}
	bus := &fakeBus{}

	provisioning := newProvisioningService(roomRepo, &fakeBus{})
	alice := uuid.New()
	bob := uuid.New()
	r, _, err := provisioning.GetOrCreatePrivateRoom(context.Background(), alice, bob)
	require.NoError(t, err)

	messages := NewMessageService(nil, msgRepo, roomRepo, nil, nil, nil, nil, nil, 0)
	for i := 0; i < 3; i++ {
		_, err := messages.Send(context.Background(), r.ID, alice, "payload")
		require.NoError(t, err)
	}

	return &lifecycleFixture{
		svc:      NewLifecycleService(nil, roomRepo, msgRepo, links, nil, bus, nil),
		roomRepo: roomRepo,
		msgRepo:  msgRepo,
		links:    links,
		bus:      bus,
		roomID:   r.ID,
		alice:    alice,
		bob:      bob,
	}
}

func TestDeleteRoomRemovesEverything(t *testing.T) {
	f := newLifecycleFixture(t)

	require.NoError(t, f.svc.DeleteRoom(context.Background(), f.roomID, f.alice))

	_, err := f.roomRepo.GetByID(context.Background(), f.roomID)
	assert.ErrorIs(t, err, chaterrors.ErrNotFound)

	count, err := f.msgRepo.CountRoomMessages(context.Background(), f.roomID)
	require.NoError(t, err)
	assert.Zero(t, count)

	members, err := f.roomRepo.GetMemberships(context.Background(), f.roomID)
	require.NoError(t, err)
	assert.Empty(t, members)

	assert.NotContains(t, f.roomRepo.seqs, f.roomID)
	assert.Equal(t, []uuid.UUID{f.roomID}, f.links.calls)
	assert.Equal(t, []string{"room.deleted"}, f.bus.eventTypes())

	// A pair that lost its room can provision a fresh one.
	provisioning := newProvisioningService(f.roomRepo, &fakeBus{})
	fresh, existed, err := provisioning.GetOrCreatePrivateRoom(context.Background(), f.alice, f.bob)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.NotEqual(t, f.roomID, fresh.ID)
}

func TestDeleteRoomAbortsWhenLinkCleanupFails(t *testing.T) {
	f := newLifecycleFixture(t)
	f.links.err = errors.New("collaborator down")

	err := f.svc.DeleteRoom(context.Background(), f.roomID, f.alice)
	assert.ErrorIs(t, err, chaterrors.ErrDependency)

	// Nothing was touched; the whole delete can be retried.
	_, err = f.roomRepo.GetByID(context.Background(), f.roomID)
	require.NoError(t, err)

	count, err := f.msgRepo.CountRoomMessages(context.Background(), f.roomID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	assert.Empty(t, f.bus.eventTypes())
}

func TestDeleteRoomRequiresMembership(t *testing.T) {
	f := newLifecycleFixture(t)

	err := f.svc.DeleteRoom(context.Background(), f.roomID, uuid.New())
	assert.ErrorIs(t, err, chaterrors.ErrForbidden)
}

func TestDeleteRoomMissing(t *testing.T) {
	f := newLifecycleFixture(t)

	err := f.svc.DeleteRoom(context.Background(), uuid.New(), f.alice)
	assert.ErrorIs(t, err, chaterrors.ErrNotFound)
}
