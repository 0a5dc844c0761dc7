package services

import (
	"context"
	"sort"
	"sync"

	"ambassador-chat/internal/domain/message"
	"ambassador-chat/internal/domain/room"
	"ambassador-chat/internal/events"
	chaterrors "ambassador-chat/pkg/errors"

	"github.com/google/uuid"
)

// fakeRoomRepo is an in-memory stand-in for the Postgres room store. It
// enforces the same uniqueness rules the real schema does: one room per
// pair key, one membership per (room, user).
type fakeRoomRepo struct {
	mu        sync.Mutex
	rooms     map[uuid.UUID]room.ChatRoom
	byPairKey map[string]uuid.UUID
	members   map[uuid.UUID]map[uuid.UUID]room.Membership
	seqs      map[uuid.UUID]int64

	// failMembershipFor makes AddMembership fail for one user id, to
	// exercise the partial-creation compensation path.
	failMembershipFor uuid.UUID
	membershipErr     error

	// missPairKeyOnce makes the next GetByPairKey miss even when the row
	// exists, simulating a lookup that raced a concurrent creator.
	missPairKeyOnce bool
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{
		rooms:     make(map[uuid.UUID]room.ChatRoom),
		byPairKey: make(map[string]uuid.UUID),
		members:   make(map[uuid.UUID]map[uuid.UUID]room.Membership),
		seqs:      make(map[uuid.UUID]int64),
	}
}

func (f *fakeRoomRepo) Create(_ context.Context, r *room.ChatRoom) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.PairKey.Valid {
		if _, ok := f.byPairKey[r.PairKey.String]; ok {
			return chaterrors.ErrAlreadyExists
		}
		f.byPairKey[r.PairKey.String] = r.ID
	}
	stored := *r
	stored.Memberships = nil
	f.rooms[r.ID] = stored
	return nil
}

func (f *fakeRoomRepo) GetByID(_ context.Context, id uuid.UUID) (room.ChatRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	if !ok {
		return room.ChatRoom{}, chaterrors.ErrNotFound
	}
	return f.withMembershipsLocked(r), nil
}

func (f *fakeRoomRepo) GetByPairKey(_ context.Context, pairKey string) (room.ChatRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missPairKeyOnce {
		f.missPairKeyOnce = false
		return room.ChatRoom{}, chaterrors.ErrNotFound
	}
	id, ok := f.byPairKey[pairKey]
	if !ok {
		return room.ChatRoom{}, chaterrors.ErrNotFound
	}
	return f.withMembershipsLocked(f.rooms[id]), nil
}

func (f *fakeRoomRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	if !ok {
		return chaterrors.ErrNotFound
	}
	if r.PairKey.Valid {
		delete(f.byPairKey, r.PairKey.String)
	}
	delete(f.rooms, id)
	return nil
}

func (f *fakeRoomRepo) GetUserRooms(_ context.Context, userID uuid.UUID, page, limit int) ([]room.ChatRoom, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []room.ChatRoom
	for id, members := range f.members {
		if _, ok := members[userID]; ok {
			out = append(out, f.withMembershipsLocked(f.rooms[id]))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	total := int64(len(out))
	start := (page - 1) * limit
	if start >= len(out) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (f *fakeRoomRepo) AddMembership(_ context.Context, m *room.Membership) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.membershipErr != nil && m.UserID == f.failMembershipFor {
		return f.membershipErr
	}
	if f.members[m.RoomID] == nil {
		f.members[m.RoomID] = make(map[uuid.UUID]room.Membership)
	}
	if _, ok := f.members[m.RoomID][m.UserID]; ok {
		return chaterrors.ErrAlreadyExists
	}
	f.members[m.RoomID][m.UserID] = *m
	return nil
}

func (f *fakeRoomRepo) RemoveMembership(_ context.Context, roomID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	members, ok := f.members[roomID]
	if !ok {
		return chaterrors.ErrNotFound
	}
	if _, ok := members[userID]; !ok {
		return chaterrors.ErrNotFound
	}
	delete(members, userID)
	return nil
}

func (f *fakeRoomRepo) RemoveAllMemberships(_ context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members, roomID)
	return nil
}

func (f *fakeRoomRepo) GetMemberships(_ context.Context, roomID uuid.UUID) ([]room.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []room.Membership
	for _, m := range f.members[roomID] {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeRoomRepo) IsMember(_ context.Context, roomID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.members[roomID][userID]
	return ok, nil
}

func (f *fakeRoomRepo) GetMemberCount(_ context.Context, roomID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.members[roomID])), nil
}

func (f *fakeRoomRepo) IncrementSequence(_ context.Context, roomID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seqs[roomID]++
	return f.seqs[roomID], nil
}

func (f *fakeRoomRepo) DeleteSequence(_ context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seqs, roomID)
	return nil
}

func (f *fakeRoomRepo) withMembershipsLocked(r room.ChatRoom) room.ChatRoom {
	r.Memberships = nil
	for _, m := range f.members[r.ID] {
		r.Memberships = append(r.Memberships, m)
	}
	return r
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[uuid.UUID][]message.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[uuid.UUID][]message.Message)}
}

func (f *fakeMessageRepo) Create(_ context.Context, m *message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[m.RoomID] = append(f.messages[m.RoomID], *m)
	return nil
}

func (f *fakeMessageRepo) GetByID(_ context.Context, id uuid.UUID) (message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msgs := range f.messages {
		for _, m := range msgs {
			if m.ID == id {
				return m, nil
			}
		}
	}
	return message.Message{}, chaterrors.ErrNotFound
}

func (f *fakeMessageRepo) GetRoomMessages(_ context.Context, roomID uuid.UUID, afterSeq int64, limit int) ([]message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []message.Message
	for _, m := range f.messages[roomID] {
		if m.Seq > afterSeq {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMessageRepo) DeleteRoomMessages(_ context.Context, roomID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.messages[roomID]))
	delete(f.messages, roomID)
	return n, nil
}

func (f *fakeMessageRepo) CountRoomMessages(_ context.Context, roomID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.messages[roomID])), nil
}

// fakeBus records every published envelope.
type fakeBus struct {
	mu        sync.Mutex
	published []events.Envelope
	err       error
}

func (f *fakeBus) Publish(_ context.Context, env events.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, env)
	return nil
}

func (f *fakeBus) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.published))
	for _, env := range f.published {
		out = append(out, env.EventType)
	}
	return out
}

type fakeLinkCleaner struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
}

func (f *fakeLinkCleaner) RemoveLinksForRoom(_ context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, roomID)
	return nil
}

type fakeIdentityResolver struct {
	identities map[uuid.UUID]DisplayIdentity
	err        error
}

func (f *fakeIdentityResolver) Resolve(_ context.Context, userID uuid.UUID) (DisplayIdentity, error) {
	if f.err != nil {
		return DisplayIdentity{}, f.err
	}
	if identity, ok := f.identities[userID]; ok {
		return identity, nil
	}
	return DisplayIdentity{UserID: userID.String()}, nil
}
