package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"ambassador-chat/internal/domain/room"
	"ambassador-chat/internal/events"
	"ambassador-chat/internal/repository"
	chaterrors "ambassador-chat/pkg/errors"
	"ambassador-chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// CreateStrategy selects how private-room dedup is enforced.
type CreateStrategy int

const (
	// StrategyAtomic runs lookup and insert in one transaction.
	StrategyAtomic CreateStrategy = iota
	// StrategyOptimistic inserts blindly and resolves conflicts via the
	// unique pair-key constraint. Used when transactions are unavailable.
	StrategyOptimistic
)

// ProvisioningService turns "chat with user X" into exactly one room.
type ProvisioningService struct {
	repo       repository.RoomRepository
	bus        events.Bus
	log        *logger.Logger
	strategy   CreateStrategy
	maxNameLen int

	// runTx runs fn against a repository bound to one transaction. Nil
	// when no database handle is available; multi-write paths then fall
	// back to the plain repo.
	runTx func(ctx context.Context, fn func(repo repository.RoomRepository) error) error
}

func NewProvisioningService(db *gorm.DB, repo repository.RoomRepository, bus events.Bus, log *logger.Logger, strategy CreateStrategy, maxNameLen int) *ProvisioningService {
	if maxNameLen <= 0 {
		maxNameLen = 120
	}
	s := &ProvisioningService{
		repo:       repo,
		bus:        bus,
		log:        log,
		strategy:   strategy,
		maxNameLen: maxNameLen,
	}
	if db != nil {
		s.runTx = func(ctx context.Context, fn func(repo repository.RoomRepository) error) error {
			return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				return fn(repository.NewRoomRepository(tx))
			})
		}
	}
	return s
}

// GetOrCreatePrivateRoom returns the single private room for the unordered
// pair (callerID, otherID), creating it if needed. existed reports whether
// the room predates this call; a lost creation race is never an error.
func (s *ProvisioningService) GetOrCreatePrivateRoom(ctx context.Context, callerID, otherID uuid.UUID) (room.ChatRoom, bool, error) {
	if callerID == uuid.Nil || otherID == uuid.Nil {
		return room.ChatRoom{}, false, chaterrors.ErrInvalidInput
	}
	if callerID == otherID {
		return room.ChatRoom{}, false, chaterrors.ErrInvalidInput
	}

	if s.strategy == StrategyAtomic && s.runTx != nil {
		return s.getOrCreateAtomic(ctx, callerID, otherID)
	}
	return s.getOrCreateOptimistic(ctx, callerID, otherID)
}

func (s *ProvisioningService) getOrCreateAtomic(ctx context.Context, callerID, otherID uuid.UUID) (room.ChatRoom, bool, error) {
	var result room.ChatRoom
	var existed bool

	pairKey := room.PairKey(callerID, otherID)
	err := s.runTx(ctx, func(repo repository.RoomRepository) error {
		found, err := repo.GetByPairKey(ctx, pairKey)
		if err == nil {
			result = found
			existed = true
			return nil
		}
		if !errors.Is(err, chaterrors.ErrNotFound) {
			return err
		}

		created, err := createPrivateRoom(ctx, repo, callerID, otherID, pairKey)
		if err != nil {
			return err
		}
		result = created
		return nil
	})
	if err != nil {
		// Two transactions can both pass the lookup; the unique index
		// decides the winner and the loser re-reads it.
		if errors.Is(err, chaterrors.ErrAlreadyExists) {
			return s.readWinner(ctx, pairKey)
		}
		return room.ChatRoom{}, false, err
	}

	if !existed {
		s.publishRoomCreated(ctx, result)
	}
	return result, existed, nil
}

func (s *ProvisioningService) getOrCreateOptimistic(ctx context.Context, callerID, otherID uuid.UUID) (room.ChatRoom, bool, error) {
	pairKey := room.PairKey(callerID, otherID)

	created, err := createPrivateRoom(ctx, s.repo, callerID, otherID, pairKey)
	if err == nil {
		s.publishRoomCreated(ctx, created)
		return created, false, nil
	}

	if errors.Is(err, chaterrors.ErrAlreadyExists) {
		return s.readWinner(ctx, pairKey)
	}

	// A partial failure after the room row landed leaves an unusable
	// room; compensate best-effort before reporting the error.
	if errors.Is(err, errPartialPrivateRoom) {
		if delErr := s.repo.RemoveAllMemberships(ctx, created.ID); delErr != nil && s.log != nil {
			s.log.Warnf("compensating membership delete failed for room %s: %v", created.ID, delErr)
		}
		if delErr := s.repo.Delete(ctx, created.ID); delErr != nil && s.log != nil {
			s.log.Warnf("compensating room delete failed for room %s: %v", created.ID, delErr)
		}
		return room.ChatRoom{}, false, chaterrors.ErrServiceUnavailable
	}

	return room.ChatRoom{}, false, err
}

// readWinner fetches the room that won a concurrent creation race.
func (s *ProvisioningService) readWinner(ctx context.Context, pairKey string) (room.ChatRoom, bool, error) {
	winner, err := s.repo.GetByPairKey(ctx, pairKey)
	if err != nil {
		return room.ChatRoom{}, false, err
	}
	return winner, true, nil
}

var errPartialPrivateRoom = errors.New("private room created without memberships")

// createPrivateRoom writes the room row and both memberships. When run
// inside a transaction a failure rolls everything back; the optimistic
// path uses errPartialPrivateRoom to trigger compensation instead.
func createPrivateRoom(ctx context.Context, repo repository.RoomRepository, callerID, otherID uuid.UUID, pairKey string) (room.ChatRoom, error) {
	now := time.Now()
	r := room.ChatRoom{
		ID:        uuid.New(),
		Kind:      room.KindPrivate,
		PairKey:   sql.NullString{String: pairKey, Valid: true},
		CreatedBy: callerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, &r); err != nil {
		return r, err
	}

	for _, userID := range []uuid.UUID{callerID, otherID} {
		m := &room.Membership{
			RoomID:   r.ID,
			UserID:   userID,
			JoinedAt: now,
			AddedBy:  uuid.NullUUID{UUID: callerID, Valid: true},
		}
		if err := repo.AddMembership(ctx, m); err != nil {
			return r, errors.Join(errPartialPrivateRoom, err)
		}
		r.Memberships = append(r.Memberships, *m)
	}
	return r, nil
}

// CreateGroupRoom creates a named group room with the creator plus at
// least two distinct other members, all in one transaction.
func (s *ProvisioningService) CreateGroupRoom(ctx context.Context, creatorID uuid.UUID, name string, memberIDs []uuid.UUID) (room.ChatRoom, error) {
	if creatorID == uuid.Nil {
		return room.ChatRoom{}, chaterrors.ErrInvalidInput
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > s.maxNameLen {
		return room.ChatRoom{}, chaterrors.ErrInvalidInput
	}

	members := lo.Uniq(lo.Filter(memberIDs, func(id uuid.UUID, _ int) bool {
		return id != uuid.Nil && id != creatorID
	}))
	if len(members) < 2 {
		return room.ChatRoom{}, chaterrors.ErrInvalidInput
	}

	now := time.Now()
	r := room.ChatRoom{
		ID:          uuid.New(),
		Kind:        room.KindGroup,
		DisplayName: sql.NullString{String: name, Valid: true},
		CreatedBy:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	run := func(repo repository.RoomRepository) error {
		if err := repo.Create(ctx, &r); err != nil {
			return err
		}
		for _, userID := range append([]uuid.UUID{creatorID}, members...) {
			m := &room.Membership{
				RoomID:   r.ID,
				UserID:   userID,
				JoinedAt: now,
				AddedBy:  uuid.NullUUID{UUID: creatorID, Valid: true},
			}
			if err := repo.AddMembership(ctx, m); err != nil {
				return err
			}
			r.Memberships = append(r.Memberships, *m)
		}
		return nil
	}

	var err error
	if s.runTx != nil {
		err = s.runTx(ctx, run)
	} else {
		err = run(s.repo)
	}
	if err != nil {
		return room.ChatRoom{}, err
	}

	s.publishRoomCreated(ctx, r)
	return r, nil
}

func (s *ProvisioningService) publishRoomCreated(ctx context.Context, r room.ChatRoom) {
	if s.bus == nil {
		return
	}
	env, err := events.NewEnvelope(events.EventTypeRoomCreated, events.AggregateTypeRoom, r.ID.String(), r.ID.String(), map[string]any{
		"room_id":    r.ID.String(),
		"kind":       r.Kind,
		"created_by": r.CreatedBy.String(),
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, env); err != nil && s.log != nil {
		s.log.Warnf("failed to publish room.created for %s: %v", r.ID, err)
	}
}
