package presence

import (
	"context"
	"sync"
	"time"

	"ambassador-chat/internal/events"
	"ambassador-chat/internal/redis"
	"ambassador-chat/pkg/logger"

	"github.com/google/uuid"
)

// DefaultTTL is how long a typing entry survives without a heartbeat.
const DefaultTTL = 3 * time.Second

// Entry is the ephemeral typing record for one user in one room. It is
// never persisted; a restart simply forgets everyone.
type Entry struct {
	RoomID          uuid.UUID
	UserID          uuid.UUID
	Typing          bool
	LastHeartbeatAt time.Time
}

// Snapshot is the set of users currently typing in a room at one point in
// time, with the receiving subscriber already excluded.
type Snapshot struct {
	RoomID  uuid.UUID   `json:"room_id"`
	Typing  []uuid.UUID `json:"typing"`
	TakenAt time.Time   `json:"taken_at"`
}

// Coordinator tracks who is typing per room. State moves only two ways:
// absent -> typing on a heartbeat with typing=true, and typing -> absent
// on TTL expiry or a heartbeat with typing=false. Expiry is the sole
// decay path, so crashed clients clean up on their own.
type Coordinator struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[uuid.UUID]time.Time
	subs  map[uuid.UUID]map[*Subscription]struct{}

	ttl    time.Duration
	typing *redis.TypingStore
	bus    events.Bus
	log    *logger.Logger
}

func NewCoordinator(ttl time.Duration, typing *redis.TypingStore, bus events.Bus, log *logger.Logger) *Coordinator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Coordinator{
		rooms:  make(map[uuid.UUID]map[uuid.UUID]time.Time),
		subs:   make(map[uuid.UUID]map[*Subscription]struct{}),
		ttl:    ttl,
		typing: typing,
		bus:    bus,
		log:    log,
	}
}

// Run drives TTL expiry until the context is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.expire(ctx, now)
		}
	}
}

// Heartbeat refreshes or clears the typing entry for (roomID, userID).
// It is idempotent: repeated heartbeats just move the deadline.
func (c *Coordinator) Heartbeat(ctx context.Context, roomID, userID uuid.UUID, typing bool) {
	changed := c.apply(roomID, userID, typing)

	if c.typing != nil {
		if err := c.typing.Track(ctx, roomID.String(), userID.String(), typing); err != nil && c.log != nil {
			c.log.Warnf("typing mirror update failed for room %s: %v", roomID, err)
		}
	}

	if changed {
		c.publishTyping(ctx, roomID, userID, typing)
		c.broadcast(roomID)
	}
}

// ApplyRemote folds a typing event that originated on another node into
// local state. It never republishes or touches the Redis mirror, so
// events cannot loop between nodes.
func (c *Coordinator) ApplyRemote(roomID, userID uuid.UUID, typing bool) {
	if c.apply(roomID, userID, typing) {
		c.broadcast(roomID)
	}
}

// apply mutates local state and reports whether the typing set changed.
func (c *Coordinator) apply(roomID, userID uuid.UUID, typing bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	users := c.rooms[roomID]
	if typing {
		if users == nil {
			users = make(map[uuid.UUID]time.Time)
			c.rooms[roomID] = users
		}
		_, existed := users[userID]
		users[userID] = time.Now()
		return !existed
	}

	if users == nil {
		return false
	}
	if _, existed := users[userID]; !existed {
		return false
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(c.rooms, roomID)
	}
	return true
}

// expire drops entries whose last heartbeat is older than the TTL and
// notifies subscribers of every room that changed.
func (c *Coordinator) expire(ctx context.Context, now time.Time) {
	type expired struct {
		roomID uuid.UUID
		userID uuid.UUID
	}
	var dropped []expired

	c.mu.Lock()
	cutoff := now.Add(-c.ttl)
	for roomID, users := range c.rooms {
		for userID, beat := range users {
			if beat.Before(cutoff) {
				delete(users, userID)
				dropped = append(dropped, expired{roomID: roomID, userID: userID})
			}
		}
		if len(users) == 0 {
			delete(c.rooms, roomID)
		}
	}
	c.mu.Unlock()

	seen := make(map[uuid.UUID]struct{})
	for _, d := range dropped {
		if c.typing != nil {
			if err := c.typing.Track(ctx, d.roomID.String(), d.userID.String(), false); err != nil && c.log != nil {
				c.log.Warnf("typing mirror expiry failed for room %s: %v", d.roomID, err)
			}
		}
		c.publishTyping(ctx, d.roomID, d.userID, false)
		if _, ok := seen[d.roomID]; !ok {
			seen[d.roomID] = struct{}{}
			c.broadcast(d.roomID)
		}
	}
}

// Subscription is one caller's live view of a room's typing set. Updates
// are coalesced: a slow consumer sees the latest snapshot, not a backlog.
type Subscription struct {
	roomID   uuid.UUID
	callerID uuid.UUID
	ch       chan Snapshot
	once     sync.Once
	coord    *Coordinator

	mu     sync.Mutex
	closed bool
}

// Updates yields a snapshot whenever the typing set changes.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.ch
}

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.coord.unsubscribe(s)
	})
}

// Subscribe registers a caller on a room's presence stream. The current
// snapshot is delivered immediately; the subscription is torn down when
// ctx ends or Close is called.
func (c *Coordinator) Subscribe(ctx context.Context, roomID, callerID uuid.UUID) *Subscription {
	sub := &Subscription{
		roomID:   roomID,
		callerID: callerID,
		ch:       make(chan Snapshot, 1),
		coord:    c,
	}

	c.mu.Lock()
	if c.subs[roomID] == nil {
		c.subs[roomID] = make(map[*Subscription]struct{})
	}
	c.subs[roomID][sub] = struct{}{}
	c.mu.Unlock()

	sub.push(c.snapshot(roomID, callerID))

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub
}

func (c *Coordinator) unsubscribe(sub *Subscription) {
	c.mu.Lock()
	if subs, ok := c.subs[sub.roomID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(c.subs, sub.roomID)
		}
	}
	c.mu.Unlock()

	sub.mu.Lock()
	sub.closed = true
	close(sub.ch)
	sub.mu.Unlock()
}

// Snapshot returns the current typing set of a room, excluding callerID.
func (c *Coordinator) snapshot(roomID, callerID uuid.UUID) Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{RoomID: roomID, TakenAt: time.Now()}
	for userID := range c.rooms[roomID] {
		if userID == callerID {
			continue
		}
		snap.Typing = append(snap.Typing, userID)
	}
	return snap
}

func (c *Coordinator) broadcast(roomID uuid.UUID) {
	c.mu.RLock()
	subs := make([]*Subscription, 0, len(c.subs[roomID]))
	for sub := range c.subs[roomID] {
		subs = append(subs, sub)
	}
	c.mu.RUnlock()

	for _, sub := range subs {
		sub.push(c.snapshot(roomID, sub.callerID))
	}
}

// push replaces any undelivered snapshot with the latest one.
func (s *Subscription) push(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- snap:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

func (c *Coordinator) publishTyping(ctx context.Context, roomID, userID uuid.UUID, typing bool) {
	if c.bus == nil {
		return
	}
	eventType := events.EventTypeTypingStopped
	if typing {
		eventType = events.EventTypeTypingStarted
	}
	env, err := events.NewEnvelope(eventType, events.AggregateTypePresence, userID.String(), roomID.String(), map[string]any{
		"room_id": roomID.String(),
		"user_id": userID.String(),
		"typing":  typing,
	})
	if err != nil {
		return
	}
	if err := c.bus.Publish(ctx, env); err != nil && c.log != nil {
		c.log.Warnf("failed to publish typing event for room %s: %v", roomID, err)
	}
}
