package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"ambassador-chat/internal/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBus struct {
	mu        sync.Mutex
	published []events.Envelope
}

func (b *recordingBus) Publish(_ context.Context, env events.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, env)
	return nil
}

func (b *recordingBus) eventTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.published))
	for _, env := range b.published {
		out = append(out, env.EventType)
	}
	return out
}

func waitForSnapshot(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Updates():
		require.True(t, ok, "subscription closed unexpectedly")
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func TestHeartbeatNotifiesSubscribers(t *testing.T) {
	bus := &recordingBus{}
	coord := NewCoordinator(time.Second, nil, bus, nil)

	roomID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := coord.Subscribe(ctx, roomID, bob)
	defer sub.Close()

	// Initial snapshot is empty.
	snap := waitForSnapshot(t, sub)
	assert.Empty(t, snap.Typing)

	coord.Heartbeat(context.Background(), roomID, alice, true)
	snap = waitForSnapshot(t, sub)
	assert.Equal(t, []uuid.UUID{alice}, snap.Typing)
	assert.Equal(t, []string{"typing.started"}, bus.eventTypes())

	coord.Heartbeat(context.Background(), roomID, alice, false)
	snap = waitForSnapshot(t, sub)
	assert.Empty(t, snap.Typing)
	assert.Equal(t, []string{"typing.started", "typing.stopped"}, bus.eventTypes())
}

func TestHeartbeatRefreshDoesNotRepublish(t *testing.T) {
	bus := &recordingBus{}
	coord := NewCoordinator(time.Second, nil, bus, nil)

	roomID := uuid.New()
	alice := uuid.New()

	coord.Heartbeat(context.Background(), roomID, alice, true)
	coord.Heartbeat(context.Background(), roomID, alice, true)
	coord.Heartbeat(context.Background(), roomID, alice, true)

	// Only the absent -> typing transition fans out.
	assert.Equal(t, []string{"typing.started"}, bus.eventTypes())
}

func TestSnapshotExcludesCaller(t *testing.T) {
	coord := NewCoordinator(time.Second, nil, nil, nil)

	roomID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	coord.Heartbeat(context.Background(), roomID, alice, true)
	coord.Heartbeat(context.Background(), roomID, bob, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := coord.Subscribe(ctx, roomID, alice)
	defer sub.Close()

	snap := waitForSnapshot(t, sub)
	assert.Equal(t, []uuid.UUID{bob}, snap.Typing)
}

func TestEntriesExpireWithoutHeartbeat(t *testing.T) {
	bus := &recordingBus{}
	coord := NewCoordinator(50*time.Millisecond, nil, bus, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Run(ctx)

	roomID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	sub := coord.Subscribe(ctx, roomID, bob)
	defer sub.Close()
	waitForSnapshot(t, sub)

	coord.Heartbeat(context.Background(), roomID, alice, true)
	snap := waitForSnapshot(t, sub)
	assert.Equal(t, []uuid.UUID{alice}, snap.Typing)

	// No further heartbeats: the entry must decay on its own.
	require.Eventually(t, func() bool {
		select {
		case snap, ok := <-sub.Updates():
			return ok && len(snap.Typing) == 0
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	assert.Contains(t, bus.eventTypes(), "typing.stopped")
}

func TestApplyRemoteDoesNotRepublish(t *testing.T) {
	bus := &recordingBus{}
	coord := NewCoordinator(time.Second, nil, bus, nil)

	roomID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := coord.Subscribe(ctx, roomID, bob)
	defer sub.Close()
	waitForSnapshot(t, sub)

	coord.ApplyRemote(roomID, alice, true)

	snap := waitForSnapshot(t, sub)
	assert.Equal(t, []uuid.UUID{alice}, snap.Typing)
	// Remote events are folded in locally, never echoed back to the bus.
	assert.Empty(t, bus.eventTypes())
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	coord := NewCoordinator(time.Second, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := coord.Subscribe(ctx, uuid.New(), uuid.New())
	waitForSnapshot(t, sub)
	sub.Close()
	sub.Close()

	_, ok := <-sub.Updates()
	assert.False(t, ok)
}

func TestCoalescingKeepsLatestSnapshot(t *testing.T) {
	coord := NewCoordinator(time.Second, nil, nil, nil)

	roomID := uuid.New()
	viewer := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := coord.Subscribe(ctx, roomID, viewer)
	defer sub.Close()

	// Do not drain: pile up changes so older snapshots get replaced.
	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, u := range users {
		coord.Heartbeat(context.Background(), roomID, u, true)
	}

	snap := waitForSnapshot(t, sub)
	assert.ElementsMatch(t, users, snap.Typing)
}
