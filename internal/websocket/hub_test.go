package websocket

import (
	"context"
	"testing"
	"time"

	"ambassador-chat/internal/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestHubBroadcastReachesSubscribers(t *testing.T) {
	hub := startHub(t)
	channel := events.MessageChannel(uuid.New().String())

	alice := NewClient(nil, uuid.New().String())
	bob := NewClient(nil, uuid.New().String())

	hub.Register(alice)
	hub.Register(bob)
	hub.Subscribe(alice, channel)
	hub.Subscribe(bob, channel)

	require.Eventually(t, func() bool {
		return hub.SubscriberCount(channel) == 2
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast(channel, []byte("hello"))
	assert.Equal(t, []byte("hello"), receive(t, alice))
	assert.Equal(t, []byte("hello"), receive(t, bob))
}

func TestHubBroadcastSkipsOtherChannels(t *testing.T) {
	hub := startHub(t)
	roomA := events.MessageChannel(uuid.New().String())
	roomB := events.MessageChannel(uuid.New().String())

	client := NewClient(nil, uuid.New().String())
	hub.Register(client)
	hub.Subscribe(client, roomA)

	require.Eventually(t, func() bool {
		return hub.SubscriberCount(roomA) == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast(roomB, []byte("elsewhere"))
	select {
	case msg := <-client.Send:
		t.Fatalf("unexpected delivery: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := startHub(t)
	channel := events.MessageChannel(uuid.New().String())

	client := NewClient(nil, uuid.New().String())
	hub.Register(client)
	hub.Subscribe(client, channel)

	require.Eventually(t, func() bool {
		return client.IsSubscribed(channel)
	}, time.Second, 10*time.Millisecond)

	hub.Unsubscribe(client, channel)
	require.Eventually(t, func() bool {
		return hub.SubscriberCount(channel) == 0
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast(channel, []byte("late"))
	select {
	case msg := <-client.Send:
		t.Fatalf("unexpected delivery: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnregisterCleansUpSubscriptions(t *testing.T) {
	hub := startHub(t)
	channel := events.MessageChannel(uuid.New().String())

	client := NewClient(nil, uuid.New().String())
	hub.Register(client)
	hub.Subscribe(client, channel)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1 && hub.SubscriberCount(channel) == 1
	}, time.Second, 10*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0 && hub.SubscriberCount(channel) == 0
	}, time.Second, 10*time.Millisecond)

	// The send channel is closed so the write loop can exit.
	_, ok := <-client.Send
	assert.False(t, ok)
}

func TestSendMessageDropsWhenFull(t *testing.T) {
	client := NewClient(nil, uuid.New().String())

	for i := 0; i < cap(client.Send)+10; i++ {
		client.SendMessage([]byte("frame"))
	}
	// Must not block or panic; the buffer simply stays full.
	assert.Len(t, client.Send, cap(client.Send))
}
