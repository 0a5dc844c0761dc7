package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TypingStore mirrors per-room typing sets into Redis so that peers
// connected to other nodes can seed their snapshots. Entries are advisory
// and expire on their own; the in-process coordinator remains the source
// of the TTL state machine.
type TypingStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewTypingStore(client *goredis.Client, ttl time.Duration) *TypingStore {
	if ttl == 0 {
		ttl = 3 * time.Second
	}
	return &TypingStore{client: client, ttl: ttl}
}

func typingKey(roomID string) string {
	return fmt.Sprintf("typing:%s", roomID)
}

// Track adds or removes a user from the room's typing set. The whole set
// expires after the TTL so abandoned rooms clean themselves up.
func (t *TypingStore) Track(ctx context.Context, roomID, userID string, isTyping bool) error {
	key := typingKey(roomID)

	if isTyping {
		pipe := t.client.Pipeline()
		pipe.SAdd(ctx, key, userID)
		pipe.Expire(ctx, key, t.ttl)
		_, err := pipe.Exec(ctx)
		return err
	}

	return t.client.SRem(ctx, key, userID).Err()
}

// TypingUsers returns users currently marked typing in a room.
func (t *TypingStore) TypingUsers(ctx context.Context, roomID string) ([]string, error) {
	return t.client.SMembers(ctx, typingKey(roomID)).Result()
}

// Clear drops the whole typing set for a room, used on room deletion.
func (t *TypingStore) Clear(ctx context.Context, roomID string) error {
	return t.client.Del(ctx, typingKey(roomID)).Err()
}
