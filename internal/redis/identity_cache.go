package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Cache key patterns:
// - identity:{user_id} - 5m TTL, display identity cache

// IdentityCacheTTL is how long resolved display identities stay cached.
const IdentityCacheTTL = 5 * time.Minute

// IdentityCache caches resolved display identities so message fan-out
// does not hit the profile collaborator on every send.
type IdentityCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewIdentityCache(client *goredis.Client, ttl time.Duration) *IdentityCache {
	if ttl == 0 {
		ttl = IdentityCacheTTL
	}
	return &IdentityCache{client: client, ttl: ttl}
}

func identityKey(userID string) string {
	return fmt.Sprintf("identity:%s", userID)
}

// Get returns the cached value into dest, reporting a miss as (false, nil).
func (c *IdentityCache) Get(ctx context.Context, userID string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, identityKey(userID)).Result()
	if err == goredis.Nil {
		return false, nil // Cache miss
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores a resolved identity with the configured TTL.
func (c *IdentityCache) Set(ctx context.Context, userID string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, identityKey(userID), data, c.ttl).Err()
}
