package services

import (
	"context"

	"ambassador-chat/internal/redis"
	"ambassador-chat/pkg/logger"

	"github.com/google/uuid"
)

// DisplayIdentity is the render-ready view of a user owned by the profile
// collaborator. The core never stores it; it only decorates outgoing
// messages with it.
type DisplayIdentity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
	Kind        string `json:"kind,omitempty"` // ambassador, client
}

// IdentityResolver is implemented by the profile collaborator.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (DisplayIdentity, error)
}

// LinkCleaner is implemented by collaborators that keep rows keyed by room
// id (contract negotiations). RemoveLinksForRoom must be idempotent; the
// lifecycle manager may retry it.
type LinkCleaner interface {
	RemoveLinksForRoom(ctx context.Context, roomID uuid.UUID) error
}

// CachedIdentityResolver decorates a resolver with the Redis identity
// cache so fan-out does not call the collaborator on every send.
type CachedIdentityResolver struct {
	inner IdentityResolver
	cache *redis.IdentityCache
	log   *logger.Logger
}

func NewCachedIdentityResolver(inner IdentityResolver, cache *redis.IdentityCache, log *logger.Logger) *CachedIdentityResolver {
	return &CachedIdentityResolver{inner: inner, cache: cache, log: log}
}

func (r *CachedIdentityResolver) Resolve(ctx context.Context, userID uuid.UUID) (DisplayIdentity, error) {
	if r.cache != nil {
		var cached DisplayIdentity
		hit, err := r.cache.Get(ctx, userID.String(), &cached)
		if err != nil && r.log != nil {
			r.log.Warnf("identity cache read failed for %s: %v", userID, err)
		}
		if hit {
			return cached, nil
		}
	}

	identity, err := r.inner.Resolve(ctx, userID)
	if err != nil {
		return DisplayIdentity{}, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, userID.String(), identity); err != nil && r.log != nil {
			r.log.Warnf("identity cache write failed for %s: %v", userID, err)
		}
	}
	return identity, nil
}
