package events

import (
	"context"
	"encoding/json"
	"fmt"

	"ambassador-chat/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisBus implements Bus on top of Redis Pub/Sub. Each event is routed
// by the resolver to its room channel; every node's websocket bridge
// subscribes to the same channels, which is what makes fan-out work
// across instances.
type RedisBus struct {
	client   *redis.Client
	resolver ChannelResolver
	log      *logger.Logger
}

func NewRedisBus(client *redis.Client, resolver ChannelResolver, log *logger.Logger) *RedisBus {
	return &RedisBus{client: client, resolver: resolver, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, env Envelope) error {
	channels := b.resolver.ResolveChannels(env)
	if len(channels) == 0 {
		return nil
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	for _, channel := range channels {
		if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
			if b.log != nil {
				b.log.Errorf("failed to publish %s to %s: %v", env.EventType, channel, err)
			}
			return err
		}
	}
	return nil
}
