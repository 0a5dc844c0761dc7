package events

import "context"

// Bus publishes event envelopes to every node in the deployment.
type Bus interface {
	Publish(ctx context.Context, env Envelope) error
}

// Subscriber delivers raw envelope payloads from a set of channel
// patterns until the context is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, patterns []string, handler func(channel string, payload []byte)) error
}
