package messaging

import (
	"context"
)

// Message is a payload received on a channel.
type Message struct {
	Channel string
	Payload []byte
}

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe delivers messages from the given channels until ctx is done,
	// then closes the returned channel.
	Subscribe(ctx context.Context, channels ...string) (<-chan Message, error)
	Close() error
}
