package infrastructure

import (
	"context"
)

// MessageBus is the transport between this service and the game server plugin
type MessageBus interface {
	// Publish publishes a message to the specified subject
	Publish(ctx context.Context, subject string, data []byte) error

	// Request publishes a message and waits for one reply
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)

	// Subscribe registers a handler for every message on subject
	Subscribe(subject string, handler func([]byte) error) error
}
