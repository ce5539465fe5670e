package plugin

import (
	"context"
	"time"
)

// Event is a message published on the event bus.
type Event struct {
	Topic     string    `json:"topic"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// EventHandler processes a single event. Handlers must not block for long
// on the synchronous Publish path.
type EventHandler func(ctx context.Context, event Event)

// EventBus is the in-process publish/subscribe channel between modules and
// observers (WebSocket feed, CLI progress, tests).
type EventBus interface {
	// Publish delivers the event to all matching subscribers synchronously.
	Publish(ctx context.Context, event Event) error

	// PublishAsync delivers the event on a separate goroutine.
	PublishAsync(ctx context.Context, event Event)

	// Subscribe registers a handler for one topic. The returned function
	// removes the subscription.
	Subscribe(topic string, handler EventHandler) func()

	// SubscribeAll registers a handler for every topic.
	SubscribeAll(handler EventHandler) func()
}
