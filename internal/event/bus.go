// Package event provides the in-process publish/subscribe bus used by
// modules to stream scan progress, results, and state changes to observers.
package event

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/netseek/netseek/pkg/plugin"
)

// Compile-time interface guard.
var _ plugin.EventBus = (*Bus)(nil)

// subscription pairs a handler with a removable identity.
type subscription struct {
	id      uint64
	handler plugin.EventHandler
}

// Bus is a thread-safe topic-based event bus. Handlers for a topic run in
// subscription order; a panicking handler is recovered and logged without
// affecting the others.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	topics   map[string][]subscription
	wildcard []subscription
	logger   *zap.Logger
}

// NewBus creates an empty Bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		topics: make(map[string][]subscription),
		logger: logger,
	}
}

// Subscribe registers handler for a single topic and returns a function
// that removes the subscription.
func (b *Bus) Subscribe(topic string, handler plugin.EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.topics[topic] = append(b.topics[topic], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.topics[topic] = remove(b.topics[topic], id)
	}
}

// SubscribeAll registers handler for every topic and returns a function
// that removes the subscription.
func (b *Bus) SubscribeAll(handler plugin.EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.wildcard = append(b.wildcard, subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.wildcard = remove(b.wildcard, id)
	}
}

// Publish delivers event synchronously to all topic and wildcard handlers.
// Publishing with no subscribers is not an error.
func (b *Bus) Publish(ctx context.Context, event plugin.Event) error {
	for _, sub := range b.snapshot(event.Topic) {
		b.dispatch(ctx, sub, event)
	}
	return nil
}

// PublishAsync delivers event on a separate goroutine, in the same order a
// synchronous publish would use.
func (b *Bus) PublishAsync(ctx context.Context, event plugin.Event) {
	subs := b.snapshot(event.Topic)
	go func() {
		for _, sub := range subs {
			b.dispatch(ctx, sub, event)
		}
	}()
}

// snapshot copies the handler list for a topic so publishing never holds
// the lock while handlers run.
func (b *Bus) snapshot(topic string) []subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := make([]subscription, 0, len(b.topics[topic])+len(b.wildcard))
	subs = append(subs, b.topics[topic]...)
	subs = append(subs, b.wildcard...)
	return subs
}

// dispatch runs one handler, recovering panics.
func (b *Bus) dispatch(ctx context.Context, sub subscription, event plugin.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", event.Topic),
				zap.Any("panic", r),
			)
		}
	}()
	sub.handler(ctx, event)
}

func remove(subs []subscription, id uint64) []subscription {
	for i, s := range subs {
		if s.id == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}
