// Package eventbus publishes and consumes execution lifecycle events.
// Events are keyed by prompt id, so every event of one execution lands on the
// same Kafka partition and is consumed in order.
package eventbus

import (
	"context"

	"github.com/dukex/oneapi/pkg/events"
)

// Event is a lifecycle event of one engine execution.
type Event interface {
	GetType() events.EventType
}

// EventPublisher is what the broker needs: it publishes queued, completed,
// failed, timeout and cancelled events under the prompt id.
type EventPublisher interface {
	Publish(ctx context.Context, promptID string, event Event) error
}

// EventSubscriber routes decoded events to one handler per event type.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives the concrete event struct registered for its type.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	// GenerateID returns a unique message id.
	GenerateID() string
}
