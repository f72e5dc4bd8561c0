package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/oneapi/pkg/eventbus"
	"github.com/dukex/oneapi/pkg/events"
)

var lifecycleEvents = []events.EventType{
	events.ExecutionQueuedEvent,
	events.ExecutionCompletedEvent,
	events.ExecutionFailedEvent,
	events.ExecutionTimeoutEvent,
	events.ExecutionCancelledEvent,
}

// logLifecycle writes every execution lifecycle event to logger.
func logLifecycle(ctx context.Context, bus eventbus.EventBus, logger *slog.Logger) error {
	for _, eventType := range lifecycleEvents {
		err := bus.Handle(eventType, func(ctx context.Context, event any) error {
			logger.InfoContext(ctx, "Execution event", "type", eventType, "event", event)

			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to register handler for %s: %w", eventType, err)
		}
	}

	return bus.Subscribe(ctx)
}
