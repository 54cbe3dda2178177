package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/equipment-maintenance/internal/events"
)

// publish fires an event and logs handler failures. Handler errors never
// propagate: the state change that produced the event has already committed.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, actorID string, eventType events.EventType, payload interface{}) {
	event := events.Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		ActorUserID: actorID,
		Timestamp:   time.Now().UTC(),
		Payload:     payload,
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}
