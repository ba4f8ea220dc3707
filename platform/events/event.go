// Package events is the in-process event bus modules use to react to each
// other's state changes, plus a forwarder that mirrors events onto NATS.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is a named, timestamped fact. Names are dotted ("lead.assigned") and
// double as the NATS subject suffix.
type Event interface {
	EventName() string
	EventID() uuid.UUID
	OccurredAt() time.Time
}

// BaseEvent is embedded by every concrete event.
type BaseEvent struct {
	ID        uuid.UUID `json:"eventId"`
	Timestamp time.Time `json:"occurredAt"`
}

// NewBaseEvent stamps a fresh id and the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.New(), Timestamp: time.Now().UTC()}
}

func (e BaseEvent) EventID() uuid.UUID { return e.ID }

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// Handler reacts to an event. Returned errors are logged by the bus, or
// returned to the caller of PublishSync.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus is implemented by InMemoryBus.
type Bus interface {
	// Publish dispatches asynchronously and never fails the caller.
	Publish(ctx context.Context, event Event)
	// PublishSync runs every handler before returning their joined errors.
	PublishSync(ctx context.Context, event Event) error
	// Subscribe registers handler for eventName, or AllEvents.
	Subscribe(eventName string, handler Handler)
}
