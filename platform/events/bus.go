package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"sales_pipeline_backend/platform/logger"
)

// InMemoryBus dispatches events to subscribers inside the process.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	// wildcard handlers receive every event regardless of name.
	wildcard []Handler
	wg       sync.WaitGroup
	log      *logger.Logger
}

// AllEvents subscribes a handler to every published event.
const AllEvents = "*"

// NewInMemoryBus creates an empty bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers handler for eventName, or for every event when
// eventName is AllEvents.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if eventName == AllEvents {
		b.wildcard = append(b.wildcard, handler)
		return
	}
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

func (b *InMemoryBus) handlersFor(eventName string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, 0, len(b.handlers[eventName])+len(b.wildcard))
	out = append(out, b.handlers[eventName]...)
	return append(out, b.wildcard...)
}

// Publish runs each handler in its own goroutine. Handler errors and panics
// are logged and never reach the publisher. The handlers get a context
// detached from the caller's cancellation.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	detached := context.WithoutCancel(ctx)
	for _, h := range b.handlersFor(event.EventName()) {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logError(event, fmt.Errorf("handler panic: %v", r))
				}
			}()
			if err := h.Handle(detached, event); err != nil {
				b.logError(event, err)
			}
		}()
	}
}

// PublishSync runs handlers in subscription order and joins their errors.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	var errs []error
	for _, h := range b.handlersFor(event.EventName()) {
		if err := h.Handle(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Wait blocks until every asynchronously dispatched handler has returned.
func (b *InMemoryBus) Wait() {
	b.wg.Wait()
}

func (b *InMemoryBus) logError(event Event, err error) {
	if b.log == nil {
		return
	}
	b.log.Error("event handler failed", "event", event.EventName(), "error", err)
}
