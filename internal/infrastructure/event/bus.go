package event

import (
	"context"
	"sync/atomic"

	"github.com/facturacion/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus fans settlement and invoice lifecycle events out to the
// registered handlers within the publishing goroutine. Handler failures are
// logged and never propagated: by the time an event is published the state
// change behind it is already durable.
type InMemoryEventBus struct {
	handlers *HandlerRegistry
	log      *zap.Logger
	running  atomic.Bool
}

// NewInMemoryEventBus creates an event bus with an empty handler registry
func NewInMemoryEventBus(log *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		handlers: NewHandlerRegistry(),
		log:      log,
	}
}

// Publish delivers each event to every handler registered for its type.
// A failing or panicking handler does not stop delivery to the rest.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, evt := range events {
		for _, h := range b.handlers.GetHandlers(evt.EventType()) {
			if err := b.dispatch(ctx, h, evt); err != nil {
				b.log.Error("event handler failed",
					zap.String("event_type", evt.EventType()),
					zap.String("event_id", evt.EventID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers a handler. With no explicit types the handler's own
// EventTypes() declaration decides what it receives; an empty declaration
// makes it a wildcard subscriber.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.handlers.Register(handler, eventTypes...)
	b.log.Debug("event handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe detaches a handler from every type it was registered for
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.handlers.Unregister(handler)
	b.log.Debug("event handler unsubscribed")
}

// Start marks the bus as running
func (b *InMemoryEventBus) Start(_ context.Context) error {
	b.running.Store(true)
	b.log.Info("event bus started")
	return nil
}

// Stop marks the bus as stopped. Delivery is synchronous so there is no
// in-flight work to drain.
func (b *InMemoryEventBus) Stop(_ context.Context) error {
	b.running.Store(false)
	b.log.Info("event bus stopped")
	return nil
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, evt shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				zap.String("event_type", evt.EventType()),
				zap.Any("panic", r),
			)
		}
	}()

	return handler.Handle(ctx, evt)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
