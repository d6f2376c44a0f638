// internal/events/bus.go
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sink accepts events from the trading core. Emit must not block the caller for long.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NopSink discards all events.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(context.Context, Event) {}

// Bus is an in-memory synchronous event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType]map[string]Handler
	all      map[string]Handler
	logger   *zap.Logger
}

var _ Sink = (*Bus)(nil)

// NewBus creates a new event bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType]map[string]Handler),
		all:      make(map[string]Handler),
		logger:   logger.Named("event_bus"),
	}
}

// Subscribe registers a handler for a specific event type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]Handler)
	}
	b.handlers[eventType][id] = handler

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))

	return &subscription{id: id, eventBus: b, typ: eventType}
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	b.all[id] = handler
	return &subscription{id: id, eventBus: b}
}

// SubscribeFunc is a convenience method for subscribing with a function.
func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

// PublishSync sends an event to all registered handlers synchronously.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	// Make a copy to avoid holding the lock during handler execution
	handlers := make(map[string]Handler, len(b.handlers[event.Type()])+len(b.all))
	for id, h := range b.handlers[event.Type()] {
		handlers[id] = h
	}
	for id, h := range b.all {
		handlers[id] = h
	}
	b.mu.RUnlock()

	var errs []error
	for id, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.String("handler_id", id),
				zap.Error(err))
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("handlers failed: %v", errs)
	}
	return nil
}

// Emit implements Sink. Ошибки обработчиков логируются и не возвращаются.
func (b *Bus) Emit(ctx context.Context, event Event) {
	_ = b.PublishSync(ctx, event)
}

// unsubscribe removes a handler subscription.
func (b *Bus) unsubscribe(id string, eventType EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if eventType == "" {
		delete(b.all, id)
		return
	}
	if handlers, ok := b.handlers[eventType]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.handlers, eventType)
		}
	}

	b.logger.Debug("Handler unsubscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))
}

// Stats returns statistics about the event bus.
func (b *Bus) Stats() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	handlerCounts := make(map[string]int)
	for eventType, handlers := range b.handlers {
		handlerCounts[string(eventType)] = len(handlers)
	}
	return map[string]interface{}{
		"event_types":       len(b.handlers),
		"wildcard_handlers": len(b.all),
		"handlers_per_type": handlerCounts,
	}
}
