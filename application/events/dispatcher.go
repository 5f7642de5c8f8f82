package events

import (
	"context"
	"sync"

	"priomatrix-backend/domain/events"

	"go.uber.org/zap"
)

// Listener receives domain events published by the engine. Listener failures
// are logged and never propagate back into the mutation path.
type Listener interface {
	HandleEvent(ctx context.Context, event events.DomainEvent) error
}

// ListenerFunc adapts a function to the Listener interface
type ListenerFunc func(ctx context.Context, event events.DomainEvent) error

// HandleEvent implements Listener
func (f ListenerFunc) HandleEvent(ctx context.Context, event events.DomainEvent) error {
	return f(ctx, event)
}

// Dispatcher is the in-process event bus: the engine publishes card, lock
// and drag events, and the websocket broadcaster and metrics collector
// subscribe to them.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []Listener
	logger    *zap.Logger
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		listeners: []Listener{},
		logger:    logger,
	}
}

// Subscribe registers a listener for all domain events
func (d *Dispatcher) Subscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// SubscribeFunc registers a listener function for all domain events
func (d *Dispatcher) SubscribeFunc(f func(ctx context.Context, event events.DomainEvent) error) {
	d.Subscribe(ListenerFunc(f))
}

// Publish delivers an event to every listener in registration order
func (d *Dispatcher) Publish(ctx context.Context, event events.DomainEvent) {
	d.mu.RLock()
	listeners := make([]Listener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.RUnlock()

	for _, l := range listeners {
		if err := l.HandleEvent(ctx, event); err != nil {
			d.logger.Warn("event listener failed",
				zap.String("eventType", event.GetEventType()),
				zap.String("aggregateID", event.GetAggregateID()),
				zap.Error(err),
			)
		}
	}
}

// PublishBatch delivers a batch of events in order
func (d *Dispatcher) PublishBatch(ctx context.Context, batch []events.DomainEvent) {
	for _, event := range batch {
		d.Publish(ctx, event)
	}
}
