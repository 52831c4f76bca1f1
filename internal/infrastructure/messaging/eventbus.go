// Package messaging implements the in-process event bus that carries
// domain events from command handlers to their subscribers. Events are
// published after the recording transaction commits; handlers only touch
// derived state (caches, logs, metrics), so a dropped event is recoverable
// by the periodic rebuild jobs.
package messaging

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEventBusClosed is returned when publishing on a closed bus.
	ErrEventBusClosed = errors.New("messaging: event bus is closed")
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// EventBus is an in-memory publish/subscribe bus for domain events.
// Handlers run synchronously in publish order; a failing handler is
// logged and skipped, it never blocks the others.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[shared.EventType][]shared.EventHandler
	closed   bool

	logger *zap.Logger

	published *prometheus.CounterVec
	failures  *prometheus.CounterVec
}

// NewEventBus creates an event bus and registers its metrics.
func NewEventBus(logger *zap.Logger, reg prometheus.Registerer) *EventBus {
	bus := &EventBus{
		handlers: make(map[shared.EventType][]shared.EventHandler),
		logger:   logger,
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "progress",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Domain events published, by type.",
		}, []string{"type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "progress",
			Subsystem: "events",
			Name:      "handler_failures_total",
			Help:      "Event handler failures, by type.",
		}, []string{"type"}),
	}

	if reg != nil {
		reg.MustRegister(bus.published, bus.failures)
	}

	return bus
}

// Subscribe registers a handler for a specific event type.
func (b *EventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("messaging: handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.logger.Debug("subscribed event handler", zap.String("event_type", string(eventType)))

	return nil
}

// Publish delivers the event to every subscribed handler.
func (b *EventBus) Publish(ctx context.Context, event shared.Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	handlers := b.handlers[event.EventType()]
	b.mu.RUnlock()

	b.published.WithLabelValues(string(event.EventType())).Inc()

	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			b.failures.WithLabelValues(string(event.EventType())).Inc()
			b.logger.Error("event handler failed",
				zap.String("event_type", string(event.EventType())),
				zap.String("aggregate_id", event.AggregateID()),
				zap.Error(err),
			)
		}
	}

	return nil
}

// PublishAll publishes a batch of events in order.
func (b *EventBus) PublishAll(ctx context.Context, events []shared.Event) error {
	for _, event := range events {
		if err := b.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the bus; further publishes and subscribes fail.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// compile-time check
var _ shared.EventPublisher = (*EventBus)(nil)
