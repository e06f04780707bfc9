package usecases

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"supportdesk/internal/entities"
	"supportdesk/internal/infrastructure"
	"supportdesk/internal/interfaces"
)

// EventDispatcher resolves an acquired event to its registered handler and
// drives the lifecycle: acquire -> handle -> complete/fail. It is fed event
// ids by both the notification listener and the polling sweep; the store's
// conditional acquire makes double delivery a harmless no-op.
type EventDispatcher struct {
	store    interfaces.EventStore
	handlers map[entities.EventType]interfaces.EventHandler
	metrics  *infrastructure.Metrics
	log      zerolog.Logger
}

func NewEventDispatcher(store interfaces.EventStore, metrics *infrastructure.Metrics, log zerolog.Logger) *EventDispatcher {
	return &EventDispatcher{
		store:    store,
		handlers: make(map[entities.EventType]interfaces.EventHandler),
		metrics:  metrics,
		log:      log.With().Str("component", "event_dispatcher").Logger(),
	}
}

// Register wires a handler for one event type. The handler set is a
// startup-time invariant: registering the same type twice is a fatal
// configuration error.
func (d *EventDispatcher) Register(eventType entities.EventType, handler interfaces.EventHandler) {
	if _, dup := d.handlers[eventType]; dup {
		panic(fmt.Sprintf("handler already registered for event type %q", eventType))
	}
	d.handlers[eventType] = handler
}

// Process runs one processing attempt for the event id. Every path leaves
// the row in a recorded state; an aborted context leaves it processing for
// the stale-lease reclaim to pick up.
func (d *EventDispatcher) Process(ctx context.Context, eventID int64) {
	event, acquired, err := d.store.Acquire(ctx, eventID)
	if err != nil {
		d.log.Error().Err(err).Int64("event_id", eventID).Msg("failed to acquire event")
		return
	}
	if !acquired {
		// Already completed, claimed by another worker, or waiting for
		// its retry time. Normal under dual-trigger delivery.
		d.log.Debug().Int64("event_id", eventID).Msg("event not acquirable, skipping")
		d.count("skipped")
		return
	}

	processingID := ""
	if event.ProcessingID != nil {
		processingID = *event.ProcessingID
	}
	log := d.log.With().Int64("event_id", event.ID).Str("event_type", string(event.EventType)).Logger()

	handler, ok := d.handlers[event.EventType]
	if !ok {
		// Retrying can never fix an unknown type; park it in the
		// dead-letter status without spending the retry budget.
		log.Error().Msg("no handler registered for event type")
		if err := d.store.MarkDeadLetter(ctx, event.ID, processingID,
			fmt.Sprintf("no handler registered for event type %q", event.EventType)); err != nil {
			log.Error().Err(err).Msg("failed to dead-letter event")
		}
		d.count("dead_letter")
		return
	}

	if err := handler.Handle(ctx, event); err != nil {
		log.Error().Err(err).Int("retry_count", event.RetryCount).Msg("event handler failed")
		if ferr := d.store.Fail(ctx, event.ID, processingID, err); ferr != nil {
			log.Error().Err(ferr).Msg("failed to record handler failure")
		}
		d.count("handler_error")
		return
	}

	if err := d.store.Complete(ctx, event.ID, processingID); err != nil {
		log.Error().Err(err).Msg("failed to complete event")
		return
	}
	log.Debug().Msg("event processed")
	d.count("completed")
}

func (d *EventDispatcher) count(outcome string) {
	if d.metrics != nil {
		d.metrics.EventOutcomes.WithLabelValues(outcome).Inc()
	}
}
