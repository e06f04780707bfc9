package infrastructure

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	notifyChannel    = "events"
	reconnectBackoff = 5 * time.Second
)

// EventSink receives candidate event ids from a trigger source. Both the
// listener and the polling sweep feed the same sink; exclusivity lives in
// the event store, not here.
type EventSink interface {
	Process(ctx context.Context, eventID int64)
}

// EventListener holds one dedicated connection on LISTEN events and hands
// every notified id to the sink. Connection loss is recovered locally with
// a fixed backoff; event state is never touched on transport errors.
type EventListener struct {
	pool *pgxpool.Pool
	sink EventSink
	log  zerolog.Logger
}

func NewEventListener(pool *pgxpool.Pool, sink EventSink, log zerolog.Logger) *EventListener {
	return &EventListener{pool: pool, sink: sink, log: log.With().Str("component", "event_listener").Logger()}
}

// Run blocks until ctx is cancelled.
func (l *EventListener) Run(ctx context.Context) {
	l.log.Info().Msg("event listener starting")

	for {
		if err := l.listen(ctx); err != nil {
			if ctx.Err() != nil {
				l.log.Info().Msg("event listener stopping")
				return
			}
			l.log.Error().Err(err).Dur("backoff", reconnectBackoff).Msg("listener connection lost, reconnecting")
			select {
			case <-time.After(reconnectBackoff):
			case <-ctx.Done():
				l.log.Info().Msg("event listener stopping")
				return
			}
		}
	}
}

func (l *EventListener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return err
	}
	l.log.Info().Str("channel", notifyChannel).Msg("listening for event notifications")

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.handle(ctx, notification.Payload)
	}
}

// handle tolerates malformed payloads: log and ignore, never crash the loop.
func (l *EventListener) handle(ctx context.Context, payload string) {
	eventID, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		l.log.Warn().Str("payload", payload).Msg("invalid event id in notification")
		return
	}
	l.log.Debug().Int64("event_id", eventID).Msg("received event notification")
	l.sink.Process(ctx, eventID)
}
