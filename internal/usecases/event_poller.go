package usecases

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"supportdesk/internal/infrastructure"
)

const (
	pollInterval  = 10 * time.Second
	pollBatchSize = 10
)

// DueFinder scans for events ready to process: pending past the push-race
// grace period, retries whose time arrived, and stuck processing leases.
type DueFinder interface {
	FindDue(ctx context.Context, limit int) ([]int64, error)
}

// EventPoller is the safety net behind the notification listener: a fixed
// sweep that guarantees forward progress when a NOTIFY is missed. It feeds
// the same dispatcher, so overlap with the push path is harmless.
type EventPoller struct {
	finder  DueFinder
	sink    infrastructure.EventSink
	metrics *infrastructure.Metrics
	log     zerolog.Logger
}

func NewEventPoller(finder DueFinder, sink infrastructure.EventSink, metrics *infrastructure.Metrics, log zerolog.Logger) *EventPoller {
	return &EventPoller{
		finder:  finder,
		sink:    sink,
		metrics: metrics,
		log:     log.With().Str("component", "event_poller").Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (p *EventPoller) Run(ctx context.Context) {
	p.log.Info().Dur("interval", pollInterval).Msg("event poller starting")
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("event poller stopping")
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *EventPoller) sweep(ctx context.Context) {
	ids, err := p.finder.FindDue(ctx, pollBatchSize)
	if err != nil {
		p.log.Error().Err(err).Msg("polling sweep failed")
		return
	}
	if p.metrics != nil {
		p.metrics.PollBatchSize.Observe(float64(len(ids)))
	}
	if len(ids) == 0 {
		return
	}

	p.log.Info().Int("count", len(ids)).Msg("polling sweep found events to process")
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		p.sink.Process(ctx, id)
	}
}
