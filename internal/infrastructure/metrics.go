package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the engine's operational counters, registered once at startup.
type Metrics struct {
	InboundMessages *prometheus.CounterVec
	EventOutcomes   *prometheus.CounterVec
	PollBatchSize   prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		InboundMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "supportdesk_inbound_messages_total",
			Help: "Inbound channel payloads accepted, by channel type.",
		}, []string{"channel_type"}),
		EventOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "supportdesk_event_outcomes_total",
			Help: "Event processing attempts by terminal outcome of the attempt.",
		}, []string{"outcome"}),
		PollBatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "supportdesk_poll_batch_size",
			Help:    "Events picked up per polling sweep.",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),
	}
}
