package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the dispatch pipeline counters.
type Metrics struct {
	TasksPublishedTotal       prometheus.Counter
	MessagesSentTotal         prometheus.Counter
	MessagesFailedTotal       prometheus.Counter
	DuplicateOutcomesTotal    prometheus.Counter
	PublishFailuresTotal      prometheus.Counter
	ConsumerRedeliveriesTotal prometheus.Counter

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		TasksPublishedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campaign_tasks_published_total",
			Help: "Total dispatch tasks accepted by the broker",
		}),
		MessagesSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campaign_messages_sent_total",
			Help: "Total messages with a SENT outcome",
		}),
		MessagesFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campaign_messages_failed_total",
			Help: "Total messages with a FAILED outcome",
		}),
		DuplicateOutcomesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campaign_duplicate_outcomes_total",
			Help: "Redelivered tasks whose outcome was already recorded",
		}),
		PublishFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campaign_publish_failures_total",
			Help: "Dispatch batches rejected by the broker",
		}),
		ConsumerRedeliveriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campaign_consumer_redeliveries_total",
			Help: "Tasks returned to the queue after a processing failure",
		}),
		registry: reg,
	}

	reg.MustRegister(
		m.TasksPublishedTotal,
		m.MessagesSentTotal,
		m.MessagesFailedTotal,
		m.DuplicateOutcomesTotal,
		m.PublishFailuresTotal,
		m.ConsumerRedeliveriesTotal,
	)
	return m
}

// Handler serves the registry for a /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
