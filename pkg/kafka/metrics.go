package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded in gymtrack_kafka_events_consumed_total.
const (
	outcomeHandled    = "handled"
	outcomeFailed     = "failed"
	outcomeDuplicate  = "duplicate"
	outcomeUnreadable = "unreadable"
)

// eventTypeUnknown labels messages whose envelope could not be decoded.
const eventTypeUnknown = "unknown"

var (
	eventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymtrack_kafka_events_consumed_total",
		Help: "Account events taken off the bus, by event type and outcome.",
	}, []string{"event_type", "outcome"})

	handleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gymtrack_kafka_handle_duration_seconds",
		Help:    "Time spent handling one event, retries included.",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"event_type"})

	deadLetters = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymtrack_kafka_dead_letters_total",
		Help: "Events given up on, by whether a dead-letter copy was written.",
	}, []string{"result"})

	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymtrack_kafka_events_published_total",
		Help: "Account events written to the bus, by event type and result.",
	}, []string{"event_type", "result"})
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
