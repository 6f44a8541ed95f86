package notify

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymtrack_notifications_total",
			Help: "Total number of notification send attempts by backend and result.",
		},
		[]string{"backend", "result"},
	)

	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gymtrack_notify_breaker_state",
			Help: "Current state of the notification circuit breaker (0=closed, 1=half-open, 2=open).",
		},
		[]string{"sender"},
	)
)

func init() {
	prometheus.MustRegister(notificationsTotal, breakerState)
}

// Instrumented counts every send by outcome.
type Instrumented struct {
	next Sender
}

// NewInstrumented wraps next with the notifications counter.
func NewInstrumented(next Sender) *Instrumented {
	return &Instrumented{next: next}
}

// Name returns the wrapped sender's name.
func (s *Instrumented) Name() string { return s.next.Name() }

// Send delegates and records the result.
func (s *Instrumented) Send(ctx context.Context, to, subject, body string) error {
	err := s.next.Send(ctx, to, subject, body)
	notificationsTotal.WithLabelValues(s.next.Name(), resultLabel(err)).Inc()
	return err
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "sent"
	case errors.Is(err, ErrCircuitOpen):
		return "rejected"
	default:
		return "failed"
	}
}
