package service

import "github.com/prometheus/client_golang/prometheus"

// Values of the event label on gymtrack_account_events_total.
const (
	eventRegistered     = "registered"
	eventVerified       = "verified"
	eventLogin          = "login"
	eventLoginFailed    = "login_failed"
	eventEmailChanged   = "email_changed"
	eventResetRequested = "reset_requested"
	eventResetCompleted = "reset_completed"
	eventLogout         = "logout"
	eventRefreshed      = "refreshed"
	eventNotifyFailed   = "notify_failed"
)

var accountEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gymtrack_account_events_total",
		Help: "Total number of account lifecycle events by kind.",
	},
	[]string{"event"},
)

func init() {
	prometheus.MustRegister(accountEventsTotal)
}

func countEvent(event string) {
	accountEventsTotal.WithLabelValues(event).Inc()
}
