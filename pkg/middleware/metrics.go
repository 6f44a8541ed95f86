package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const unmatchedRoute = "unmatched"

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymtrack_http_requests_total",
		Help: "HTTP requests served, by route pattern and status.",
	}, []string{"component", "method", "route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gymtrack_http_request_duration_seconds",
		Help:    "HTTP request latency. Password hashing dominates the credential routes.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"component", "method", "route"})

	requestsInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gymtrack_http_requests_in_flight",
		Help: "Requests currently being served.",
	}, []string{"component"})
)

// PrometheusMetrics labels by chi route pattern, so /workouts/{id} is one
// series regardless of the id.
func PrometheusMetrics(component string) func(next http.Handler) http.Handler {
	inFlight := requestsInFlight.WithLabelValues(component)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inFlight.Inc()
			defer inFlight.Dec()

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			route := routePattern(r)
			if route == "" {
				route = unmatchedRoute
			}
			requestsTotal.WithLabelValues(component, r.Method, route, strconv.Itoa(sw.status)).Inc()
			requestDuration.WithLabelValues(component, r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
