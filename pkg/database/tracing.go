package database

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/GymTrack/pkg/database"

var (
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gymtrack_db_query_duration_seconds",
		Help:    "Duration of repository queries by operation and outcome.",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"operation", "outcome"})

	slowQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymtrack_db_slow_queries_total",
		Help: "Queries slower than the configured threshold.",
	}, []string{"operation"})
)

type slowQueryConfig struct {
	threshold time.Duration
	logger    *slog.Logger
}

var slowQueryCfg atomic.Pointer[slowQueryConfig]

// SetSlowQueryLogging logs a warning for every query that takes at least
// threshold. A zero threshold or nil logger turns it off.
func SetSlowQueryLogging(threshold time.Duration, logger *slog.Logger) {
	if threshold <= 0 || logger == nil {
		slowQueryCfg.Store(nil)
		return
	}
	slowQueryCfg.Store(&slowQueryConfig{threshold: threshold, logger: logger})
}

func getSlowQueryConfig() (time.Duration, *slog.Logger) {
	cfg := slowQueryCfg.Load()
	if cfg == nil {
		return 0, nil
	}
	return cfg.threshold, cfg.logger
}

// TraceQuery starts a client span for a repository operation and returns the
// function that ends it:
//
//	ctx, end := database.TraceQuery(ctx, "GetUserByID", query)
//	defer func() { end(err) }()
//
// Every query is observed in gymtrack_db_query_duration_seconds.
func TraceQuery(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		elapsed := time.Since(start)
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		queryDuration.WithLabelValues(operation, outcome).Observe(elapsed.Seconds())

		threshold, logger := getSlowQueryConfig()
		if logger == nil || elapsed < threshold {
			return
		}
		slowQueries.WithLabelValues(operation).Inc()
		attrs := []any{
			slog.String("operation", operation),
			slog.String("statement", statement),
			slog.Duration("duration", elapsed),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		logger.WarnContext(ctx, "slow query detected", attrs...)
	}
}
