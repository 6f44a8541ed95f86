package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/utafrali/GymTrack/internal/config"
	"github.com/utafrali/GymTrack/internal/event"
	"github.com/utafrali/GymTrack/internal/notify"
	"github.com/utafrali/GymTrack/pkg/database"
	"github.com/utafrali/GymTrack/pkg/health"
	pkgkafka "github.com/utafrali/GymTrack/pkg/kafka"
	"github.com/utafrali/GymTrack/pkg/middleware"
	"github.com/utafrali/GymTrack/pkg/tracing"
)

const (
	mailerComponent = "gymtrack-mailer"
	dedupKeyPrefix  = "gymtrack:mailer:sent"
)

// Mailer consumes queued email requests and delivers them.
type Mailer struct {
	logger         *slog.Logger
	redis          *goredis.Client
	consumer       *pkgkafka.Consumer
	dlq            *pkgkafka.DLQProducer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewMailer creates the mail worker and its dependencies.
func NewMailer(cfg *config.MailerConfig, logger *slog.Logger) (*Mailer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Observability.Tracing(mailerComponent, cfg.Environment))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	m := &Mailer{logger: logger, tracerShutdown: tracerShutdown}

	sender, err := newSender(mailSettings{
		Backend: cfg.Backend,
		From:    cfg.MailFrom,
		SMTP:    cfg.SMTP,
		Mailgun: cfg.Mailgun,
		Breaker: cfg.Breaker,
	}, nil, logger)
	if err != nil {
		_ = m.Shutdown()
		return nil, fmt.Errorf("build mail sender: %w", err)
	}

	client, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		_ = m.Shutdown()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	m.redis = client

	store := pkgkafka.NewRedisIdempotencyStore(client, dedupKeyPrefix, cfg.DedupTTL)
	handler := pkgkafka.IdempotentHandler(store, DeliverEmail(sender, logger), logger)

	m.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
	m.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:    cfg.KafkaBrokers,
		GroupID:    cfg.GroupID,
		Topic:      event.TopicEmailRequested,
		MinBytes:   1,
		MaxBytes:   1 << 20,
		MaxRetries: cfg.MaxRetries,
	}, handler, logger).WithDLQ(m.dlq)

	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	brokers := cfg.KafkaBrokers
	healthHandler.RegisterOptional("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, brokers)
	})

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	m.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return m, nil
}

// DeliverEmail returns a consumer handler that sends one queued email.
// Malformed requests fail so that they end up in the DLQ.
func DeliverEmail(sender notify.Sender, logger *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, evt *pkgkafka.Event) error {
		var req event.EmailRequestedData
		if err := evt.UnmarshalData(&req); err != nil {
			return fmt.Errorf("decode email request %s: %w", evt.EventID, err)
		}
		if req.To == "" {
			return fmt.Errorf("email request %s has no recipient", evt.EventID)
		}

		if err := sender.Send(ctx, req.To, req.Subject, req.Body); err != nil {
			return fmt.Errorf("deliver email request %s: %w", evt.EventID, err)
		}
		logger.InfoContext(ctx, "email delivered",
			slog.String("event_id", evt.EventID),
			slog.String("backend", sender.Name()),
		)
		return nil
	}
}

// Run starts the consumer and the health server, then blocks until ctx is
// canceled.
func (m *Mailer) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		m.logger.Info("starting email consumer", slog.String("topic", event.TopicEmailRequested))
		if err := m.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("email consumer: %w", err)
		}
	}()

	go func() {
		m.logger.Info("starting HTTP server", slog.String("addr", m.httpServer.Addr))
		if err := m.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		m.logger.Info("shutdown signal received")
		return m.Shutdown()
	case err := <-errCh:
		return errors.Join(err, m.Shutdown())
	}
}

// Shutdown stops the health server, the consumer, the DLQ writer and the
// Redis client.
func (m *Mailer) Shutdown() error {
	m.logger.Info("shutting down mailer...")

	var errs []error

	if m.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}
	if m.consumer != nil {
		if err := m.consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka consumer: %w", err))
		}
	}
	if m.dlq != nil {
		if err := m.dlq.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka dlq: %w", err))
		}
	}
	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if m.tracerShutdown != nil {
		tracerCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := m.tracerShutdown(tracerCtx); err != nil {
			errs = append(errs, fmt.Errorf("tracer: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		m.logger.Error("mailer shutdown error", slog.String("error", err.Error()))
	}
	return err
}
