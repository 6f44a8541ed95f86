package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/utafrali/GymTrack/internal/auth"
	"github.com/utafrali/GymTrack/internal/config"
	"github.com/utafrali/GymTrack/internal/domain"
	"github.com/utafrali/GymTrack/internal/event"
	handler "github.com/utafrali/GymTrack/internal/handler/http"
	notifykafka "github.com/utafrali/GymTrack/internal/notify/kafka"
	"github.com/utafrali/GymTrack/internal/repository"
	"github.com/utafrali/GymTrack/internal/repository/memory"
	"github.com/utafrali/GymTrack/internal/repository/postgres"
	"github.com/utafrali/GymTrack/internal/repository/redis"
	"github.com/utafrali/GymTrack/internal/service"
	"github.com/utafrali/GymTrack/migrations"
	"github.com/utafrali/GymTrack/pkg/database"
	"github.com/utafrali/GymTrack/pkg/health"
	pkgkafka "github.com/utafrali/GymTrack/pkg/kafka"
	"github.com/utafrali/GymTrack/pkg/middleware"
	"github.com/utafrali/GymTrack/pkg/tracing"
)

const apiComponent = "gymtrack-api"

// App wires together all dependencies and runs the API server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	purger         expiredPurger
	credentials    *service.CredentialStore
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
	background     sync.WaitGroup
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Observability.Tracing(apiComponent, cfg.Environment))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}
	if err := a.init(ctx); err != nil {
		_ = a.Shutdown()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres.PostgresConfig(), logger)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.Postgres.Host),
		slog.Int("port", cfg.Postgres.Port),
		slog.String("database", cfg.Postgres.DBName),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, "gymtrack_api"); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.Postgres.SlowQueryThreshold > 0 {
		database.SetSlowQueryLogging(cfg.Postgres.SlowQueryThreshold, logger)
	}

	// Kafka (optional)
	var (
		events    service.EventPublisher
		publisher *event.Producer
	)
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(a.producer, logger)
		events = publisher
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	revoked, err := a.revocationList(ctx)
	if err != nil {
		return err
	}

	var queue notifykafka.EmailPublisher
	if publisher != nil {
		queue = publisher
	}
	sender, err := newSender(mailSettings{
		Backend: cfg.NotifyBackend,
		From:    cfg.MailFrom,
		SMTP:    cfg.SMTP,
		Mailgun: cfg.Mailgun,
		Breaker: cfg.Breaker,
	}, queue, logger)
	if err != nil {
		return fmt.Errorf("build notification sender: %w", err)
	}
	logger.Info("notification backend selected", slog.String("backend", sender.Name()))

	tokens, err := auth.NewTokenManager(cfg.Auth())
	if err != nil {
		return fmt.Errorf("init token manager: %w", err)
	}

	// Build the dependency graph.
	users := postgres.NewUserRepository(pool)
	a.credentials = service.NewCredentialStore(users, cfg.BcryptCost, cfg.PasswordMinLength)
	services := handler.Services{
		Accounts:  service.NewAccountService(a.credentials, tokens, revoked, sender, events, cfg.PublicBaseURL, logger),
		Workouts:  service.NewWorkoutService(postgres.NewWorkoutRepository(pool), logger),
		Exercises: service.NewExerciseService(postgres.NewExerciseRepository(pool), logger),
		Gate:      service.NewGate(tokens, users),
	}

	readiness := readinessChecks{postgres: pool.Ping}
	if a.redis != nil {
		client := a.redis
		readiness.redis = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}
	if a.producer != nil {
		readiness.kafka = a.producer.Ping
	}
	healthHandler := readiness.handler()

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment

	router := handler.NewRouter(services, healthHandler, logger, handler.RouterConfig{
		CORS:       cors,
		PprofCIDRs: cfg.Observability.PprofAllowedCIDR,

		CredentialLimit: middleware.RateLimitConfig{
			Every:          cfg.CredentialRateEvery,
			Burst:          cfg.CredentialRateBurst,
			TrustForwarded: cfg.TrustForwardedHeader,
		},
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// revocationList selects the configured revocation backend.
func (a *App) revocationList(ctx context.Context) (repository.RevocationList, error) {
	switch a.cfg.RevocationBackend {
	case config.RevocationRedis:
		client, err := database.NewRedisClient(ctx, a.cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		a.logger.Info("connected to Redis", slog.String("addr", a.cfg.RedisAddr))
		return redis.NewRevocationList(client), nil
	case config.RevocationMemory:
		list := memory.NewRevocationList()
		a.purger = list
		return list, nil
	default:
		list := postgres.NewRevocationList(a.pool)
		a.purger = list
		return list, nil
	}
}

// readinessChecks holds the pings behind /health/ready. A nil check is not
// registered. Redis backs token revocation, so losing it fails readiness;
// kafka only degrades it.
type readinessChecks struct {
	postgres health.Checker
	redis    health.Checker
	kafka    health.Checker
}

func (c readinessChecks) handler() *health.Handler {
	h := health.NewHandler()
	h.Register("postgres", c.postgres)
	if c.redis != nil {
		h.Register("redis", c.redis)
	}
	if c.kafka != nil {
		h.RegisterOptional("kafka", c.kafka)
	}
	return h
}

// CreateSuperuser creates a staff admin account. It is left unverified;
// admins pass the verification gate without it.
func (a *App) CreateSuperuser(ctx context.Context, email, password string) (*domain.User, error) {
	return a.credentials.CreateSuperuser(ctx, email, password)
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	if a.purger != nil && a.cfg.RevocationPurgeEvery > 0 {
		a.background.Add(1)
		go func() {
			defer a.background.Done()
			runPurger(bgCtx, a.purger, a.cfg.RevocationPurgeEvery, a.logger)
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		stopBackground()
		a.background.Wait()
		return errors.Join(err, a.Shutdown())
	}

	stopBackground()
	a.background.Wait()
	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	if a.httpServer != nil {
		httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer httpCancel()
		if err := a.httpServer.Shutdown(httpCtx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
