package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/GymTrack/internal/domain"
	"github.com/utafrali/GymTrack/internal/service"
	"github.com/utafrali/GymTrack/pkg/health"
	"github.com/utafrali/GymTrack/pkg/middleware"
)

const component = "gymtrack-api"

// Services groups the business services exposed over HTTP.
type Services struct {
	Accounts  *service.AccountService
	Workouts  *service.WorkoutService
	Exercises *service.ExerciseService
	Gate      *service.Gate
}

// RouterConfig holds the transport-level settings of the router.
type RouterConfig struct {
	CORS       middleware.CORSConfig
	PprofCIDRs []string
	// CredentialLimit throttles the unauthenticated credential endpoints.
	// A zero Burst disables it.
	CredentialLimit middleware.RateLimitConfig
}

// NewRouter creates a chi router with all GymTrack routes registered.
func NewRouter(
	svc Services,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(component))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(component))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	authn := middleware.Auth(GateValidator(svc.Gate))
	requireUser := middleware.RequireLevel(int(domain.TierUser), "Email is not verified.")
	requireAdmin := middleware.RequireLevel(int(domain.TierAdmin), "You do not have permission to perform this action.")

	authHandler := NewAuthHandler(svc.Accounts, logger)
	userHandler := NewUserHandler(svc.Accounts, logger)

	r.Route("/api/v1/user", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.NoStore)

		// Public account lifecycle
		r.Group(func(r chi.Router) {
			if cfg.CredentialLimit.Burst > 0 {
				r.Use(middleware.RateLimit(cfg.CredentialLimit, logger))
			}
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/email-verify/resend", authHandler.ResendVerification)
			r.Post("/password-reset/request", authHandler.RequestPasswordReset)
			r.Patch("/password-reset/complete", authHandler.CompletePasswordReset)
		})
		r.Get("/email-verify", authHandler.VerifyEmail)
		r.Post("/token/refresh", authHandler.RefreshToken)
		r.Get("/password-reset/confirm/{uidb64}/{token}", authHandler.CheckResetToken)

		// Any authenticated caller, verified or not, may manage their own
		// account so an email typo can be corrected.
		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Use(middleware.RequestLogger(logger))

			r.Get("/me", userHandler.GetProfile)
			r.Patch("/me", userHandler.UpdateProfile)
			r.Patch("/profile", userHandler.UpdateProfile)
			r.Post("/logout", authHandler.Logout)
		})
	})

	workoutHandler := NewWorkoutHandler(svc.Workouts, logger)
	r.Route("/api/v1/workouts", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(authn)
		r.Use(requireUser)
		r.Use(middleware.RequestLogger(logger))

		r.Get("/", workoutHandler.List)
		r.Post("/", workoutHandler.Create)
		r.Get("/{id}", workoutHandler.Get)
		r.Delete("/{id}", workoutHandler.Delete)
	})

	exerciseHandler := NewExerciseHandler(svc.Exercises, logger)
	r.Route("/api/v1/exercises", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(authn)
		r.Use(requireUser)
		r.Use(middleware.RequestLogger(logger))

		r.Get("/", exerciseHandler.List)
		r.With(requireAdmin).Post("/", exerciseHandler.Create)
	})

	return r
}
