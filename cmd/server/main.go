package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/utafrali/GymTrack/internal/app"
	"github.com/utafrali/GymTrack/internal/config"
	"github.com/utafrali/GymTrack/pkg/logger"
)

func main() {
	createSuperuser := flag.Bool("create-superuser", false, "create an admin account and exit")
	email := flag.String("email", "", "superuser email (with -create-superuser)")
	password := flag.String("password", "", "superuser password (with -create-superuser)")
	flag.Parse()

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("gymtrack-api", cfg.LogLevel)
	log.Info("starting gymtrack api",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if *createSuperuser {
		os.Exit(runCreateSuperuser(application, log, *email, *password))
	}

	// Create a context that is cancelled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := application.Run(ctx); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("gymtrack api stopped")
}

func runCreateSuperuser(application *app.App, log *slog.Logger, email, password string) int {
	defer func() { _ = application.Shutdown() }()

	if email == "" || password == "" {
		log.Error("-email and -password are required with -create-superuser")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	u, err := application.CreateSuperuser(ctx, email, password)
	if err != nil {
		log.Error("failed to create superuser", slog.String("error", err.Error()))
		return 1
	}
	log.Info("superuser created", slog.String("user_id", u.ID), slog.String("email", u.Email))
	return 0
}
