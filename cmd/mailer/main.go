package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/utafrali/GymTrack/internal/app"
	"github.com/utafrali/GymTrack/internal/config"
	"github.com/utafrali/GymTrack/pkg/logger"
)

func main() {
	cfg, err := config.LoadMailer()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("gymtrack-mailer", cfg.LogLevel)
	log.Info("starting gymtrack mailer",
		slog.String("environment", cfg.Environment),
		slog.String("backend", cfg.Backend),
	)

	mailer, err := app.NewMailer(cfg, log)
	if err != nil {
		log.Error("failed to initialize mailer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := mailer.Run(ctx); err != nil {
		log.Error("mailer error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("gymtrack mailer stopped")
}
