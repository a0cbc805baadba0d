package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/content-delivery-bot/internal/app/notifier"
	"github.com/magabrotheeeer/content-delivery-bot/internal/config"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.SetupLogger(cfg.Env)

	logger.Info("starting notifier", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := notifier.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize notifier app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("notifier app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("notifier app stopped gracefully")
}
