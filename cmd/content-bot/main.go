package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	contentbot "github.com/magabrotheeeer/content-delivery-bot/internal/app/content-bot"
	"github.com/magabrotheeeer/content-delivery-bot/internal/config"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.SetupLogger(cfg.Env)

	logger.Info("starting content-bot", slog.String("env", cfg.Env))
	logger.Debug("config loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := contentbot.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("content-bot stopped gracefully")
}
