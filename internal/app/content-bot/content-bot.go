package contentbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/content-delivery-bot/internal/blobstore"
	"github.com/magabrotheeeer/content-delivery-bot/internal/config"
	"github.com/magabrotheeeer/content-delivery-bot/internal/conversation"
	"github.com/magabrotheeeer/content-delivery-bot/internal/http/handlers/health"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/jwt"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/retry"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
	"github.com/magabrotheeeer/content-delivery-bot/internal/metrics"
	"github.com/magabrotheeeer/content-delivery-bot/internal/migrations"
	"github.com/magabrotheeeer/content-delivery-bot/internal/rabbitmq"
	adminservice "github.com/magabrotheeeer/content-delivery-bot/internal/services/admin"
	"github.com/magabrotheeeer/content-delivery-bot/internal/services/delivery"
	"github.com/magabrotheeeer/content-delivery-bot/internal/services/lifecycle"
	"github.com/magabrotheeeer/content-delivery-bot/internal/services/sweeper"
	"github.com/magabrotheeeer/content-delivery-bot/internal/storage/repository"
	"github.com/magabrotheeeer/content-delivery-bot/internal/telegram"
)

const (
	shutdownTimeout = 15 * time.Second
	startupAttempts = 5
	// webhookPath путь по умолчанию, если в WEBHOOK_URL его нет
	webhookPath = "/telegram/webhook"
)

// startupPolicy повторы проверок доступности зависимостей при старте
var startupPolicy = retry.Policy{Attempts: startupAttempts, Initial: time.Second, Max: 10 * time.Second}

type App struct {
	server        *http.Server
	logger        *slog.Logger
	db            *repository.Storage
	conversations *conversation.Store
	amqpConn      *amqp.Connection
	amqpCh        *amqp.Channel
	bot           *bot.Bot
	updates       *updateDispatcher
	sweeper       *sweeper.Service
	webhookURL    string
	webhookSecret string
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "contentbot.New"

	app := &App{
		logger:        logger,
		webhookURL:    cfg.WebhookURL,
		webhookSecret: cfg.WebhookSecret,
	}
	ok := false
	defer func() {
		if !ok {
			app.close()
		}
	}()

	onRetry := func(dep string) func(error, time.Duration) {
		return func(err error, wait time.Duration) {
			logger.Warn("dependency unavailable, retrying", slog.String("dependency", dep), slog.Duration("wait", wait), sl.Err(err))
		}
	}

	err := retry.Do(ctx, startupPolicy, func(ctx context.Context) error {
		var err error
		app.db, err = repository.New(ctx, cfg.StorageConnectionString, cfg.RequestExpiry())
		return err
	}, onRetry("postgres"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(app.db.DB, cfg.MigrationsPath); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = retry.Do(ctx, startupPolicy, func(ctx context.Context) error {
		var err error
		app.conversations, err = conversation.InitServer(ctx, cfg.RedisConnection, conversation.DefaultTTL)
		return err
	}, onRetry("redis"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var events lifecycle.EventPublisher = rabbitmq.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		app.amqpConn, err = rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.amqpCh, err = rabbitmq.SetupChannel(app.amqpConn, rabbitmq.GetAuditQueues())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		events = rabbitmq.NewPublisher(app.amqpCh)
	} else {
		logger.Warn("rabbitmq url is empty, audit events are disabled")
	}

	m := metrics.New()
	policy := retry.DefaultPolicy
	policy.Attempts = cfg.OutboundRetries + 1

	var drive blobstore.Resolver
	if cfg.CredentialsPath != "" {
		drive, err = blobstore.NewDriveResolver(ctx, cfg.CredentialsPath, cfg.BlobMaxBytes)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		logger.Warn("google drive credentials are not set, only http(s) locators are supported")
	}
	blobs := blobstore.New(
		drive,
		blobstore.NewHTTPResolver(&http.Client{Timeout: cfg.OutboundTimeout}, cfg.BlobMaxBytes),
		cfg.OutboundTimeout, policy, m, logger,
	)

	// обработчик обновлений появляется после создания бота, поэтому вызывается через замыкание
	var router *telegram.Router
	app.updates = newUpdateDispatcher(func(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
		router.Handle(ctx, b, update)
	}, updateTimeout)
	opts := []bot.Option{
		bot.WithDefaultHandler(app.updates.Dispatch),
		bot.WithNotAsyncHandlers(),
		bot.WithErrorsHandler(func(err error) {
			logger.Error("telegram updates error", sl.Err(err))
		}),
	}
	if cfg.WebhookURL != "" {
		opts = append(opts, bot.WithWebhookSecretToken(cfg.WebhookSecret))
	}
	err = retry.Do(ctx, startupPolicy, func(ctx context.Context) error {
		var err error
		app.bot, err = bot.New(cfg.Token, opts...)
		if errors.Is(err, bot.ErrorUnauthorized) {
			return retry.Permanent(err)
		}
		return err
	}, onRetry("telegram"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	gateway := telegram.NewGateway(app.bot, telegram.GatewayConfig{
		ProviderToken: cfg.ProviderToken,
		ChannelID:     cfg.AdvertisingChannelID,
		Timeout:       cfg.OutboundTimeout,
		RateLimit:     cfg.APIRateLimit,
		Policy:        policy,
	}, m, logger)

	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	if cfg.JWTSecretKey == "" {
		logger.Warn("jwt secret is empty, admin http api is disabled")
	}

	lifecycleService := lifecycle.New(app.db, gateway, gateway, gateway, events, m, lifecycle.Pricing{
		Amount:      cfg.PriceAmount,
		Currency:    cfg.Currency,
		Title:       cfg.ProductTitle,
		Description: cfg.ProductDescription,
	}, cfg.NotificationChatID(), logger)
	deliveryService := delivery.New(app.db, blobs, gateway, events, m, cfg.AdminID, logger)
	adminService := adminservice.New(app.db, blobs, tokens, cfg.AdminID, logger)
	app.sweeper = sweeper.New(app.db, events, m, cfg.SweepInterval(), logger)

	router = telegram.NewRouter(lifecycleService, deliveryService, adminService, app.conversations, gateway, telegram.RouterConfig{
		PriceAmount:    cfg.PriceAmount,
		Currency:       cfg.Currency,
		InviteLink:     cfg.AdvertisingChannelInviteLink,
		SupportContact: cfg.SupportContact,
	}, logger)

	rt := Routes{
		Logger:  logger,
		Admin:   adminService,
		Tokens:  tokens,
		AdminID: cfg.AdminID,
		Metrics: m.Handler(),
		Health: map[string]health.Pinger{
			"postgres": app.db,
			"redis":    app.conversations,
		},
	}
	if cfg.WebhookURL != "" {
		rt.Webhook = app.bot.WebhookHandler()
		rt.WebhookRoute = webhookRoute(cfg.WebhookURL)
	}
	r := chi.NewRouter()
	RegisterRoutes(r, rt)

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      r,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ok = true
	return app, nil
}

// webhookRoute путь из WEBHOOK_URL, на котором сервер принимает обновления.
func webhookRoute(webhookURL string) string {
	u, err := url.Parse(webhookURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return webhookPath
	}
	return u.Path
}

// Run запускает HTTP сервер, прием обновлений и очистку просроченных платежей.
// Возвращается после отмены ctx или падения HTTP сервера.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.setupUpdates(ctx); err != nil {
		a.close()
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.sweeper.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if a.webhookURL != "" {
			a.logger.Info("receiving updates via webhook", slog.String("url", a.webhookURL))
			a.bot.StartWebhook(ctx)
			return
		}
		a.logger.Info("receiving updates via long polling")
		a.bot.Start(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
		a.logger.Error("HTTP server stopped", sl.Err(runErr))
	case <-ctx.Done():
	}

	cancel()
	timeoutCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	a.logger.Info("shutting down gracefully")
	if err := a.server.Shutdown(timeoutCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	wg.Wait()
	if err := a.updates.Wait(timeoutCtx); err != nil {
		a.logger.Error("update handlers did not finish before shutdown", sl.Err(err))
		runErr = errors.Join(runErr, err)
	}
	a.close()
	return runErr
}

// setupUpdates регистрирует webhook или удаляет его перед long polling.
func (a *App) setupUpdates(ctx context.Context) error {
	const op = "contentbot.setupUpdates"
	if a.webhookURL != "" {
		_, err := a.bot.SetWebhook(ctx, &bot.SetWebhookParams{
			URL:         a.webhookURL,
			SecretToken: a.webhookSecret,
			AllowedUpdates: []string{
				"message", "callback_query", "pre_checkout_query",
			},
		})
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
	if _, err := a.bot.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (a *App) close() {
	if a.amqpCh != nil {
		if err := a.amqpCh.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.amqpConn != nil {
		if err := a.amqpConn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.conversations != nil {
		if err := a.conversations.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database", sl.Err(err))
		}
	}
}
