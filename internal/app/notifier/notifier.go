// Package notifier собирает процесс, который пересылает события аудита администратору.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/content-delivery-bot/internal/config"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/retry"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
	"github.com/magabrotheeeer/content-delivery-bot/internal/metrics"
	"github.com/magabrotheeeer/content-delivery-bot/internal/rabbitmq"
	notifierservice "github.com/magabrotheeeer/content-delivery-bot/internal/services/notifier"
	"github.com/magabrotheeeer/content-delivery-bot/internal/telegram"
)

// auditQueue очередь, которую читает notifier
const auditQueue = "audit.admin"

var (
	errNoBroker        = errors.New("rabbitmq url is required for the notifier")
	errConsumerStopped = errors.New("audit consumer stopped unexpectedly")
)

type App struct {
	conn            *amqp.Connection
	ch              *amqp.Channel
	notifierService *notifierservice.Service
	logger          *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "notifier.New"
	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("%s: %w", op, errNoBroker)
	}

	// notifier только отправляет сообщения, getMe при старте не нужен
	b, err := bot.New(cfg.Token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	policy := retry.DefaultPolicy
	policy.Attempts = cfg.OutboundRetries + 1
	gateway := telegram.NewGateway(b, telegram.GatewayConfig{
		Timeout:   cfg.OutboundTimeout,
		RateLimit: cfg.APIRateLimit,
		Policy:    policy,
	}, metrics.New(), logger)

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetAuditQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &App{
		conn:            conn,
		ch:              ch,
		notifierService: notifierservice.New(gateway, cfg.NotificationChatID(), logger),
		logger:          logger,
	}, nil
}

// Run читает очередь аудита до отмены ctx. Если брокер закрыл канал раньше,
// возвращает ошибку, чтобы процесс перезапустился.
func (a *App) Run(ctx context.Context) error {
	done, err := rabbitmq.ConsumerMessage(ctx, a.ch, auditQueue, a.logger, a.notifierService.HandleAuditEvent)
	if err != nil {
		a.logger.Error("failed to start audit consumer", sl.Err(err))
		return err
	}
	a.logger.Info("consuming audit events", slog.String("queue", auditQueue))

	runErr := waitConsumer(ctx, done)
	if runErr != nil {
		a.logger.Error("audit consumer stopped", sl.Err(runErr))
	} else {
		a.logger.Info("notifier shutting down gracefully")
	}

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}

	return runErr
}

// waitConsumer ждет отмены ctx или остановки потребителя.
func waitConsumer(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		if ctx.Err() != nil {
			return nil
		}
		return errConsumerStopped
	case <-ctx.Done():
		<-done
		return nil
	}
}
