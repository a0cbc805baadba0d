// Package notifier читает события аудита из брокера и пересылает администратору
// то, о чем бот не сообщает в момент события.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
	"github.com/magabrotheeeer/content-delivery-bot/internal/rabbitmq"
	"github.com/magabrotheeeer/content-delivery-bot/internal/telegram"
)

type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type Service struct {
	sender MessageSender
	chatID int64
	log    *slog.Logger
}

// New создает новый экземпляр Service.
func New(sender MessageSender, chatID int64, log *slog.Logger) *Service {
	return &Service{
		sender: sender,
		chatID: chatID,
		log:    log,
	}
}

// HandleAuditEvent обрабатывает одно сообщение очереди аудита.
// Нечитаемое сообщение отбрасывается. Временная ошибка отправки возвращает его
// в очередь, постоянная (чат недоступен, неверный запрос) отбрасывает.
func (s *Service) HandleAuditEvent(ctx context.Context, body []byte) error {
	const op = "notifier.HandleAuditEvent"

	var event models.PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal audit event, dropping", slog.String("op", op), sl.Err(err))
		return nil
	}
	log := s.log.With(slog.String("op", op), slog.String("type", event.Type))

	switch event.Type {
	case models.EventPaymentsExpired:
		if err := s.sender.SendMessage(ctx, s.chatID, expiredSummaryText(event)); err != nil {
			if telegram.IsPermanent(err) {
				return fmt.Errorf("%s: %w", op, rabbitmq.Discard(err))
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		log.Info("expiry summary sent", slog.Int64("count", event.Count))
	case models.EventPaymentCompleted, models.EventPaymentDelivered:
		// администратор уже получил сообщение от бота
		log.Info("audit event",
			sl.PaymentID(event.PaymentID),
			sl.UserID(event.UserID),
			slog.String("amount", models.FormatAmount(event.Amount, event.Currency)),
			slog.String("content_id", event.ContentID),
		)
	default:
		log.Warn("unknown audit event type")
	}
	return nil
}

func expiredSummaryText(event models.PaymentEvent) string {
	return fmt.Sprintf("🧹 Expired %d unpaid payment request(s) at %s UTC.",
		event.Count, event.OccurredAt.UTC().Format("2006-01-02 15:04"))
}
