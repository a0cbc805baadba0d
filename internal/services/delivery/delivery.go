// Package delivery привязывает оплаченный платеж к элементу контент-библиотеки
// и отправляет файл пользователю.
//
// Точка фиксации одна: перевод платежа в delivered. Все, что происходит после
// нее (скачивание файла и отправка), может не удаться, но статус платежа уже
// не откатывается. Администратор видит такую ситуацию как ErrPartialDelivery и
// может повторить отправку через Resend.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/content-delivery-bot/internal/blobstore"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
	"github.com/magabrotheeeer/content-delivery-bot/internal/metrics"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
	"github.com/magabrotheeeer/content-delivery-bot/internal/storage"
)

var (
	ErrUnauthorized    = errors.New("only the administrator can deliver content")
	ErrNotDeliverable  = errors.New("payment is not awaiting delivery")
	ErrContentNotFound = errors.New("content not found")
	ErrPartialDelivery = errors.New("content linked but not delivered")
	ErrNotDelivered    = errors.New("payment has no delivered content")
	ErrPaymentNotFound = errors.New("payment not found")
)

type Repository interface {
	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	GetContent(ctx context.Context, contentID string) (*models.Content, error)
	LinkContentAndDeliver(ctx context.Context, paymentID, contentID string) (*models.Payment, error)
}

type BlobStore interface {
	Resolve(ctx context.Context, locator string) (*blobstore.Blob, error)
}

// Sender отправляет файл в чат пользователя.
type Sender interface {
	SendDocument(ctx context.Context, chatID int64, file models.File) error
	SendVideo(ctx context.Context, chatID int64, file models.File) error
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.PaymentEvent) error
}

// Result показывает, на каком шаге остановилась доставка.
type Result struct {
	Payment   *models.Payment
	Content   *models.Content
	Linked    bool
	Delivered bool
}

type Service struct {
	repo    Repository
	blobs   BlobStore
	sender  Sender
	events  EventPublisher
	metrics *metrics.Metrics
	adminID int64
	log     *slog.Logger
	now     func() time.Time
}

func New(repo Repository, blobs BlobStore, sender Sender, events EventPublisher, m *metrics.Metrics, adminID int64, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		blobs:   blobs,
		sender:  sender,
		events:  events,
		metrics: m,
		adminID: adminID,
		log:     log,
		now:     time.Now,
	}
}

// Deliver связывает completed платеж с контентом и отправляет файл владельцу платежа.
// При ошибке после привязки возвращает Result{Linked: true} и ErrPartialDelivery.
func (s *Service) Deliver(ctx context.Context, paymentID, contentID string, adminID int64) (Result, error) {
	const op = "delivery.Deliver"
	log := s.log.With(slog.String("op", op), sl.PaymentID(paymentID), slog.String("content_id", contentID))

	if adminID != s.adminID {
		s.metrics.Deliveries.WithLabelValues(metrics.DeliveryRejected).Inc()
		log.Warn("deliver attempt by non-admin", slog.Int64("caller_id", adminID))
		return Result{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		s.metrics.Deliveries.WithLabelValues(metrics.DeliveryRejected).Inc()
		if errors.Is(err, storage.ErrNotFound) {
			return Result{}, fmt.Errorf("%s: %w: %w", op, ErrPaymentNotFound, err)
		}
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if payment.Status != models.StatusCompleted {
		s.metrics.Deliveries.WithLabelValues(metrics.DeliveryRejected).Inc()
		return Result{Payment: payment}, fmt.Errorf("%s: payment is %s: %w", op, payment.Status, ErrNotDeliverable)
	}

	content, err := s.repo.GetContent(ctx, contentID)
	if err != nil {
		s.metrics.Deliveries.WithLabelValues(metrics.DeliveryRejected).Inc()
		if errors.Is(err, storage.ErrNotFound) {
			return Result{Payment: payment}, fmt.Errorf("%s: %w: %w", op, ErrContentNotFound, err)
		}
		return Result{Payment: payment}, fmt.Errorf("%s: %w", op, err)
	}

	linked, err := s.repo.LinkContentAndDeliver(ctx, paymentID, contentID)
	if err != nil {
		s.metrics.Deliveries.WithLabelValues(metrics.DeliveryRejected).Inc()
		switch {
		case errors.Is(err, storage.ErrInvalidTransition):
			// параллельная доставка успела первой
			return Result{Payment: payment, Content: content}, fmt.Errorf("%s: %w: %w", op, ErrNotDeliverable, err)
		case errors.Is(err, storage.ErrNotFound):
			return Result{Payment: payment, Content: content}, fmt.Errorf("%s: %w: %w", op, ErrContentNotFound, err)
		}
		return Result{Payment: payment, Content: content}, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("content linked, payment delivered")

	res := Result{Payment: linked, Content: content, Linked: true}
	s.publish(ctx, log, linked, content)

	if err := s.push(ctx, linked.UserID, content); err != nil {
		s.metrics.Deliveries.WithLabelValues(metrics.DeliveryPartial).Inc()
		log.Error("content linked but push failed", sl.Err(err))
		s.apologize(ctx, log, linked.UserID)
		return res, fmt.Errorf("%s: %w: %w", op, ErrPartialDelivery, err)
	}

	res.Delivered = true
	s.metrics.Deliveries.WithLabelValues(metrics.DeliveryDelivered).Inc()
	log.Info("content sent to user", sl.UserID(linked.UserID))
	return res, nil
}

// Resend повторно отправляет уже привязанный контент. Статус платежа не меняется.
func (s *Service) Resend(ctx context.Context, paymentID string, adminID int64) (Result, error) {
	const op = "delivery.Resend"
	log := s.log.With(slog.String("op", op), sl.PaymentID(paymentID))

	if adminID != s.adminID {
		return Result{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Result{}, fmt.Errorf("%s: %w: %w", op, ErrPaymentNotFound, err)
		}
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if payment.Status != models.StatusDelivered || payment.ContentID == nil {
		return Result{Payment: payment}, fmt.Errorf("%s: payment is %s: %w", op, payment.Status, ErrNotDelivered)
	}

	content, err := s.repo.GetContent(ctx, *payment.ContentID)
	if err != nil {
		return Result{Payment: payment}, fmt.Errorf("%s: %w", op, err)
	}

	res := Result{Payment: payment, Content: content, Linked: true}
	if err := s.push(ctx, payment.UserID, content); err != nil {
		s.metrics.Deliveries.WithLabelValues(metrics.DeliveryPartial).Inc()
		log.Error("resend failed", sl.Err(err))
		return res, fmt.Errorf("%s: %w: %w", op, ErrPartialDelivery, err)
	}

	res.Delivered = true
	s.metrics.Deliveries.WithLabelValues(metrics.DeliveryDelivered).Inc()
	log.Info("content resent", sl.UserID(payment.UserID))
	return res, nil
}

func (s *Service) push(ctx context.Context, userID int64, content *models.Content) error {
	blob, err := s.blobs.Resolve(ctx, content.FilePath)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", content.FilePath, err)
	}

	file := models.File{
		Name:    fileName(blob.Name, content),
		Data:    blob.Data,
		Caption: fmt.Sprintf(captionText, content.Title),
	}
	if content.FileType == models.FileTypeVideo {
		err = s.sender.SendVideo(ctx, userID, file)
	} else {
		err = s.sender.SendDocument(ctx, userID, file)
	}
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, log *slog.Logger, payment *models.Payment, content *models.Content) {
	err := s.events.Publish(ctx, models.PaymentEvent{
		Type:       models.EventPaymentDelivered,
		PaymentID:  payment.PaymentID,
		UserID:     payment.UserID,
		Amount:     payment.Amount,
		Currency:   payment.Currency,
		ContentID:  content.ContentID,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		log.Warn("failed to publish audit event", sl.Err(err))
	}
}

func (s *Service) apologize(ctx context.Context, log *slog.Logger, userID int64) {
	if err := s.sender.SendMessage(ctx, userID, deliveryFailedText); err != nil {
		log.Warn("failed to notify user about delivery failure", sl.Err(err))
	}
}

// fileName берет имя из хранилища, иначе "<title>.<file_type>".
func fileName(stored string, content *models.Content) string {
	if name := strings.TrimSpace(stored); name != "" {
		return name
	}
	ext := strings.ToLower(string(content.FileType))
	if ext == "" {
		ext = "file"
	}
	return content.Title + "." + ext
}

const (
	captionText        = "Here is your requested content: %s"
	deliveryFailedText = "⚠️ An error occurred while delivering your content. Please contact support."
)
