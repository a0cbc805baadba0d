// Package lifecycle управляет жизненным циклом платежа: создание ожидающего
// платежа и выставление счета, проверка pre-checkout запроса и фиксация
// успешной оплаты.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
	"github.com/magabrotheeeer/content-delivery-bot/internal/metrics"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
	"github.com/magabrotheeeer/content-delivery-bot/internal/storage"
)

var (
	// ErrNotMember пользователь не подписан на обязательный канал
	ErrNotMember = errors.New("user is not a member of the required channel")
	// ErrExternalService провайдер или мессенджер не ответил
	ErrExternalService = errors.New("external service failure")
)

// Причины отказа в pre-checkout
const (
	ReasonUnknownPayment = "Invalid or expired payment request."
	ReasonWrongUser      = "This invoice was issued to another user."
	ReasonNotPending     = "This payment request is no longer payable."
	ReasonExpired        = "This payment request has expired. Please request the content again."
	ReasonInternal       = "Payment cannot be verified right now. Please try again later."
)

// maxIDAttempts число попыток сгенерировать свободный payment_id
const maxIDAttempts = 3

type Repository interface {
	UpsertUser(ctx context.Context, user models.User) error
	CreatePendingPayment(ctx context.Context, paymentID string, userID, amount int64, currency string) (*models.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	MarkCompleted(ctx context.Context, paymentID, providerChargeID string) (*models.Payment, error)
}

type MembershipChecker interface {
	IsChannelMember(ctx context.Context, userID int64) (bool, error)
}

type InvoiceSender interface {
	SendInvoice(ctx context.Context, invoice models.Invoice) error
}

type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.PaymentEvent) error
}

// Pricing цена и описание товара в счете
type Pricing struct {
	Amount      int64
	Currency    string
	Title       string
	Description string
}

// Decision результат проверки pre-checkout. Reason не пуст при отказе.
type Decision struct {
	OK     bool
	Reason string
}

type Service struct {
	repo        Repository
	members     MembershipChecker
	invoices    InvoiceSender
	notifier    Notifier
	events      EventPublisher
	metrics     *metrics.Metrics
	pricing     Pricing
	adminChatID int64
	log         *slog.Logger
	now         func() time.Time
	newID       func() string
}

func New(
	repo Repository,
	members MembershipChecker,
	invoices InvoiceSender,
	notifier Notifier,
	events EventPublisher,
	m *metrics.Metrics,
	pricing Pricing,
	adminChatID int64,
	log *slog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		members:     members,
		invoices:    invoices,
		notifier:    notifier,
		events:      events,
		metrics:     m,
		pricing:     pricing,
		adminChatID: adminChatID,
		log:         log,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// RegisterUser создает или обновляет пользователя при каждом его действии.
func (s *Service) RegisterUser(ctx context.Context, user models.User) error {
	const op = "lifecycle.RegisterUser"
	if err := s.repo.UpsertUser(ctx, user); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RequestContent создает ожидающий платеж и выставляет счет с payload = payment_id.
// Если счет отправить не удалось, платеж остается pending и истечет сам.
func (s *Service) RequestContent(ctx context.Context, user models.User) (*models.Payment, error) {
	const op = "lifecycle.RequestContent"
	log := s.log.With(slog.String("op", op), sl.UserID(user.UserID))

	ok, err := s.members.IsChannelMember(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: membership check: %w: %w", op, ErrExternalService, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrNotMember)
	}

	var payment *models.Payment
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		payment, err = s.repo.CreatePendingPayment(ctx, s.newID(), user.UserID, s.pricing.Amount, s.pricing.Currency)
		if !errors.Is(err, storage.ErrDuplicateKey) {
			break
		}
		log.Warn("payment id collision, regenerating", sl.Err(err))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.PaymentsCreated.Inc()
	log = log.With(sl.PaymentID(payment.PaymentID))

	err = s.invoices.SendInvoice(ctx, models.Invoice{
		ChatID:      user.UserID,
		Title:       s.pricing.Title,
		Description: s.pricing.Description,
		Payload:     payment.PaymentID,
		Currency:    payment.Currency,
		Amount:      payment.Amount,
	})
	if err != nil {
		log.Error("failed to send invoice, payment left pending", sl.Err(err))
		return payment, fmt.Errorf("%s: send invoice: %w: %w", op, ErrExternalService, err)
	}

	log.Info("invoice sent")
	return payment, nil
}

// PreCheckout одобряет оплату, только если платеж существует, ожидает оплаты,
// не просрочен и принадлежит запрашивающему пользователю.
// Ошибка хранилища возвращается вместе с отказом.
func (s *Service) PreCheckout(ctx context.Context, payload string, userID int64) (Decision, error) {
	const op = "lifecycle.PreCheckout"
	log := s.log.With(slog.String("op", op), sl.PaymentID(payload), sl.UserID(userID))

	decision, err := s.decide(ctx, payload, userID)
	if err != nil {
		log.Error("pre-checkout lookup failed", sl.Err(err))
		err = fmt.Errorf("%s: %w", op, err)
	}
	if decision.OK {
		s.metrics.PreCheckouts.WithLabelValues("approved").Inc()
		log.Info("pre-checkout approved")
	} else {
		s.metrics.PreCheckouts.WithLabelValues("rejected").Inc()
		log.Info("pre-checkout rejected", slog.String("reason", decision.Reason))
	}
	return decision, err
}

func (s *Service) decide(ctx context.Context, payload string, userID int64) (Decision, error) {
	payment, err := s.repo.GetPayment(ctx, payload)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return Decision{Reason: ReasonUnknownPayment}, nil
	case err != nil:
		return Decision{Reason: ReasonInternal}, err
	case payment.UserID != userID:
		return Decision{Reason: ReasonWrongUser}, nil
	case payment.Status != models.StatusPending:
		return Decision{Reason: ReasonNotPending}, nil
	case s.now().After(payment.ExpiryTimestamp):
		return Decision{Reason: ReasonExpired}, nil
	}
	return Decision{OK: true}, nil
}

// CompletePayment фиксирует успешную оплату. Повторное событие для уже
// обработанного платежа не считается ошибкой: возвращается false без уведомлений.
// Сбой уведомлений не отменяет фиксацию.
func (s *Service) CompletePayment(ctx context.Context, sp models.SuccessfulPayment) (*models.Payment, bool, error) {
	const op = "lifecycle.CompletePayment"
	log := s.log.With(slog.String("op", op), sl.PaymentID(sp.PaymentID), sl.UserID(sp.UserID))

	payment, err := s.repo.MarkCompleted(ctx, sp.PaymentID, sp.ProviderChargeID)
	if errors.Is(err, storage.ErrInvalidTransition) {
		s.metrics.DuplicateCompletions.Inc()
		current, getErr := s.repo.GetPayment(ctx, sp.PaymentID)
		if getErr != nil {
			// статус неизвестен: списание нужно сверить вручную
			log.Error("payment is not pending and cannot be read", sl.Err(getErr))
			s.notify(ctx, log, s.adminChatID, uncheckedPaidText(sp))
			return nil, false, fmt.Errorf("%s: %w", op, getErr)
		}
		if current.Status == models.StatusExpired {
			// деньги списаны, а запрос уже истек: нужен ручной возврат или доставка
			log.Error("payment received for expired request", slog.String("charge_id", sp.ProviderChargeID))
			s.notify(ctx, log, s.adminChatID, expiredPaidText(current, sp))
			return current, false, nil
		}
		log.Info("duplicate successful payment event ignored", slog.String("status", current.Status.String()))
		return current, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if payment.UserID != sp.UserID {
		log.Warn("successful payment from unexpected user", slog.Int64("owner_id", payment.UserID))
	}

	s.metrics.PaymentsCompleted.Inc()
	log.Info("payment completed")

	s.notify(ctx, log, payment.UserID, userPaidText(payment))
	s.notify(ctx, log, s.adminChatID, adminPaidText(payment, sp))
	if err := s.events.Publish(ctx, models.PaymentEvent{
		Type:       models.EventPaymentCompleted,
		PaymentID:  payment.PaymentID,
		UserID:     payment.UserID,
		Amount:     payment.Amount,
		Currency:   payment.Currency,
		OccurredAt: s.now().UTC(),
	}); err != nil {
		log.Warn("failed to publish audit event", sl.Err(err))
	}
	return payment, true, nil
}

func (s *Service) notify(ctx context.Context, log *slog.Logger, chatID int64, text string) {
	if chatID == 0 {
		return
	}
	if err := s.notifier.SendMessage(ctx, chatID, text); err != nil {
		log.Warn("failed to send notification", slog.Int64("chat_id", chatID), sl.Err(err))
	}
}
