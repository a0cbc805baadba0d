// Package admin содержит запросы администратора: статистику, списки платежей,
// карточку платежа и управление контент-библиотекой.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/content-delivery-bot/internal/blobstore"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
	"github.com/magabrotheeeer/content-delivery-bot/internal/storage"
)

var (
	ErrUnauthorized    = errors.New("admin privileges required")
	ErrInvalidContent  = errors.New("invalid content")
	ErrDuplicateTitle  = errors.New("content with this title already exists")
	ErrLocatorNotFound = errors.New("content file not found in storage")
)

// Ограничения на размер выборок.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Repository interface {
	GetStats(ctx context.Context, now time.Time) (*models.Stats, error)
	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	GetContent(ctx context.Context, contentID string) (*models.Content, error)
	ListPayments(ctx context.Context, limit, offset int) ([]*models.Payment, error)
	ListPaymentsByStatus(ctx context.Context, status models.PaymentStatus, limit int) ([]*models.Payment, error)
	ListUserPayments(ctx context.Context, userID int64, limit int) ([]*models.Payment, error)
	ListContent(ctx context.Context, limit, offset int) ([]*models.Content, error)
	AddContent(ctx context.Context, content models.Content) (*models.Content, error)
}

// LocatorChecker проверяет, что локатор указывает на существующий файл.
type LocatorChecker interface {
	Metadata(ctx context.Context, locator string) (string, error)
}

// TokenIssuer выпускает токен для HTTP API администратора.
type TokenIssuer interface {
	GenerateToken(adminID int64) (string, error)
}

type Service struct {
	repo     Repository
	locators LocatorChecker
	tokens   TokenIssuer
	validate *validator.Validate
	adminID  int64
	log      *slog.Logger
	now      func() time.Time
	newID    func() string
}

func New(repo Repository, locators LocatorChecker, tokens TokenIssuer, adminID int64, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		locators: locators,
		tokens:   tokens,
		validate: validator.New(),
		adminID:  adminID,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// IsAdmin сообщает, является ли пользователь администратором.
func (s *Service) IsAdmin(userID int64) bool {
	return userID == s.adminID
}

func (s *Service) authorize(op string, userID int64) error {
	if !s.IsAdmin(userID) {
		s.log.Warn("admin command rejected", slog.String("op", op), sl.UserID(userID))
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	return nil
}

func (s *Service) Stats(ctx context.Context, adminID int64) (*models.Stats, error) {
	const op = "admin.Stats"
	if err := s.authorize(op, adminID); err != nil {
		return nil, err
	}
	stats, err := s.repo.GetStats(ctx, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}

// Payments возвращает все платежи от новых к старым.
func (s *Service) Payments(ctx context.Context, adminID int64, limit, offset int) ([]*models.Payment, error) {
	const op = "admin.Payments"
	if err := s.authorize(op, adminID); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	payments, err := s.repo.ListPayments(ctx, clampLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}

// AwaitingDelivery возвращает оплаченные, но еще не доставленные платежи, старые первыми.
func (s *Service) AwaitingDelivery(ctx context.Context, adminID int64, limit int) ([]*models.Payment, error) {
	const op = "admin.AwaitingDelivery"
	if err := s.authorize(op, adminID); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPaymentsByStatus(ctx, models.StatusCompleted, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}

// PaymentDetails собирает платеж, его владельца и привязанный контент.
func (s *Service) PaymentDetails(ctx context.Context, adminID int64, paymentID string) (*models.PaymentDetails, error) {
	const op = "admin.PaymentDetails"
	if err := s.authorize(op, adminID); err != nil {
		return nil, err
	}

	payment, err := s.repo.GetPayment(ctx, strings.TrimSpace(paymentID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	details := &models.PaymentDetails{Payment: payment}

	user, err := s.repo.GetUser(ctx, payment.UserID)
	switch {
	case err == nil:
		details.User = user
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if payment.ContentID != nil {
		content, err := s.repo.GetContent(ctx, *payment.ContentID)
		switch {
		case err == nil:
			details.Content = content
		case !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return details, nil
}

// UserPayments последние платежи пользователя. Доступно самому пользователю.
func (s *Service) UserPayments(ctx context.Context, userID int64, limit int) ([]*models.Payment, error) {
	const op = "admin.UserPayments"
	payments, err := s.repo.ListUserPayments(ctx, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}

func (s *Service) Contents(ctx context.Context, adminID int64, limit, offset int) ([]*models.Content, error) {
	const op = "admin.Contents"
	if err := s.authorize(op, adminID); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	contents, err := s.repo.ListContent(ctx, clampLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return contents, nil
}

// AddContent регистрирует файл в библиотеке под новым content_id.
// Если хранилище однозначно сообщает, что файла нет, запрос отклоняется.
// Прочие ошибки проверки только логируются.
func (s *Service) AddContent(ctx context.Context, adminID int64, req models.AddContentRequest) (*models.Content, error) {
	const op = "admin.AddContent"
	if err := s.authorize(op, adminID); err != nil {
		return nil, err
	}
	log := s.log.With(slog.String("op", op))

	req.Title = strings.TrimSpace(req.Title)
	req.Locator = strings.TrimSpace(req.Locator)
	req.FileType = strings.ToLower(strings.TrimSpace(req.FileType))
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidContent, err)
	}

	if s.locators != nil {
		_, err := s.locators.Metadata(ctx, req.Locator)
		switch {
		case errors.Is(err, blobstore.ErrNotFound):
			return nil, fmt.Errorf("%s: %w: %w", op, ErrLocatorNotFound, err)
		case errors.Is(err, blobstore.ErrUnsupportedLocator):
			return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidContent, err)
		case err != nil:
			log.Warn("could not verify content locator", slog.String("locator", req.Locator), sl.Err(err))
		}
	}

	content, err := s.repo.AddContent(ctx, models.Content{
		ContentID:  s.newID(),
		Title:      req.Title,
		FilePath:   req.Locator,
		FileType:   models.FileType(req.FileType),
		UploadedAt: s.now().UTC(),
		AdminID:    adminID,
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrDuplicateTitle, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("content added", slog.String("content_id", content.ContentID), slog.String("title", content.Title))
	return content, nil
}

// IssueToken выпускает bearer-токен для HTTP API администратора.
func (s *Service) IssueToken(adminID int64) (string, error) {
	const op = "admin.IssueToken"
	if err := s.authorize(op, adminID); err != nil {
		return "", err
	}
	token, err := s.tokens.GenerateToken(adminID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}
