package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
	"github.com/magabrotheeeer/content-delivery-bot/internal/storage"
)

const paymentColumns = `payment_id, user_id, amount, currency, status,
	request_timestamp, expiry_timestamp, completion_timestamp,
	provider_charge_id, content_id::text`

const paymentColumnsP = `p.payment_id, p.user_id, p.amount, p.currency, p.status,
	p.request_timestamp, p.expiry_timestamp, p.completion_timestamp,
	p.provider_charge_id, p.content_id::text`

func scanPayment(row scanner) (*models.Payment, error) {
	var (
		p          models.Payment
		status     string
		completion sql.NullTime
		chargeID   sql.NullString
		contentID  sql.NullString
	)
	err := row.Scan(&p.PaymentID, &p.UserID, &p.Amount, &p.Currency, &status,
		&p.RequestTimestamp, &p.ExpiryTimestamp, &completion, &chargeID, &contentID)
	if err != nil {
		return nil, err
	}
	p.Status = models.PaymentStatus(status)
	if completion.Valid {
		t := completion.Time
		p.CompletionTimestamp = &t
	}
	if chargeID.Valid {
		p.ProviderChargeID = &chargeID.String
	}
	if contentID.Valid {
		p.ContentID = &contentID.String
	}
	return &p, nil
}

// CreatePendingPayment создает платеж в статусе pending.
// Срок истечения вычисляется от текущего времени хранилища.
func (s *Storage) CreatePendingPayment(ctx context.Context, paymentID string, userID, amount int64, currency string) (*models.Payment, error) {
	const op = "storage.CreatePendingPayment"

	requestedAt := s.now()
	query := `
		INSERT INTO payments (payment_id, user_id, amount, currency, status, request_timestamp, expiry_timestamp)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6)
		RETURNING ` + paymentColumns
	row := s.DB.QueryRowContext(ctx, query,
		paymentID, userID, amount, currency, requestedAt, requestedAt.Add(s.requestExpiry))
	p, err := scanPayment(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapPgError(err))
	}
	return p, nil
}

// GetPayment возвращает платеж по идентификатору.
func (s *Storage) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	const op = "storage.GetPayment"

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_id = $1`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, paymentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: payment %s: %w", op, paymentID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// MarkCompleted переводит платеж pending -> completed.
func (s *Storage) MarkCompleted(ctx context.Context, paymentID, providerChargeID string) (*models.Payment, error) {
	const op = "storage.MarkCompleted"

	query := `
		UPDATE payments
		SET status = 'completed', completion_timestamp = $2, provider_charge_id = $3
		WHERE payment_id = $1 AND status = 'pending'
		RETURNING ` + paymentColumns
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, paymentID, s.now(), nullString(providerChargeID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, s.explainNoTransition(ctx, paymentID, models.StatusCompleted))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// LinkContentAndDeliver привязывает контент и переводит платеж completed -> delivered.
// После успешного вызова платеж окончательно доставлен, даже если отправка файла не удастся.
func (s *Storage) LinkContentAndDeliver(ctx context.Context, paymentID, contentID string) (*models.Payment, error) {
	const op = "storage.LinkContentAndDeliver"

	query := `
		UPDATE payments p
		SET status = 'delivered', content_id = c.content_id
		FROM content_library c
		WHERE p.payment_id = $1 AND p.status = 'completed' AND c.content_id = $2
		RETURNING ` + paymentColumnsP
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, paymentID, contentID))
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.GetContent(ctx, contentID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, fmt.Errorf("%s: %w", op, s.explainNoTransition(ctx, paymentID, models.StatusDelivered))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapPgError(err))
	}
	return p, nil
}

// explainNoTransition определяет, почему условный UPDATE не затронул строку:
// платежа нет или его статус не допускает перехода.
func (s *Storage) explainNoTransition(ctx context.Context, paymentID string, target models.PaymentStatus) error {
	var status string
	err := s.DB.QueryRowContext(ctx, `SELECT status FROM payments WHERE payment_id = $1`, paymentID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("payment %s: %w", paymentID, storage.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("payment %s %s -> %s: %w", paymentID, status, target, storage.ErrInvalidTransition)
}

// ExpireStalePending одним запросом переводит все просроченные pending платежи в expired.
// Возвращает количество затронутых строк.
func (s *Storage) ExpireStalePending(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.ExpireStalePending"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE payments SET status = 'expired' WHERE status = 'pending' AND expiry_timestamp < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// ListPayments возвращает платежи от новых к старым.
func (s *Storage) ListPayments(ctx context.Context, limit, offset int) ([]*models.Payment, error) {
	const op = "storage.ListPayments"

	query := `SELECT ` + paymentColumns + `
		FROM payments ORDER BY request_timestamp DESC, payment_id LIMIT $1 OFFSET $2`
	return s.queryPayments(ctx, op, query, limit, offset)
}

// ListPaymentsByStatus возвращает платежи в статусе, от старых к новым.
func (s *Storage) ListPaymentsByStatus(ctx context.Context, status models.PaymentStatus, limit int) ([]*models.Payment, error) {
	const op = "storage.ListPaymentsByStatus"

	query := `SELECT ` + paymentColumns + `
		FROM payments WHERE status = $1 ORDER BY request_timestamp ASC, payment_id LIMIT $2`
	return s.queryPayments(ctx, op, query, string(status), limit)
}

// ListUserPayments возвращает последние платежи пользователя.
func (s *Storage) ListUserPayments(ctx context.Context, userID int64, limit int) ([]*models.Payment, error) {
	const op = "storage.ListUserPayments"

	query := `SELECT ` + paymentColumns + `
		FROM payments WHERE user_id = $1 ORDER BY request_timestamp DESC, payment_id LIMIT $2`
	return s.queryPayments(ctx, op, query, userID, limit)
}

func (s *Storage) queryPayments(ctx context.Context, op, query string, args ...any) ([]*models.Payment, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
