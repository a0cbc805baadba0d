package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
)

// ActiveWindow период, в течение которого пользователь считается активным.
const ActiveWindow = 30 * 24 * time.Hour

// GetStats собирает агрегированную статистику одним запросом.
func (s *Storage) GetStats(ctx context.Context, now time.Time) (*models.Stats, error) {
	const op = "storage.GetStats"

	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE last_active > $1),
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'delivered'),
			COUNT(*) FILTER (WHERE status = 'expired'),
			COALESCE(SUM(amount) FILTER (WHERE status IN ('completed', 'delivered')), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0)
		FROM payments`
	var st models.Stats
	err := s.DB.QueryRowContext(ctx, query, now.Add(-ActiveWindow)).Scan(
		&st.TotalUsers, &st.ActiveUsers, &st.TotalPayments, &st.PendingPayments,
		&st.AwaitingDelivery, &st.DeliveredPayments, &st.ExpiredPayments,
		&st.RevenueCompleted, &st.RevenuePending,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &st, nil
}
