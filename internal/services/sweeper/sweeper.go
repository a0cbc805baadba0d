// Package sweeper периодически переводит просроченные ожидающие платежи в expired.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
	"github.com/magabrotheeeer/content-delivery-bot/internal/metrics"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
)

// DefaultIterationTimeout ограничивает одну итерацию очистки.
const DefaultIterationTimeout = time.Minute

type PaymentRepository interface {
	ExpireStalePending(ctx context.Context, now time.Time) (int64, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.PaymentEvent) error
}

type Service struct {
	repo     PaymentRepository
	events   EventPublisher
	metrics  *metrics.Metrics
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// New создает новый экземпляр Service.
func New(repo PaymentRepository, events EventPublisher, m *metrics.Metrics, interval time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		events:   events,
		metrics:  m,
		interval: interval,
		timeout:  DefaultIterationTimeout,
		log:      log,
		now:      time.Now,
	}
}

// Run выполняет очистку сразу и затем с интервалом, пока ctx не отменен.
// Начатая итерация доводится до конца: она работает на контексте без отмены.
func (s *Service) Run(ctx context.Context) {
	s.log.Info("starting expiry sweeper", slog.Duration("interval", s.interval))
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	iterCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if _, err := s.Sweep(iterCtx); err != nil {
		s.log.Error("sweep iteration failed", sl.Err(err))
	}
}

// Sweep выполняет одну итерацию и возвращает число истекших платежей.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	const op = "sweeper.Sweep"

	started := time.Now()
	now := s.now().UTC()
	count, err := s.repo.ExpireStalePending(ctx, now)
	s.metrics.SweepDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if count == 0 {
		s.log.Debug("no stale pending payments")
		return 0, nil
	}

	s.metrics.PaymentsExpired.Add(float64(count))
	s.log.Info("expired stale pending payments", slog.Int64("count", count))

	err = s.events.Publish(ctx, models.PaymentEvent{
		Type:       models.EventPaymentsExpired,
		Count:      count,
		OccurredAt: now,
	})
	if err != nil {
		s.log.Warn("failed to publish audit event", sl.Err(err))
	}
	return count, nil
}
