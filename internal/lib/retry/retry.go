// Package retry повторяет внешние вызовы с экспоненциальной задержкой и jitter.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy ограничивает число попыток и задержки между ними.
type Policy struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// DefaultPolicy для исходящих вызовов к внешним сервисам
var DefaultPolicy = Policy{Attempts: 3, Initial: 500 * time.Millisecond, Max: 5 * time.Second}

// Permanent помечает ошибку как неповторяемую.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do вызывает fn до успеха, постоянной ошибки, исчерпания попыток или отмены ctx.
// onRetry, если задан, вызывается перед каждой повторной попыткой.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error, onRetry func(err error, wait time.Duration)) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	eb := backoff.NewExponentialBackOff()
	if p.Initial > 0 {
		eb.InitialInterval = p.Initial
	}
	if p.Max > 0 {
		eb.MaxInterval = p.Max
	}
	eb.RandomizationFactor = 0.5
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.Attempts-1)), ctx)
	return backoff.RetryNotify(func() error { return fn(ctx) }, b, onRetry)
}
