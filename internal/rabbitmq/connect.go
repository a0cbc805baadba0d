// Package rabbitmq публикует и потребляет события аудита платежей.
//
// Бот публикует события в topic exchange payments.audit с ключом, равным
// типу события; notifier читает их из очереди и пересылает администратору.
package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/retry"
)

// Connect подключается к брокеру, повторяя попытки с задержкой и jitter.
func Connect(ctx context.Context, connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection

	policy := retry.Policy{Attempts: retries, Initial: delay, Max: 10 * delay}
	err := retry.Do(ctx, policy, func(context.Context) error {
		c, err := amqp.Dial(connection)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return conn, nil
}
