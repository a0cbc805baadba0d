package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
)

// AuditExchange exchange событий жизненного цикла платежей
const AuditExchange = "payments.audit"

// QueueConfig очередь и ключи, которыми она привязана к exchange
type QueueConfig struct {
	QueueName   string
	RoutingKeys []string
}

// GetAuditQueues очереди, которые читает notifier
func GetAuditQueues() []QueueConfig {
	return []QueueConfig{
		{
			QueueName: "audit.admin",
			RoutingKeys: []string{
				models.EventPaymentCompleted,
				models.EventPaymentDelivered,
				models.EventPaymentsExpired,
			},
		},
	}
}

// SetupChannel открывает канал, объявляет exchange и привязывает очереди.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	if err := ch.ExchangeDeclare(AuditExchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}
		for _, key := range q.RoutingKeys {
			if err := ch.QueueBind(q.QueueName, key, AuditExchange, false, nil); err != nil {
				_ = ch.Close()
				return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, key, err)
			}
		}
	}

	return ch, nil
}
