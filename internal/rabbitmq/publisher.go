package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
)

// Publisher публикует события аудита в AuditExchange.
type Publisher struct {
	ch *amqp.Channel
}

// NewPublisher создает издателя поверх настроенного канала.
func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

// Publish отправляет событие с ключом маршрутизации, равным его типу.
func (p *Publisher) Publish(ctx context.Context, event models.PaymentEvent) error {
	const op = "rabbitmq.Publish"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return PublishMessage(p.ch, AuditExchange, event.Type, event)
}

// PublishMessage публикует JSON сообщение в RabbitMQ.
func PublishMessage(ch *amqp.Channel, exchange string, routingKey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// NopPublisher используется, когда брокер не настроен.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.PaymentEvent) error { return nil }
