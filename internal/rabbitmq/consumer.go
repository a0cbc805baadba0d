package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
)

// maxInFlight ограничение одновременно обрабатываемых сообщений
const maxInFlight = 10

// ErrDiscard помечает ошибку обработчика, после которой сообщение не возвращается в очередь.
var ErrDiscard = errors.New("message discarded")

// Discard оборачивает ошибку, повтор которой не поможет.
func Discard(err error) error {
	return fmt.Errorf("%w: %w", ErrDiscard, err)
}

// ConsumerMessage читает очередь до отмены ctx или закрытия канала.
// Успешно обработанные сообщения подтверждаются, при ошибке возвращаются в очередь,
// кроме ошибок с ErrDiscard: такие сообщения отклоняются без повтора.
// Возвращает канал, который закрывается после завершения всех обработчиков.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, log *slog.Logger, handler func(context.Context, []byte) error) (<-chan struct{}, error) {
	const op = "rabbitmq.ConsumerMessage"
	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	done := make(chan struct{})
	sem := make(chan struct{}, maxInFlight)
	var wg sync.WaitGroup
	go func() {
		defer close(done)
		defer wg.Wait()
		for {
			select {
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				sem <- struct{}{}
				wg.Add(1)
				go func(delivery amqp.Delivery) {
					defer wg.Done()
					defer func() { <-sem }()
					if err := handler(ctx, delivery.Body); err != nil {
						requeue := !errors.Is(err, ErrDiscard)
						if requeue {
							log.Warn("message handling failed, requeue", sl.Err(err))
						} else {
							log.Error("message handling failed permanently, dropping", sl.Err(err))
						}
						if nackErr := delivery.Nack(false, requeue); nackErr != nil {
							log.Error("failed to nack message", sl.Err(nackErr))
						}
						return
					}
					if ackErr := delivery.Ack(false); ackErr != nil {
						log.Error("failed to ack message", sl.Err(ackErr))
					}
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return done, nil
}
