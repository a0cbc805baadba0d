package models

import "time"

// Типы событий аудита, публикуемых в брокер.
const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentDelivered = "payment.delivered"
	EventPaymentsExpired  = "payments.expired"
)

// PaymentEvent событие аудита жизненного цикла платежа.
type PaymentEvent struct {
	Type       string    `json:"type"`
	PaymentID  string    `json:"payment_id,omitempty"`
	UserID     int64     `json:"user_id,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	Currency   string    `json:"currency,omitempty"`
	ContentID  string    `json:"content_id,omitempty"`
	Count      int64     `json:"count,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
