package models

import "time"

// PaymentStatus состояние платежа в жизненном цикле.
type PaymentStatus string

const (
	// StatusPending платёж создан, счёт выставлен, оплата не получена.
	StatusPending PaymentStatus = "pending"
	// StatusCompleted оплата подтверждена провайдером, контент ещё не привязан.
	StatusCompleted PaymentStatus = "completed"
	// StatusExpired ожидание оплаты истекло. Терминальное состояние.
	StatusExpired PaymentStatus = "expired"
	// StatusDelivered контент привязан к платежу. Терминальное состояние.
	StatusDelivered PaymentStatus = "delivered"
)

// IsTerminal сообщает, что из состояния нет переходов.
func (s PaymentStatus) IsTerminal() bool {
	return s == StatusExpired || s == StatusDelivered
}

// CanTransitionTo проверяет ребро графа состояний:
// pending -> completed, pending -> expired, completed -> delivered.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusCompleted || next == StatusExpired
	case StatusCompleted:
		return next == StatusDelivered
	default:
		return false
	}
}

func (s PaymentStatus) String() string {
	return string(s)
}

// Payment описывает одну попытку покупки.
// PaymentID генерируется системой и используется как payload счёта,
// pre-checkout запроса и события успешной оплаты.
type Payment struct {
	PaymentID           string        `json:"payment_id"`
	UserID              int64         `json:"user_id"`
	Amount              int64         `json:"amount"`
	Currency            string        `json:"currency"`
	Status              PaymentStatus `json:"status"`
	RequestTimestamp    time.Time     `json:"request_timestamp"`
	ExpiryTimestamp     time.Time     `json:"expiry_timestamp"`
	CompletionTimestamp *time.Time    `json:"completion_timestamp,omitempty"`
	ProviderChargeID    *string       `json:"provider_charge_id,omitempty"`
	ContentID           *string       `json:"content_id,omitempty"`
}

// SuccessfulPayment данные события успешной оплаты от провайдера.
type SuccessfulPayment struct {
	PaymentID        string // payload счёта
	UserID           int64
	ProviderChargeID string
	Amount           int64
	Currency         string
}

// PaymentDetails платёж вместе с владельцем и привязанным контентом.
type PaymentDetails struct {
	Payment *Payment `json:"payment"`
	User    *User    `json:"user,omitempty"`
	Content *Content `json:"content,omitempty"`
}
