package models

// Stats агрегированная статистика для администратора.
type Stats struct {
	TotalUsers        int64 `json:"total_users"`
	ActiveUsers       int64 `json:"active_users"`
	TotalPayments     int64 `json:"total_payments"`
	PendingPayments   int64 `json:"pending_payments"`
	AwaitingDelivery  int64 `json:"awaiting_delivery"`
	DeliveredPayments int64 `json:"delivered_payments"`
	ExpiredPayments   int64 `json:"expired_payments"`
	RevenueCompleted  int64 `json:"revenue_completed"`
	RevenuePending    int64 `json:"revenue_pending"`
}
