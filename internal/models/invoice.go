package models

import "fmt"

// CurrencyStars внутренняя валюта платформы, сумма указывается целым числом звезд.
const CurrencyStars = "XTR"

// Invoice счет, который провайдер выставляет пользователю.
// Payload всегда равен PaymentID.
type Invoice struct {
	ChatID      int64
	Title       string
	Description string
	Payload     string
	Currency    string
	Amount      int64
}

// FormatAmount форматирует сумму в минимальных единицах валюты.
func FormatAmount(amount int64, currency string) string {
	if currency == CurrencyStars {
		return fmt.Sprintf("%d %s", amount, currency)
	}
	sign := ""
	if amount < 0 {
		sign, amount = "-", -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, currency)
}
