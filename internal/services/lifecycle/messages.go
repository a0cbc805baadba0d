package lifecycle

import (
	"fmt"

	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
)

func userPaidText(p *models.Payment) string {
	return fmt.Sprintf(
		"Payment received: %s.\nPayment ID: %s\nYour content will be delivered here as soon as the administrator prepares it.",
		models.FormatAmount(p.Amount, p.Currency), p.PaymentID)
}

func adminPaidText(p *models.Payment, sp models.SuccessfulPayment) string {
	return fmt.Sprintf(
		"New payment completed\nPayment ID: %s\nUser ID: %d\nAmount: %s\nCharge ID: %s\n\nDeliver with:\n/deliver %s <content_id>",
		p.PaymentID, p.UserID, models.FormatAmount(p.Amount, p.Currency), sp.ProviderChargeID, p.PaymentID)
}

func uncheckedPaidText(sp models.SuccessfulPayment) string {
	return fmt.Sprintf(
		"Payment received but its state could not be checked\nPayment ID: %s\nUser ID: %d\nAmount: %s\nCharge ID: %s\nCheck it with /checkpayment %s",
		sp.PaymentID, sp.UserID, models.FormatAmount(sp.Amount, sp.Currency), sp.ProviderChargeID, sp.PaymentID)
}

func expiredPaidText(p *models.Payment, sp models.SuccessfulPayment) string {
	return fmt.Sprintf(
		"Payment received for an expired request\nPayment ID: %s\nUser ID: %d\nAmount: %s\nCharge ID: %s\nThe payment stays expired, manual action is required.",
		p.PaymentID, p.UserID, models.FormatAmount(sp.Amount, sp.Currency), sp.ProviderChargeID)
}
