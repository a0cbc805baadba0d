package telegram

import (
	"context"
	"log/slog"

	tgmodels "github.com/go-telegram/bot/models"

	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
)

const textPaymentNotRecorded = "⚠️ Your payment was received but could not be recorded automatically. Please contact support and keep this message."

// handlePreCheckout отвечает на pre-checkout запрос решением сервиса.
// Telegram ждет ответ не дольше 10 секунд, поэтому ответ отправляется всегда.
func (r *Router) handlePreCheckout(ctx context.Context, q *tgmodels.PreCheckoutQuery) {
	var userID int64
	if q.From != nil {
		userID = q.From.ID
	}
	decision, err := r.lifecycle.PreCheckout(ctx, q.InvoicePayload, userID)
	if err != nil {
		r.log.Error("pre-checkout check failed", sl.PaymentID(q.InvoicePayload), sl.Err(err))
	}
	if err := r.messenger.AnswerPreCheckout(ctx, q.ID, decision.OK, decision.Reason); err != nil {
		r.log.Error("failed to answer pre-checkout query", sl.PaymentID(q.InvoicePayload), sl.Err(err))
	}
}

// handleSuccessfulPayment фиксирует оплату. Уведомления отправляет сервис жизненного цикла.
func (r *Router) handleSuccessfulPayment(ctx context.Context, msg *tgmodels.Message) {
	p := msg.SuccessfulPayment
	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
		r.registerUser(ctx, msg.From)
	}
	sp := models.SuccessfulPayment{
		PaymentID:        p.InvoicePayload,
		UserID:           userID,
		ProviderChargeID: p.TelegramPaymentChargeID,
		Amount:           int64(p.TotalAmount),
		Currency:         p.Currency,
	}

	_, first, err := r.lifecycle.CompletePayment(ctx, sp)
	if err != nil {
		r.log.Error("failed to record successful payment",
			sl.PaymentID(sp.PaymentID), sl.UserID(userID),
			slog.String("charge_id", sp.ProviderChargeID), sl.Err(err))
		r.reply(ctx, msg.Chat.ID, textPaymentNotRecorded, nil)
		return
	}
	if !first {
		r.log.Info("successful payment already processed", sl.PaymentID(sp.PaymentID))
	}
}
