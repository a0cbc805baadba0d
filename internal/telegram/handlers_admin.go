package telegram

import (
	"context"
	"errors"
	"fmt"

	tgmodels "github.com/go-telegram/bot/models"

	"github.com/magabrotheeeer/content-delivery-bot/internal/conversation"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
	"github.com/magabrotheeeer/content-delivery-bot/internal/services/admin"
	"github.com/magabrotheeeer/content-delivery-bot/internal/services/delivery"
	"github.com/magabrotheeeer/content-delivery-bot/internal/storage"
)

func (r *Router) handleAdminPanel(ctx context.Context, msg *tgmodels.Message, _ []string) {
	r.reply(ctx, msg.Chat.ID, textAdminRecognized+"\n\n"+textAdminPanel, adminKeyboard())
}

func (r *Router) handleAddContent(ctx context.Context, msg *tgmodels.Message, args []string) {
	if len(args) < 2 || len(args) > 3 {
		r.reply(ctx, msg.Chat.ID, textUsageAddContent, nil)
		return
	}
	req := models.AddContentRequest{Title: args[0], Locator: args[1]}
	if len(args) == 3 {
		req.FileType = args[2]
	}

	content, err := r.admin.AddContent(ctx, msg.From.ID, req)
	switch {
	case err == nil:
		r.reply(ctx, msg.Chat.ID, contentAddedText(content), nil)
	case errors.Is(err, admin.ErrInvalidContent):
		r.reply(ctx, msg.Chat.ID, "❌ Invalid content arguments.\n\n"+textUsageAddContent, nil)
	case errors.Is(err, admin.ErrDuplicateTitle):
		r.reply(ctx, msg.Chat.ID, fmt.Sprintf("❌ Content titled '%s' already exists. Use /contents to find its ID.", req.Title), nil)
	case errors.Is(err, admin.ErrLocatorNotFound):
		r.reply(ctx, msg.Chat.ID, fmt.Sprintf("❌ File %s was not found in storage.", req.Locator), nil)
	default:
		r.replyAdminError(ctx, msg, "add content", err)
	}
}

func (r *Router) handleDeliver(ctx context.Context, msg *tgmodels.Message, args []string) {
	if len(args) != 2 {
		r.reply(ctx, msg.Chat.ID, textUsageDeliver, nil)
		return
	}
	paymentID, contentID := args[0], args[1]

	res, err := r.delivery.Deliver(ctx, paymentID, contentID, msg.From.ID)
	if err == nil {
		r.reply(ctx, msg.Chat.ID, deliveredText(paymentID, res.Payment.UserID, res.Content.Title), nil)
		return
	}
	r.replyDeliveryError(ctx, msg, paymentID, res, err)
}

func (r *Router) handleResend(ctx context.Context, msg *tgmodels.Message, args []string) {
	if len(args) != 1 {
		r.reply(ctx, msg.Chat.ID, textUsageResend, nil)
		return
	}
	paymentID := args[0]

	res, err := r.delivery.Resend(ctx, paymentID, msg.From.ID)
	if err == nil {
		r.reply(ctx, msg.Chat.ID, deliveredText(paymentID, res.Payment.UserID, res.Content.Title), nil)
		return
	}
	r.replyDeliveryError(ctx, msg, paymentID, res, err)
}

func (r *Router) replyDeliveryError(ctx context.Context, msg *tgmodels.Message, paymentID string, res delivery.Result, err error) {
	chatID := msg.Chat.ID
	switch {
	case errors.Is(err, delivery.ErrUnauthorized):
		r.reply(ctx, chatID, textNotAdmin, nil)
	case errors.Is(err, delivery.ErrPaymentNotFound):
		r.reply(ctx, chatID, fmt.Sprintf("❌ Payment %s not found.", paymentID), nil)
	case errors.Is(err, delivery.ErrContentNotFound):
		r.reply(ctx, chatID, "❌ Content ID not found. Use /contents to list the library.", nil)
	case errors.Is(err, delivery.ErrNotDeliverable), errors.Is(err, delivery.ErrNotDelivered):
		status := "unknown"
		if res.Payment != nil {
			status = res.Payment.Status.String()
		}
		r.reply(ctx, chatID, fmt.Sprintf("❌ Payment %s cannot be processed in status %s.", paymentID, status), nil)
	case errors.Is(err, delivery.ErrPartialDelivery):
		r.log.Error("content linked but not sent", sl.PaymentID(paymentID), sl.Err(err))
		r.reply(ctx, chatID, partialDeliveryText(paymentID), nil)
	default:
		r.replyAdminError(ctx, msg, "deliver content", err)
	}
}

// handleCheckPayment без аргумента ждет идентификатор следующим сообщением.
func (r *Router) handleCheckPayment(ctx context.Context, msg *tgmodels.Message, args []string) {
	if len(args) > 0 {
		r.showPaymentDetails(ctx, msg.Chat.ID, msg.From.ID, args[0])
		return
	}
	if err := r.conversations.Await(ctx, msg.From.ID, conversation.KindCheckPayment, nil); err != nil {
		r.log.Error("failed to store conversation state", sl.UserID(msg.From.ID), sl.Err(err))
		r.reply(ctx, msg.Chat.ID, "Usage: /checkpayment <payment_id>", nil)
		return
	}
	r.reply(ctx, msg.Chat.ID, textAskPaymentID, nil)
}

func (r *Router) showPaymentDetails(ctx context.Context, chatID, adminID int64, paymentID string) {
	details, err := r.admin.PaymentDetails(ctx, adminID, paymentID)
	switch {
	case err == nil:
		r.reply(ctx, chatID, paymentDetailsText(details), nil)
	case errors.Is(err, storage.ErrNotFound):
		r.reply(ctx, chatID, "❌ Payment ID not found", nil)
	case errors.Is(err, admin.ErrUnauthorized):
		r.reply(ctx, chatID, textNotAdmin, nil)
	default:
		r.log.Error("failed to load payment details", sl.PaymentID(paymentID), sl.Err(err))
		r.reply(ctx, chatID, textInternalError, nil)
	}
}

func (r *Router) handlePending(ctx context.Context, msg *tgmodels.Message, _ []string) {
	payments, err := r.admin.AwaitingDelivery(ctx, msg.From.ID, listLimit)
	if err != nil {
		r.replyAdminError(ctx, msg, "list pending payments", err)
		return
	}
	if len(payments) == 0 {
		r.reply(ctx, msg.Chat.ID, textNoPending, nil)
		return
	}
	r.replyLong(ctx, msg.Chat.ID, pendingText(payments))
}

func (r *Router) handleGetPayments(ctx context.Context, msg *tgmodels.Message, _ []string) {
	payments, err := r.admin.Payments(ctx, msg.From.ID, listLimit, 0)
	if err != nil {
		r.replyAdminError(ctx, msg, "list payments", err)
		return
	}
	if len(payments) == 0 {
		r.reply(ctx, msg.Chat.ID, textNoPayments, nil)
		return
	}
	r.replyLong(ctx, msg.Chat.ID, paymentListText("📋 Recent payments:", payments))
}

func (r *Router) handleStats(ctx context.Context, msg *tgmodels.Message, _ []string) {
	stats, err := r.admin.Stats(ctx, msg.From.ID)
	if err != nil {
		r.replyAdminError(ctx, msg, "load stats", err)
		return
	}
	r.reply(ctx, msg.Chat.ID, statsText(stats, r.cfg.Currency), nil)
}

func (r *Router) handleContents(ctx context.Context, msg *tgmodels.Message, _ []string) {
	contents, err := r.admin.Contents(ctx, msg.From.ID, listLimit, 0)
	if err != nil {
		r.replyAdminError(ctx, msg, "list contents", err)
		return
	}
	r.replyLong(ctx, msg.Chat.ID, contentsText(contents))
}

func (r *Router) handleToken(ctx context.Context, msg *tgmodels.Message, _ []string) {
	token, err := r.admin.IssueToken(msg.From.ID)
	if err != nil {
		r.replyAdminError(ctx, msg, "issue token", err)
		return
	}
	r.reply(ctx, msg.Chat.ID, "🔑 Admin API token:\n"+token, nil)
}

func (r *Router) replyAdminError(ctx context.Context, msg *tgmodels.Message, action string, err error) {
	if errors.Is(err, admin.ErrUnauthorized) {
		r.reply(ctx, msg.Chat.ID, textNotAdmin, nil)
		return
	}
	r.log.Error("admin command failed", "action", action, sl.Err(err))
	r.reply(ctx, msg.Chat.ID, fmt.Sprintf("⚠️ Failed to %s. Check the logs for details.", action), nil)
}
