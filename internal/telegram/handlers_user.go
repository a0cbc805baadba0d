package telegram

import (
	"context"
	"errors"

	tgmodels "github.com/go-telegram/bot/models"

	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
	"github.com/magabrotheeeer/content-delivery-bot/internal/services/lifecycle"
)

func (r *Router) handleStart(ctx context.Context, msg *tgmodels.Message, _ []string) {
	r.reply(ctx, msg.Chat.ID, welcomeText(msg.From.FirstName), startKeyboard())
}

func (r *Router) handleHelp(ctx context.Context, msg *tgmodels.Message, _ []string) {
	r.reply(ctx, msg.Chat.ID, textHelp, nil)
}

func (r *Router) handleSupport(ctx context.Context, msg *tgmodels.Message, _ []string) {
	r.reply(ctx, msg.Chat.ID, supportText(r.cfg.SupportContact), nil)
}

func (r *Router) handleRequest(ctx context.Context, msg *tgmodels.Message, _ []string) {
	r.offerContent(ctx, msg.Chat.ID, msg.From.ID)
}

func (r *Router) handleMyStatus(ctx context.Context, msg *tgmodels.Message, _ []string) {
	payments, err := r.admin.UserPayments(ctx, msg.From.ID, myStatusLimit)
	if err != nil {
		r.log.Error("failed to list user payments", sl.UserID(msg.From.ID), sl.Err(err))
		r.reply(ctx, msg.Chat.ID, textInternalError, nil)
		return
	}
	r.reply(ctx, msg.Chat.ID, myStatusText(payments), nil)
}

// offerContent проверяет подписку на канал и показывает цену с кнопкой оплаты.
func (r *Router) offerContent(ctx context.Context, chatID, userID int64) {
	ok, err := r.messenger.IsChannelMember(ctx, userID)
	if err != nil {
		r.log.Error("membership check failed", sl.UserID(userID), sl.Err(err))
		r.reply(ctx, chatID, textServiceDown, nil)
		return
	}
	if !ok {
		r.reply(ctx, chatID, joinChannelText(r.cfg.InviteLink), nil)
		return
	}
	r.reply(ctx, chatID, priceText(r.cfg.PriceAmount, r.cfg.Currency), proceedKeyboard())
}

// requestContent создает платеж и выставляет счет.
func (r *Router) requestContent(ctx context.Context, chatID int64, user models.User) {
	payment, err := r.lifecycle.RequestContent(ctx, user)
	switch {
	case err == nil:
		return
	case errors.Is(err, lifecycle.ErrNotMember):
		r.reply(ctx, chatID, joinChannelText(r.cfg.InviteLink), nil)
	case errors.Is(err, lifecycle.ErrExternalService) && payment != nil:
		r.reply(ctx, chatID, textInvoiceFailed, nil)
	case errors.Is(err, lifecycle.ErrExternalService):
		r.reply(ctx, chatID, textServiceDown, nil)
	default:
		r.log.Error("failed to request content", sl.UserID(user.UserID), sl.Err(err))
		r.reply(ctx, chatID, textInternalError, nil)
	}
}
