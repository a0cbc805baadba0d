// Package telegram связывает бота с Telegram Bot API: исходящие вызовы идут
// через Gateway, входящие обновления разбирает Router.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/retry"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
)

// API подмножество методов *bot.Bot, которые использует Gateway.
type API interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*tgmodels.Message, error)
	SendVideo(ctx context.Context, params *bot.SendVideoParams) (*tgmodels.Message, error)
	SendInvoice(ctx context.Context, params *bot.SendInvoiceParams) (*tgmodels.Message, error)
	AnswerPreCheckoutQuery(ctx context.Context, params *bot.AnswerPreCheckoutQueryParams) (bool, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*tgmodels.ChatMember, error)
}

// Observer учитывает обращения к внешним сервисам.
type Observer interface {
	ObserveOutbound(target string, err error)
}

const outboundTarget = "telegram"

// GatewayConfig параметры исходящих вызовов.
type GatewayConfig struct {
	ProviderToken string
	ChannelID     string
	Timeout       time.Duration
	RateLimit     float64
	Policy        retry.Policy
}

// Gateway ограничивает частоту, таймаут и число повторов каждого вызова Bot API.
type Gateway struct {
	api     API
	cfg     GatewayConfig
	limiter *rate.Limiter
	obs     Observer
	log     *slog.Logger
}

func NewGateway(api API, cfg GatewayConfig, obs Observer, log *slog.Logger) *Gateway {
	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = max(1, int(cfg.RateLimit))
	}
	return &Gateway{
		api:     api,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		obs:     obs,
		log:     log,
	}
}

// call выполняет вызов с ограничением частоты и повторами.
// Неидемпотентные вызовы повторяются, только если Telegram отклонил запрос по лимиту.
func (g *Gateway) call(ctx context.Context, method string, idempotent bool, fn func(ctx context.Context) error) error {
	err := retry.Do(ctx, g.cfg.Policy, func(ctx context.Context) error {
		if err := g.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		callCtx := ctx
		if g.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
			defer cancel()
		}
		err := fn(callCtx)
		if err == nil {
			return nil
		}
		if IsPermanent(err) || (!idempotent && !bot.IsTooManyRequestsError(err)) {
			return retry.Permanent(err)
		}
		return err
	}, func(err error, wait time.Duration) {
		g.log.Warn("telegram call failed, retrying",
			slog.String("method", method), slog.Duration("wait", wait), sl.Err(err))
	})
	g.obs.ObserveOutbound(outboundTarget, err)
	if err != nil {
		return fmt.Errorf("telegram.%s: %w", method, err)
	}
	return nil
}

// IsPermanent сообщает, что повтор вызова Bot API не изменит результат.
func IsPermanent(err error) bool {
	return errors.Is(err, bot.ErrorForbidden) ||
		errors.Is(err, bot.ErrorBadRequest) ||
		errors.Is(err, bot.ErrorUnauthorized) ||
		errors.Is(err, bot.ErrorNotFound)
}

// SendMessage отправляет текстовое сообщение.
func (g *Gateway) SendMessage(ctx context.Context, chatID int64, text string) error {
	return g.Reply(ctx, chatID, text, nil)
}

// Reply отправляет текст с необязательной клавиатурой.
func (g *Gateway) Reply(ctx context.Context, chatID int64, text string, markup tgmodels.ReplyMarkup) error {
	params := &bot.SendMessageParams{ChatID: chatID, Text: text, ReplyMarkup: markup}
	return g.call(ctx, "SendMessage", false, func(ctx context.Context) error {
		_, err := g.api.SendMessage(ctx, params)
		return err
	})
}

// SendDocument загружает файл как документ.
func (g *Gateway) SendDocument(ctx context.Context, chatID int64, file models.File) error {
	return g.call(ctx, "SendDocument", false, func(ctx context.Context) error {
		_, err := g.api.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID:   chatID,
			Document: &tgmodels.InputFileUpload{Filename: file.Name, Data: bytes.NewReader(file.Data)},
			Caption:  file.Caption,
		})
		return err
	})
}

// SendVideo загружает файл как видео.
func (g *Gateway) SendVideo(ctx context.Context, chatID int64, file models.File) error {
	return g.call(ctx, "SendVideo", false, func(ctx context.Context) error {
		_, err := g.api.SendVideo(ctx, &bot.SendVideoParams{
			ChatID:            chatID,
			Video:             &tgmodels.InputFileUpload{Filename: file.Name, Data: bytes.NewReader(file.Data)},
			Caption:           file.Caption,
			SupportsStreaming: true,
		})
		return err
	})
}

// SendInvoice выставляет счет. Для XTR токен провайдера не нужен.
func (g *Gateway) SendInvoice(ctx context.Context, invoice models.Invoice) error {
	params := &bot.SendInvoiceParams{
		ChatID:      invoice.ChatID,
		Title:       invoice.Title,
		Description: invoice.Description,
		Payload:     invoice.Payload,
		Currency:    invoice.Currency,
		Prices: []tgmodels.LabeledPrice{
			{Label: invoice.Title, Amount: int(invoice.Amount)},
		},
	}
	if invoice.Currency != models.CurrencyStars {
		params.ProviderToken = g.cfg.ProviderToken
	}
	return g.call(ctx, "SendInvoice", false, func(ctx context.Context) error {
		_, err := g.api.SendInvoice(ctx, params)
		return err
	})
}

// AnswerPreCheckout отвечает на pre-checkout запрос. При отказе reason показывается пользователю.
func (g *Gateway) AnswerPreCheckout(ctx context.Context, queryID string, ok bool, reason string) error {
	params := &bot.AnswerPreCheckoutQueryParams{PreCheckoutQueryID: queryID, OK: ok}
	if !ok {
		params.ErrorMessage = reason
	}
	return g.call(ctx, "AnswerPreCheckoutQuery", true, func(ctx context.Context) error {
		_, err := g.api.AnswerPreCheckoutQuery(ctx, params)
		return err
	})
}

// AnswerCallback снимает индикатор загрузки с нажатой кнопки.
func (g *Gateway) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return g.call(ctx, "AnswerCallbackQuery", true, func(ctx context.Context) error {
		_, err := g.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: callbackID,
			Text:            text,
		})
		return err
	})
}

// IsChannelMember проверяет подписку на рекламный канал.
// Если канал не настроен, проверка считается пройденной.
func (g *Gateway) IsChannelMember(ctx context.Context, userID int64) (bool, error) {
	if g.cfg.ChannelID == "" {
		return true, nil
	}
	var member *tgmodels.ChatMember
	err := g.call(ctx, "GetChatMember", true, func(ctx context.Context) error {
		var err error
		member, err = g.api.GetChatMember(ctx, &bot.GetChatMemberParams{
			ChatID: channelChatID(g.cfg.ChannelID),
			UserID: userID,
		})
		return err
	})
	if err != nil {
		return false, err
	}
	return isMember(member), nil
}

func isMember(m *tgmodels.ChatMember) bool {
	if m == nil {
		return false
	}
	switch m.Type {
	case tgmodels.ChatMemberTypeOwner, tgmodels.ChatMemberTypeAdministrator, tgmodels.ChatMemberTypeMember:
		return true
	case tgmodels.ChatMemberTypeRestricted:
		return m.Restricted != nil && m.Restricted.IsMember
	}
	return false
}

// channelChatID принимает как @username, так и числовой id канала.
func channelChatID(channel string) any {
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		return id
	}
	return channel
}
