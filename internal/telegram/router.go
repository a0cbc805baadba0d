package telegram

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/magabrotheeeer/content-delivery-bot/internal/conversation"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
	"github.com/magabrotheeeer/content-delivery-bot/internal/services/delivery"
	"github.com/magabrotheeeer/content-delivery-bot/internal/services/lifecycle"
)

type Lifecycle interface {
	RegisterUser(ctx context.Context, user models.User) error
	RequestContent(ctx context.Context, user models.User) (*models.Payment, error)
	PreCheckout(ctx context.Context, payload string, userID int64) (lifecycle.Decision, error)
	CompletePayment(ctx context.Context, sp models.SuccessfulPayment) (*models.Payment, bool, error)
}

type Delivery interface {
	Deliver(ctx context.Context, paymentID, contentID string, adminID int64) (delivery.Result, error)
	Resend(ctx context.Context, paymentID string, adminID int64) (delivery.Result, error)
}

type Admin interface {
	IsAdmin(userID int64) bool
	Stats(ctx context.Context, adminID int64) (*models.Stats, error)
	Payments(ctx context.Context, adminID int64, limit, offset int) ([]*models.Payment, error)
	AwaitingDelivery(ctx context.Context, adminID int64, limit int) ([]*models.Payment, error)
	PaymentDetails(ctx context.Context, adminID int64, paymentID string) (*models.PaymentDetails, error)
	UserPayments(ctx context.Context, userID int64, limit int) ([]*models.Payment, error)
	Contents(ctx context.Context, adminID int64, limit, offset int) ([]*models.Content, error)
	AddContent(ctx context.Context, adminID int64, req models.AddContentRequest) (*models.Content, error)
	IssueToken(adminID int64) (string, error)
}

// Conversations хранит ожидание следующего сообщения пользователя.
type Conversations interface {
	Await(ctx context.Context, userID int64, kind conversation.Kind, state any) error
	Consume(ctx context.Context, userID int64, kind conversation.Kind, result any) (bool, error)
	Cancel(ctx context.Context, userID int64, kind conversation.Kind) error
}

// Messenger исходящие вызовы, которые нужны обработчикам.
type Messenger interface {
	Reply(ctx context.Context, chatID int64, text string, markup tgmodels.ReplyMarkup) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	AnswerPreCheckout(ctx context.Context, queryID string, ok bool, reason string) error
	IsChannelMember(ctx context.Context, userID int64) (bool, error)
}

// RouterConfig тексты и цена, которые показываются пользователю.
type RouterConfig struct {
	PriceAmount    int64
	Currency       string
	InviteLink     string
	SupportContact string
}

// listLimit размер выборки для списков администратора
const listLimit = 50

type handlerFunc func(ctx context.Context, msg *tgmodels.Message, args []string)

type route struct {
	handler   handlerFunc
	adminOnly bool
}

// Router разбирает входящие обновления и вызывает сервисы.
type Router struct {
	lifecycle     Lifecycle
	delivery      Delivery
	admin         Admin
	conversations Conversations
	messenger     Messenger
	cfg           RouterConfig
	log           *slog.Logger
	routes        map[string]route
}

func NewRouter(
	lc Lifecycle,
	dl Delivery,
	adm Admin,
	conv Conversations,
	messenger Messenger,
	cfg RouterConfig,
	log *slog.Logger,
) *Router {
	r := &Router{
		lifecycle:     lc,
		delivery:      dl,
		admin:         adm,
		conversations: conv,
		messenger:     messenger,
		cfg:           cfg,
		log:           log,
	}
	r.routes = map[string]route{
		"start":    {handler: r.handleStart},
		"help":     {handler: r.handleHelp},
		"support":  {handler: r.handleSupport},
		"request":  {handler: r.handleRequest},
		"mystatus": {handler: r.handleMyStatus},

		"admin":        {handler: r.handleAdminPanel, adminOnly: true},
		"panel":        {handler: r.handleAdminPanel, adminOnly: true},
		"addcontent":   {handler: r.handleAddContent, adminOnly: true},
		"deliver":      {handler: r.handleDeliver, adminOnly: true},
		"resend":       {handler: r.handleResend, adminOnly: true},
		"checkpayment": {handler: r.handleCheckPayment, adminOnly: true},
		"pending":      {handler: r.handlePending, adminOnly: true},
		"getpayments":  {handler: r.handleGetPayments, adminOnly: true},
		"stats":        {handler: r.handleStats, adminOnly: true},
		"contents":     {handler: r.handleContents, adminOnly: true},
		"token":        {handler: r.handleToken, adminOnly: true},
	}
	return r
}

// Handle обработчик по умолчанию для bot.WithDefaultHandler.
func (r *Router) Handle(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	if update == nil {
		return
	}
	switch {
	case update.PreCheckoutQuery != nil:
		r.handlePreCheckout(ctx, update.PreCheckoutQuery)
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		r.handleSuccessfulPayment(ctx, update.Message)
	case update.CallbackQuery != nil:
		r.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		r.handleMessage(ctx, update.Message)
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *tgmodels.Message) {
	if msg.From == nil {
		return
	}
	r.registerUser(ctx, msg.From)

	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		r.handleText(ctx, msg, text)
		return
	}

	cmd, err := parseCommand(text)
	if err != nil {
		r.reply(ctx, msg.Chat.ID, "⚠️ "+err.Error(), nil)
		return
	}
	rt, ok := r.routes[cmd.name]
	if !ok {
		r.reply(ctx, msg.Chat.ID, textUnknownCommand, nil)
		return
	}
	if rt.adminOnly && !r.admin.IsAdmin(msg.From.ID) {
		r.log.Warn("admin command rejected", slog.String("command", cmd.name), sl.UserID(msg.From.ID))
		r.reply(ctx, msg.Chat.ID, textNotAdmin, nil)
		return
	}
	if cmd.name != "checkpayment" && r.admin.IsAdmin(msg.From.ID) {
		// любая другая команда прерывает ожидание идентификатора платежа
		if err := r.conversations.Cancel(ctx, msg.From.ID, conversation.KindCheckPayment); err != nil {
			r.log.Warn("failed to cancel conversation", sl.UserID(msg.From.ID), sl.Err(err))
		}
	}
	r.log.Debug("command received", slog.String("command", cmd.name), sl.UserID(msg.From.ID))
	rt.handler(ctx, msg, cmd.args)
}

// handleText продолжает ожидающий диалог или подсказывает список команд.
func (r *Router) handleText(ctx context.Context, msg *tgmodels.Message, text string) {
	if text != "" && r.admin.IsAdmin(msg.From.ID) {
		waiting, err := r.conversations.Consume(ctx, msg.From.ID, conversation.KindCheckPayment, nil)
		if err != nil {
			r.log.Error("failed to read conversation state", sl.UserID(msg.From.ID), sl.Err(err))
		}
		if waiting {
			r.showPaymentDetails(ctx, msg.Chat.ID, msg.From.ID, text)
			return
		}
	}
	r.reply(ctx, msg.Chat.ID, textUnexpectedText, nil)
}

func (r *Router) handleCallback(ctx context.Context, q *tgmodels.CallbackQuery) {
	if err := r.messenger.AnswerCallback(ctx, q.ID, ""); err != nil {
		r.log.Warn("failed to answer callback", sl.Err(err))
	}
	r.registerUser(ctx, &q.From)

	chatID := callbackChatID(q)
	switch q.Data {
	case cbRequestContent:
		r.offerContent(ctx, chatID, q.From.ID)
	case cbProceedPayment:
		r.requestContent(ctx, chatID, userFromTelegram(&q.From))
	case cbSupport:
		r.reply(ctx, chatID, supportText(r.cfg.SupportContact), nil)
	case cbShowHelp:
		r.reply(ctx, chatID, textHelp, nil)
	default:
		r.log.Warn("unknown callback data", slog.String("data", q.Data), sl.UserID(q.From.ID))
	}
}

func (r *Router) registerUser(ctx context.Context, from *tgmodels.User) {
	if from == nil || from.IsBot {
		return
	}
	if err := r.lifecycle.RegisterUser(ctx, userFromTelegram(from)); err != nil {
		r.log.Error("failed to register user", sl.UserID(from.ID), sl.Err(err))
	}
}

func (r *Router) reply(ctx context.Context, chatID int64, text string, markup tgmodels.ReplyMarkup) {
	if err := r.messenger.Reply(ctx, chatID, text, markup); err != nil {
		r.log.Warn("failed to send reply", slog.Int64("chat_id", chatID), sl.Err(err))
	}
}

// replyLong отправляет текст частями, если он не помещается в одно сообщение.
func (r *Router) replyLong(ctx context.Context, chatID int64, text string) {
	for _, part := range splitMessage(text) {
		r.reply(ctx, chatID, part, nil)
	}
}

func userFromTelegram(u *tgmodels.User) models.User {
	return models.User{
		UserID:    u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// callbackChatID чат сообщения с кнопкой, а если оно недоступно, личный чат пользователя.
func callbackChatID(q *tgmodels.CallbackQuery) int64 {
	switch {
	case q.Message.Message != nil:
		return q.Message.Message.Chat.ID
	case q.Message.InaccessibleMessage != nil:
		return q.Message.InaccessibleMessage.Chat.ID
	}
	return q.From.ID
}
