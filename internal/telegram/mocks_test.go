package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/content-delivery-bot/internal/conversation"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
	"github.com/magabrotheeeer/content-delivery-bot/internal/services/delivery"
	"github.com/magabrotheeeer/content-delivery-bot/internal/services/lifecycle"
)

type MockLifecycle struct {
	mock.Mock
}

func (m *MockLifecycle) RegisterUser(ctx context.Context, user models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockLifecycle) RequestContent(ctx context.Context, user models.User) (*models.Payment, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockLifecycle) PreCheckout(ctx context.Context, payload string, userID int64) (lifecycle.Decision, error) {
	args := m.Called(ctx, payload, userID)
	return args.Get(0).(lifecycle.Decision), args.Error(1)
}

func (m *MockLifecycle) CompletePayment(ctx context.Context, sp models.SuccessfulPayment) (*models.Payment, bool, error) {
	args := m.Called(ctx, sp)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Payment), args.Bool(1), args.Error(2)
}

type MockDelivery struct {
	mock.Mock
}

func (m *MockDelivery) Deliver(ctx context.Context, paymentID, contentID string, adminID int64) (delivery.Result, error) {
	args := m.Called(ctx, paymentID, contentID, adminID)
	return args.Get(0).(delivery.Result), args.Error(1)
}

func (m *MockDelivery) Resend(ctx context.Context, paymentID string, adminID int64) (delivery.Result, error) {
	args := m.Called(ctx, paymentID, adminID)
	return args.Get(0).(delivery.Result), args.Error(1)
}

type MockAdmin struct {
	mock.Mock
}

func (m *MockAdmin) IsAdmin(userID int64) bool {
	return m.Called(userID).Bool(0)
}

func (m *MockAdmin) Stats(ctx context.Context, adminID int64) (*models.Stats, error) {
	args := m.Called(ctx, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Stats), args.Error(1)
}

func (m *MockAdmin) Payments(ctx context.Context, adminID int64, limit, offset int) ([]*models.Payment, error) {
	args := m.Called(ctx, adminID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *MockAdmin) AwaitingDelivery(ctx context.Context, adminID int64, limit int) ([]*models.Payment, error) {
	args := m.Called(ctx, adminID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *MockAdmin) PaymentDetails(ctx context.Context, adminID int64, paymentID string) (*models.PaymentDetails, error) {
	args := m.Called(ctx, adminID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentDetails), args.Error(1)
}

func (m *MockAdmin) UserPayments(ctx context.Context, userID int64, limit int) ([]*models.Payment, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *MockAdmin) Contents(ctx context.Context, adminID int64, limit, offset int) ([]*models.Content, error) {
	args := m.Called(ctx, adminID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Content), args.Error(1)
}

func (m *MockAdmin) AddContent(ctx context.Context, adminID int64, req models.AddContentRequest) (*models.Content, error) {
	args := m.Called(ctx, adminID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Content), args.Error(1)
}

func (m *MockAdmin) IssueToken(adminID int64) (string, error) {
	args := m.Called(adminID)
	return args.String(0), args.Error(1)
}

type MockConversations struct {
	mock.Mock
}

func (m *MockConversations) Await(ctx context.Context, userID int64, kind conversation.Kind, state any) error {
	return m.Called(ctx, userID, kind, state).Error(0)
}

func (m *MockConversations) Consume(ctx context.Context, userID int64, kind conversation.Kind, result any) (bool, error) {
	args := m.Called(ctx, userID, kind, result)
	return args.Bool(0), args.Error(1)
}

func (m *MockConversations) Cancel(ctx context.Context, userID int64, kind conversation.Kind) error {
	return m.Called(ctx, userID, kind).Error(0)
}

type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) Reply(ctx context.Context, chatID int64, text string, markup tgmodels.ReplyMarkup) error {
	return m.Called(ctx, chatID, text, markup).Error(0)
}

func (m *MockMessenger) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return m.Called(ctx, callbackID, text).Error(0)
}

func (m *MockMessenger) AnswerPreCheckout(ctx context.Context, queryID string, ok bool, reason string) error {
	return m.Called(ctx, queryID, ok, reason).Error(0)
}

func (m *MockMessenger) IsChannelMember(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	args := m.Called(ctx, params)
	return nil, args.Error(0)
}

func (m *MockAPI) SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*tgmodels.Message, error) {
	args := m.Called(ctx, params)
	return nil, args.Error(0)
}

func (m *MockAPI) SendVideo(ctx context.Context, params *bot.SendVideoParams) (*tgmodels.Message, error) {
	args := m.Called(ctx, params)
	return nil, args.Error(0)
}

func (m *MockAPI) SendInvoice(ctx context.Context, params *bot.SendInvoiceParams) (*tgmodels.Message, error) {
	args := m.Called(ctx, params)
	return nil, args.Error(0)
}

func (m *MockAPI) AnswerPreCheckoutQuery(ctx context.Context, params *bot.AnswerPreCheckoutQueryParams) (bool, error) {
	args := m.Called(ctx, params)
	return args.Error(0) == nil, args.Error(0)
}

func (m *MockAPI) AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	args := m.Called(ctx, params)
	return args.Error(0) == nil, args.Error(0)
}

func (m *MockAPI) GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*tgmodels.ChatMember, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tgmodels.ChatMember), args.Error(1)
}
