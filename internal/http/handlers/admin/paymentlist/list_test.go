package paymentlist

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/content-delivery-bot/internal/http/middlewarectx"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Payments(ctx context.Context, adminID int64, limit, offset int) ([]*models.Payment, error) {
	args := m.Called(ctx, adminID, limit, offset)
	if res := args.Get(0); res != nil {
		return res.([]*models.Payment), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	payments := []*models.Payment{{PaymentID: "p1", UserID: 1001, Amount: 500, Currency: "XTR", Status: models.StatusCompleted}}

	tests := []struct {
		name           string
		url            string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "лимит по умолчанию",
			url:  "/api/v1/admin/payments",
			setupMock: func(m *MockService) {
				m.On("Payments", mock.Anything, int64(42), 20, 0).Return(payments, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"payment_id":"p1"`,
		},
		{
			name: "явные limit и offset",
			url:  "/api/v1/admin/payments?limit=5&offset=10",
			setupMock: func(m *MockService) {
				m.On("Payments", mock.Anything, int64(42), 5, 10).Return([]*models.Payment{}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"offset":10`,
		},
		{
			name:           "limit не число",
			url:            "/api/v1/admin/payments?limit=abc",
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"limit and offset must be integers"`,
		},
		{
			name:           "limit больше максимума",
			url:            "/api/v1/admin/payments?limit=1000",
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `field Limit must be at most 100`,
		},
		{
			name:           "отрицательный offset",
			url:            "/api/v1/admin/payments?offset=-1",
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `field Offset must be at least 0`,
		},
		{
			name: "ошибка сервиса",
			url:  "/api/v1/admin/payments",
			setupMock: func(m *MockService) {
				m.On("Payments", mock.Anything, int64(42), 20, 0).Return(nil, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not list payments"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.AdminID, int64(42)))
			rec := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
