package paymentread

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/content-delivery-bot/internal/http/middlewarectx"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
	"github.com/magabrotheeeer/content-delivery-bot/internal/storage"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) PaymentDetails(ctx context.Context, adminID int64, paymentID string) (*models.PaymentDetails, error) {
	args := m.Called(ctx, adminID, paymentID)
	if res := args.Get(0); res != nil {
		return res.(*models.PaymentDetails), args.Error(1)
	}
	return nil, args.Error(1)
}

const paymentID = "3f2b8c1e-6d1a-4f5e-9b7a-2c4d6e8f0a1b"

func TestReadHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	contentID := "c1"

	tests := []struct {
		name           string
		url            string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "доставленный платеж",
			url:  "/api/v1/admin/payments/" + paymentID,
			setupMock: func(m *MockService) {
				m.On("PaymentDetails", mock.Anything, int64(42), paymentID).Return(&models.PaymentDetails{
					Payment: &models.Payment{PaymentID: paymentID, Status: models.StatusDelivered, ContentID: &contentID},
					User:    &models.User{UserID: 1001, Username: "alice"},
					Content: &models.Content{ContentID: contentID, Title: "Movie"},
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"delivered"`,
		},
		{
			name:           "id не uuid",
			url:            "/api/v1/admin/payments/abc",
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"payment id must be a uuid"`,
		},
		{
			name: "платеж не найден",
			url:  "/api/v1/admin/payments/" + paymentID,
			setupMock: func(m *MockService) {
				m.On("PaymentDetails", mock.Anything, int64(42), paymentID).
					Return(nil, fmt.Errorf("admin.PaymentDetails: %w", storage.ErrNotFound)).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error":"payment not found"`,
		},
		{
			name: "ошибка сервиса",
			url:  "/api/v1/admin/payments/" + paymentID,
			setupMock: func(m *MockService) {
				m.On("PaymentDetails", mock.Anything, int64(42), paymentID).Return(nil, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not read payment"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", strings.TrimPrefix(tt.url, "/api/v1/admin/payments/"))
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = context.WithValue(ctx, middlewarectx.AdminID, int64(42))
			req = req.WithContext(ctx)

			rec := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
