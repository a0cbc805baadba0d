package contentlist

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
	"github.com/magabrotheeeer/content-delivery-bot/internal/services/admin"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Contents(ctx context.Context, adminID int64, limit, offset int) ([]*models.Content, error) {
	args := m.Called(ctx, adminID, limit, offset)
	if res := args.Get(0); res != nil {
		return res.([]*models.Content), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		url            string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "список контента",
			url:  "/api/v1/admin/contents?limit=10",
			setupMock: func(m *MockService) {
				m.On("Contents", mock.Anything, int64(42), 10, 0).
					Return([]*models.Content{{ContentID: "c1", Title: "Movie", FileType: models.FileTypeVideo}}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"title":"Movie"`,
		},
		{
			name: "мусор в параметрах",
			url:  "/api/v1/admin/contents?limit=x&offset=-5",
			setupMock: func(m *MockService) {
				m.On("Contents", mock.Anything, int64(42), 0, 0).Return([]*models.Content{}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"contents":[]`,
		},
		{
			name: "не администратор",
			url:  "/api/v1/admin/contents",
			setupMock: func(m *MockService) {
				m.On("Contents", mock.Anything, int64(42), 0, 0).Return(nil, admin.ErrUnauthorized).Once()
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "ошибка сервиса",
			url:  "/api/v1/admin/contents",
			setupMock: func(m *MockService) {
				m.On("Contents", mock.Anything, int64(42), 0, 0).Return(nil, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not list contents`,
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
