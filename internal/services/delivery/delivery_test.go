package delivery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/content-delivery-bot/internal/blobstore"
	"github.com/magabrotheeeer/content-delivery-bot/internal/metrics"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
	"github.com/magabrotheeeer/content-delivery-bot/internal/storage"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockRepository) GetContent(ctx context.Context, contentID string) (*models.Content, error) {
	args := m.Called(ctx, contentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Content), args.Error(1)
}

func (m *MockRepository) LinkContentAndDeliver(ctx context.Context, paymentID, contentID string) (*models.Payment, error) {
	args := m.Called(ctx, paymentID, contentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Resolve(ctx context.Context, locator string) (*blobstore.Blob, error) {
	args := m.Called(ctx, locator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blobstore.Blob), args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendDocument(ctx context.Context, chatID int64, file models.File) error {
	return m.Called(ctx, chatID, file).Error(0)
}

func (m *MockSender) SendVideo(ctx context.Context, chatID int64, file models.File) error {
	return m.Called(ctx, chatID, file).Error(0)
}

func (m *MockSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	return m.Called(ctx, chatID, text).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event models.PaymentEvent) error {
	return m.Called(ctx, event).Error(0)
}

const (
	adminID   = int64(42)
	userID    = int64(1001)
	paymentID = "p1"
	contentID = "5f0c6a3e-8d2b-4c1a-9e7f-0a1b2c3d4e5f"
)

type deps struct {
	repo   *MockRepository
	blobs  *MockBlobStore
	sender *MockSender
	pub    *MockPublisher
}

func newTestService() (*Service, deps, *metrics.Metrics) {
	d := deps{
		repo:   new(MockRepository),
		blobs:  new(MockBlobStore),
		sender: new(MockSender),
		pub:    new(MockPublisher),
	}
	m := metrics.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(d.repo, d.blobs, d.sender, d.pub, m, adminID, log)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s, d, m
}

func payment(status models.PaymentStatus) *models.Payment {
	p := &models.Payment{
		PaymentID: paymentID,
		UserID:    userID,
		Amount:    500,
		Currency:  "XTR",
		Status:    status,
	}
	if status == models.StatusDelivered {
		id := contentID
		p.ContentID = &id
	}
	return p
}

func content(fileType models.FileType) *models.Content {
	return &models.Content{
		ContentID: contentID,
		Title:     "Movie",
		FilePath:  "gdrive://abc",
		FileType:  fileType,
	}
}

func TestService_Deliver(t *testing.T) {
	tests := []struct {
		name          string
		callerID      int64
		setupMocks    func(d deps)
		wantErr       error
		wantLinked    bool
		wantDelivered bool
		wantMetric    string
	}{
		{
			name:     "документ доставлен",
			callerID: adminID,
			setupMocks: func(d deps) {
				d.repo.On("GetPayment", mock.Anything, paymentID).Return(payment(models.StatusCompleted), nil).Once()
				d.repo.On("GetContent", mock.Anything, contentID).Return(content(models.FileTypeDocument), nil).Once()
				d.repo.On("LinkContentAndDeliver", mock.Anything, paymentID, contentID).Return(payment(models.StatusDelivered), nil).Once()
				d.pub.On("Publish", mock.Anything, mock.MatchedBy(func(e models.PaymentEvent) bool {
					return e.Type == models.EventPaymentDelivered && e.ContentID == contentID
				})).Return(nil).Once()
				d.blobs.On("Resolve", mock.Anything, "gdrive://abc").
					Return(&blobstore.Blob{Name: "movie.pdf", Data: []byte("data")}, nil).Once()
				d.sender.On("SendDocument", mock.Anything, userID, mock.MatchedBy(func(f models.File) bool {
					return f.Name == "movie.pdf" && string(f.Data) == "data"
				})).Return(nil).Once()
			},
			wantLinked:    true,
			wantDelivered: true,
			wantMetric:    metrics.DeliveryDelivered,
		},
		{
			name:     "видео отправляется как видео",
			callerID: adminID,
			setupMocks: func(d deps) {
				d.repo.On("GetPayment", mock.Anything, paymentID).Return(payment(models.StatusCompleted), nil).Once()
				d.repo.On("GetContent", mock.Anything, contentID).Return(content(models.FileTypeVideo), nil).Once()
				d.repo.On("LinkContentAndDeliver", mock.Anything, paymentID, contentID).Return(payment(models.StatusDelivered), nil).Once()
				d.pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
				d.blobs.On("Resolve", mock.Anything, "gdrive://abc").
					Return(&blobstore.Blob{Data: []byte("v")}, nil).Once()
				d.sender.On("SendVideo", mock.Anything, userID, mock.MatchedBy(func(f models.File) bool {
					return f.Name == "Movie.video"
				})).Return(nil).Once()
			},
			wantLinked:    true,
			wantDelivered: true,
			wantMetric:    metrics.DeliveryDelivered,
		},
		{
			name:       "не администратор",
			callerID:   7,
			setupMocks: func(deps) {},
			wantErr:    ErrUnauthorized,
			wantMetric: metrics.DeliveryRejected,
		},
		{
			name:     "платеж не найден",
			callerID: adminID,
			setupMocks: func(d deps) {
				d.repo.On("GetPayment", mock.Anything, paymentID).Return(nil, storage.ErrNotFound).Once()
			},
			wantErr:    storage.ErrNotFound,
			wantMetric: metrics.DeliveryRejected,
		},
		{
			name:     "платеж еще не оплачен",
			callerID: adminID,
			setupMocks: func(d deps) {
				d.repo.On("GetPayment", mock.Anything, paymentID).Return(payment(models.StatusPending), nil).Once()
			},
			wantErr:    ErrNotDeliverable,
			wantMetric: metrics.DeliveryRejected,
		},
		{
			name:     "уже доставлен",
			callerID: adminID,
			setupMocks: func(d deps) {
				d.repo.On("GetPayment", mock.Anything, paymentID).Return(payment(models.StatusDelivered), nil).Once()
			},
			wantErr:    ErrNotDeliverable,
			wantMetric: metrics.DeliveryRejected,
		},
		{
			name:     "контент не найден",
			callerID: adminID,
			setupMocks: func(d deps) {
				d.repo.On("GetPayment", mock.Anything, paymentID).Return(payment(models.StatusCompleted), nil).Once()
				d.repo.On("GetContent", mock.Anything, contentID).Return(nil, storage.ErrNotFound).Once()
			},
			wantErr:    ErrContentNotFound,
			wantMetric: metrics.DeliveryRejected,
		},
		{
			name:     "параллельная доставка успела первой",
			callerID: adminID,
			setupMocks: func(d deps) {
				d.repo.On("GetPayment", mock.Anything, paymentID).Return(payment(models.StatusCompleted), nil).Once()
				d.repo.On("GetContent", mock.Anything, contentID).Return(content(models.FileTypeDocument), nil).Once()
				d.repo.On("LinkContentAndDeliver", mock.Anything, paymentID, contentID).Return(nil, storage.ErrInvalidTransition).Once()
			},
			wantErr:    ErrNotDeliverable,
			wantMetric: metrics.DeliveryRejected,
		},
		{
			name:     "файл не скачался после привязки",
			callerID: adminID,
			setupMocks: func(d deps) {
				d.repo.On("GetPayment", mock.Anything, paymentID).Return(payment(models.StatusCompleted), nil).Once()
				d.repo.On("GetContent", mock.Anything, contentID).Return(content(models.FileTypeDocument), nil).Once()
				d.repo.On("LinkContentAndDeliver", mock.Anything, paymentID, contentID).Return(payment(models.StatusDelivered), nil).Once()
				d.pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
				d.blobs.On("Resolve", mock.Anything, "gdrive://abc").Return(nil, blobstore.ErrNotFound).Once()
				d.sender.On("SendMessage", mock.Anything, userID, deliveryFailedText).Return(nil).Once()
			},
			wantErr:    ErrPartialDelivery,
			wantLinked: true,
			wantMetric: metrics.DeliveryPartial,
		},
		{
			name:     "отправка не удалась после привязки",
			callerID: adminID,
			setupMocks: func(d deps) {
				d.repo.On("GetPayment", mock.Anything, paymentID).Return(payment(models.StatusCompleted), nil).Once()
				d.repo.On("GetContent", mock.Anything, contentID).Return(content(models.FileTypeDocument), nil).Once()
				d.repo.On("LinkContentAndDeliver", mock.Anything, paymentID, contentID).Return(payment(models.StatusDelivered), nil).Once()
				d.pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
				d.blobs.On("Resolve", mock.Anything, "gdrive://abc").
					Return(&blobstore.Blob{Name: "a.pdf", Data: []byte("x")}, nil).Once()
				d.sender.On("SendDocument", mock.Anything, userID, mock.Anything).Return(errors.New("bot was blocked")).Once()
				d.sender.On("SendMessage", mock.Anything, userID, deliveryFailedText).Return(errors.New("bot was blocked")).Once()
			},
			wantErr:    ErrPartialDelivery,
			wantLinked: true,
			wantMetric: metrics.DeliveryPartial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, d, m := newTestService()
			tt.setupMocks(d)

			res, err := s.Deliver(context.Background(), paymentID, contentID, tt.callerID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantLinked, res.Linked)
			assert.Equal(t, tt.wantDelivered, res.Delivered)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues(tt.wantMetric)))

			d.repo.AssertExpectations(t)
			d.blobs.AssertExpectations(t)
			d.sender.AssertExpectations(t)
			d.pub.AssertExpectations(t)
		})
	}
}

func TestService_Deliver_PushesExactlyOnce(t *testing.T) {
	s, d, _ := newTestService()
	d.repo.On("GetPayment", mock.Anything, paymentID).Return(payment(models.StatusCompleted), nil).Once()
	d.repo.On("GetContent", mock.Anything, contentID).Return(content(models.FileTypeDocument), nil).Once()
	d.repo.On("LinkContentAndDeliver", mock.Anything, paymentID, contentID).Return(payment(models.StatusDelivered), nil).Once()
	d.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	d.blobs.On("Resolve", mock.Anything, mock.Anything).Return(&blobstore.Blob{Name: "a", Data: []byte("x")}, nil)
	d.sender.On("SendDocument", mock.Anything, userID, mock.Anything).Return(nil)

	_, err := s.Deliver(context.Background(), paymentID, contentID, adminID)
	require.NoError(t, err)

	// второй вызов видит delivered и ничего не отправляет
	d.repo.On("GetPayment", mock.Anything, paymentID).Return(payment(models.StatusDelivered), nil).Once()
	_, err = s.Deliver(context.Background(), paymentID, contentID, adminID)
	require.ErrorIs(t, err, ErrNotDeliverable)

	d.sender.AssertNumberOfCalls(t, "SendDocument", 1)
	d.repo.AssertNumberOfCalls(t, "LinkContentAndDeliver", 1)
}

func TestService_Resend(t *testing.T) {
	t.Run("повторная отправка", func(t *testing.T) {
		s, d, _ := newTestService()
		d.repo.On("GetPayment", mock.Anything, paymentID).Return(payment(models.StatusDelivered), nil).Once()
		d.repo.On("GetContent", mock.Anything, contentID).Return(content(models.FileTypeDocument), nil).Once()
		d.blobs.On("Resolve", mock.Anything, "gdrive://abc").Return(&blobstore.Blob{Name: "a.pdf"}, nil).Once()
		d.sender.On("SendDocument", mock.Anything, userID, mock.Anything).Return(nil).Once()

		res, err := s.Resend(context.Background(), paymentID, adminID)
		require.NoError(t, err)
		assert.True(t, res.Delivered)
		d.repo.AssertNotCalled(t, "LinkContentAndDeliver", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("платеж не доставлен", func(t *testing.T) {
		s, d, _ := newTestService()
		d.repo.On("GetPayment", mock.Anything, paymentID).Return(payment(models.StatusCompleted), nil).Once()

		_, err := s.Resend(context.Background(), paymentID, adminID)
		require.ErrorIs(t, err, ErrNotDelivered)
	})

	t.Run("не администратор", func(t *testing.T) {
		s, d, _ := newTestService()

		_, err := s.Resend(context.Background(), paymentID, 7)
		require.ErrorIs(t, err, ErrUnauthorized)
		d.repo.AssertNotCalled(t, "GetPayment", mock.Anything, mock.Anything)
	})
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "real.mp4", fileName("real.mp4", content(models.FileTypeVideo)))
	assert.Equal(t, "Movie.document", fileName("  ", content(models.FileTypeDocument)))
	assert.Equal(t, "Movie.file", fileName("", &models.Content{Title: "Movie"}))
}
