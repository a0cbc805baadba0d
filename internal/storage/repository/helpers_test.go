package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/content-delivery-bot/internal/migrations"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
)

const testExpiry = 24 * time.Hour

// testClock управляемые часы хранилища
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// setupTestDatabase поднимает PostgreSQL в контейнере и накатывает миграции
func setupTestDatabase(t *testing.T) (*Storage, *testClock) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	st, err := New(ctx, dsn, testExpiry)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(st.DB, migrationsPath))

	clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	st.now = clock.Now
	return st, clock
}

// TestDataFactory создает тестовые данные
type TestDataFactory struct {
	t       *testing.T
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(t *testing.T, storage *Storage) *TestDataFactory {
	return &TestDataFactory{t: t, storage: storage}
}

// User создает пользователя
func (f *TestDataFactory) User(userID int64) {
	f.t.Helper()
	require.NoError(f.t, f.storage.UpsertUser(context.Background(), models.User{
		UserID:   userID,
		Username: "user" + uuid.NewString()[:8],
	}))
}

// PendingPayment создает пользователя и pending платеж
func (f *TestDataFactory) PendingPayment(userID, amount int64) *models.Payment {
	f.t.Helper()
	f.User(userID)
	p, err := f.storage.CreatePendingPayment(context.Background(), uuid.NewString(), userID, amount, "XTR")
	require.NoError(f.t, err)
	return p
}

// CompletedPayment создает оплаченный платеж
func (f *TestDataFactory) CompletedPayment(userID, amount int64) *models.Payment {
	f.t.Helper()
	p := f.PendingPayment(userID, amount)
	completed, err := f.storage.MarkCompleted(context.Background(), p.PaymentID, "charge-"+p.PaymentID[:8])
	require.NoError(f.t, err)
	return completed
}

// Content регистрирует элемент контента
func (f *TestDataFactory) Content(title string) *models.Content {
	f.t.Helper()
	c, err := f.storage.AddContent(context.Background(), models.Content{
		ContentID: uuid.NewString(),
		Title:     title,
		FilePath:  "drive-" + title,
		FileType:  models.FileTypeDocument,
		AdminID:   1,
	})
	require.NoError(f.t, err)
	return c
}

// verifyInvariants проверяет, что ни одна строка не нарушает связь статуса с полями
func verifyInvariants(t *testing.T, st *Storage) {
	t.Helper()
	var broken int
	err := st.DB.QueryRow(`
		SELECT COUNT(*) FROM payments
		WHERE (content_id IS NOT NULL) <> (status = 'delivered')
		   OR (completion_timestamp IS NOT NULL) <> (status IN ('completed', 'delivered'))`).Scan(&broken)
	require.NoError(t, err)
	require.Zero(t, broken)
}
