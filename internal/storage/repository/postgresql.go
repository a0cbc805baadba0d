// Package repository реализует хранилище на PostgreSQL: пользователи,
// платежи с их жизненным циклом и контент-библиотека.
//
// Каждый переход статуса платежа выполняется одним условным UPDATE,
// поэтому конкурентные завершение оплаты, истечение срока и доставка
// упорядочиваются самой базой данных без блокировок в процессе.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/content-delivery-bot/internal/storage"
)

// Storage инкапсулирует соединение с PostgreSQL.
type Storage struct {
	DB *sql.DB

	requestExpiry time.Duration
	now           func() time.Time
}

// New открывает пул соединений и проверяет доступность базы.
// requestExpiry задает срок ожидания оплаты для новых платежей.
func New(ctx context.Context, storageConnectionString string, requestExpiry time.Duration) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewWithDB(db, requestExpiry), nil
}

// NewWithDB оборачивает уже открытый *sql.DB.
func NewWithDB(db *sql.DB, requestExpiry time.Duration) *Storage {
	return &Storage{
		DB:            db,
		requestExpiry: requestExpiry,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Ping проверяет соединение с базой.
func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.Ping"
	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// mapPgError переводит ошибки PostgreSQL в ошибки пакета storage.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, pgErr.ConstraintName)
	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w: %s", storage.ErrNotFound, pgErr.ConstraintName)
	case pgerrcode.InvalidTextRepresentation:
		// некорректный UUID не может ссылаться ни на одну запись
		return fmt.Errorf("%w: %s", storage.ErrNotFound, pgErr.Message)
	default:
		return err
	}
}

type scanner interface {
	Scan(dest ...any) error
}
