package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
	"github.com/magabrotheeeer/content-delivery-bot/internal/storage"
)

// UpsertUser создает пользователя или обновляет его данные и last_active.
func (s *Storage) UpsertUser(ctx context.Context, user models.User) error {
	const op = "storage.UpsertUser"

	query := `
		INSERT INTO users (user_id, username, first_name, last_name, last_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			last_active = EXCLUDED.last_active`
	_, err := s.DB.ExecContext(ctx, query,
		user.UserID, nullString(user.Username), nullString(user.FirstName), nullString(user.LastName), s.now())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUser возвращает пользователя по идентификатору платформы.
func (s *Storage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	const op = "storage.GetUser"

	query := `SELECT user_id, username, first_name, last_name, last_active FROM users WHERE user_id = $1`
	var (
		u                             models.User
		username, firstName, lastName sql.NullString
	)
	err := s.DB.QueryRowContext(ctx, query, userID).
		Scan(&u.UserID, &username, &firstName, &lastName, &u.LastActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: user %d: %w", op, userID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u.Username = username.String
	u.FirstName = firstName.String
	u.LastName = lastName.String
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
