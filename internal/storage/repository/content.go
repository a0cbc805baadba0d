package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
	"github.com/magabrotheeeer/content-delivery-bot/internal/storage"
)

const contentColumns = `content_id::text, title, file_path, file_type, uploaded_at, admin_id`

func scanContent(row scanner) (*models.Content, error) {
	var (
		c        models.Content
		fileType string
	)
	if err := row.Scan(&c.ContentID, &c.Title, &c.FilePath, &fileType, &c.UploadedAt, &c.AdminID); err != nil {
		return nil, err
	}
	c.FileType = models.FileType(fileType)
	return &c, nil
}

// AddContent регистрирует элемент контент-библиотеки.
// Совпадение content_id или title возвращает storage.ErrDuplicateKey.
func (s *Storage) AddContent(ctx context.Context, content models.Content) (*models.Content, error) {
	const op = "storage.AddContent"

	if content.FileType == "" {
		content.FileType = models.FileTypeDocument
	}
	if content.UploadedAt.IsZero() {
		content.UploadedAt = s.now()
	}
	query := `
		INSERT INTO content_library (content_id, title, file_path, file_type, uploaded_at, admin_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + contentColumns
	c, err := scanContent(s.DB.QueryRowContext(ctx, query,
		content.ContentID, content.Title, content.FilePath, string(content.FileType), content.UploadedAt, content.AdminID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapPgError(err))
	}
	return c, nil
}

// GetContent возвращает элемент контент-библиотеки.
func (s *Storage) GetContent(ctx context.Context, contentID string) (*models.Content, error) {
	const op = "storage.GetContent"

	query := `SELECT ` + contentColumns + ` FROM content_library WHERE content_id = $1`
	c, err := scanContent(s.DB.QueryRowContext(ctx, query, contentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: content %s: %w", op, contentID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: content %s: %w", op, contentID, mapPgError(err))
	}
	return c, nil
}

// ListContent возвращает контент от новых к старым.
func (s *Storage) ListContent(ctx context.Context, limit, offset int) ([]*models.Content, error) {
	const op = "storage.ListContent"

	query := `SELECT ` + contentColumns + `
		FROM content_library ORDER BY uploaded_at DESC, title LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Content, 0)
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
