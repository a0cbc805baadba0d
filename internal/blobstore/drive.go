package blobstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveResolver скачивает файлы из Google Drive по id.
type DriveResolver struct {
	svc      *drive.Service
	maxBytes int64
}

// NewDriveResolver создает клиент Drive с ключом сервисного аккаунта и правами только на чтение.
func NewDriveResolver(ctx context.Context, credentialsPath string, maxBytes int64) (*DriveResolver, error) {
	return NewDriveResolverWithOptions(ctx, maxBytes,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(drive.DriveReadonlyScope),
	)
}

// NewDriveResolverWithOptions создает клиент Drive с произвольными опциями.
func NewDriveResolverWithOptions(ctx context.Context, maxBytes int64, opts ...option.ClientOption) (*DriveResolver, error) {
	const op = "blobstore.NewDriveResolver"
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &DriveResolver{svc: svc, maxBytes: maxBytes}, nil
}

// Metadata возвращает имя файла в Drive.
func (d *DriveResolver) Metadata(ctx context.Context, fileID string) (string, error) {
	f, err := d.svc.Files.Get(fileID).Fields("name").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", mapDriveError(fileID, err)
	}
	return f.Name, nil
}

// Resolve скачивает содержимое файла.
func (d *DriveResolver) Resolve(ctx context.Context, fileID string) (*Blob, error) {
	f, err := d.svc.Files.Get(fileID).Fields("name", "mimeType", "size").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return nil, mapDriveError(fileID, err)
	}
	if f.Size > d.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, fileID, f.Size)
	}

	resp, err := d.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, mapDriveError(fileID, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := readLimited(resp.Body, d.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("drive file %s: %w", fileID, err)
	}
	return &Blob{Name: f.Name, MimeType: f.MimeType, Data: data}, nil
}

func mapDriveError(fileID string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("drive file %s: %w", fileID, ErrNotFound)
	}
	return fmt.Errorf("drive file %s: %w", fileID, err)
}
