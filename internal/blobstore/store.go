// Package blobstore разрешает локатор контента в байты файла.
//
// Поддерживаются идентификаторы Google Drive (голый id или gdrive://<id>) и
// ссылки http(s)://. Файл целиком читается в память с ограничением размера,
// чтобы повторная отправка не требовала повторного скачивания.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/retry"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
)

var (
	// ErrUnsupportedLocator локатор не относится ни к одному хранилищу
	ErrUnsupportedLocator = errors.New("unsupported content locator")
	// ErrNotFound файл отсутствует в хранилище
	ErrNotFound = errors.New("blob not found")
	// ErrTooLarge файл превышает допустимый размер
	ErrTooLarge = errors.New("blob too large")
)

// Blob содержимое файла вместе с именем для отправки.
type Blob struct {
	Name     string
	MimeType string
	Data     []byte
}

// Resolver одно конкретное хранилище.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (*Blob, error)
	Metadata(ctx context.Context, ref string) (string, error)
}

// Observer учитывает обращения к внешним сервисам.
type Observer interface {
	ObserveOutbound(target string, err error)
}

// Store маршрутизирует локатор к нужному Resolver с таймаутом и повторами.
type Store struct {
	drive   Resolver
	http    Resolver
	timeout time.Duration
	policy  retry.Policy
	log     *slog.Logger
	obs     Observer
}

// New создает Store. drive может быть nil, если Google Drive не настроен.
func New(drive, http Resolver, timeout time.Duration, policy retry.Policy, obs Observer, log *slog.Logger) *Store {
	return &Store{
		drive:   drive,
		http:    http,
		timeout: timeout,
		policy:  policy,
		log:     log,
		obs:     obs,
	}
}

func (s *Store) route(locator string) (Resolver, string, string, error) {
	locator = strings.TrimSpace(locator)
	switch {
	case strings.HasPrefix(locator, "gdrive://"):
		if s.drive == nil {
			return nil, "", "", fmt.Errorf("%w: google drive is not configured", ErrUnsupportedLocator)
		}
		return s.drive, strings.TrimPrefix(locator, "gdrive://"), "gdrive", nil
	case strings.HasPrefix(locator, "http://"), strings.HasPrefix(locator, "https://"):
		if s.http == nil {
			return nil, "", "", fmt.Errorf("%w: http resolver is not configured", ErrUnsupportedLocator)
		}
		return s.http, locator, "http", nil
	case locator == "", strings.Contains(locator, "://"):
		return nil, "", "", fmt.Errorf("%w: %q", ErrUnsupportedLocator, locator)
	default:
		if s.drive == nil {
			return nil, "", "", fmt.Errorf("%w: google drive is not configured", ErrUnsupportedLocator)
		}
		return s.drive, locator, "gdrive", nil
	}
}

// Resolve скачивает файл. Каждая попытка ограничена таймаутом,
// ErrNotFound и ErrTooLarge не повторяются.
func (s *Store) Resolve(ctx context.Context, locator string) (*Blob, error) {
	const op = "blobstore.Resolve"
	log := s.log.With(slog.String("op", op), slog.String("locator", locator))

	resolver, ref, target, err := s.route(locator)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var blob *Blob
	err = retry.Do(ctx, s.policy, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		b, err := resolver.Resolve(attemptCtx, ref)
		s.obs.ObserveOutbound(target, err)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrTooLarge) {
				return retry.Permanent(err)
			}
			return err
		}
		blob = b
		return nil
	}, func(err error, wait time.Duration) {
		log.Warn("blob download failed, retrying", sl.Err(err), slog.Duration("wait", wait))
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return blob, nil
}

// Metadata возвращает имя файла.
func (s *Store) Metadata(ctx context.Context, locator string) (string, error) {
	const op = "blobstore.Metadata"

	resolver, ref, target, err := s.route(locator)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	name, err := resolver.Metadata(ctx, ref)
	s.obs.ObserveOutbound(target, err)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return name, nil
}
