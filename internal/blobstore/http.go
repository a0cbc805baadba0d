package blobstore

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
)

// HTTPResolver скачивает файлы по прямой http(s) ссылке.
type HTTPResolver struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPResolver создает резолвер. client nil означает http.DefaultClient.
func NewHTTPResolver(client *http.Client, maxBytes int64) *HTTPResolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPResolver{client: client, maxBytes: maxBytes}
}

// Metadata выполняет HEAD и берет имя из Content-Disposition, иначе из пути ссылки.
func (h *HTTPResolver) Metadata(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	_ = resp.Body.Close()
	if err := checkStatus(rawURL, resp); err != nil {
		return "", err
	}
	return fileName(rawURL, resp), nil
}

// Resolve скачивает файл целиком.
func (h *HTTPResolver) Resolve(ctx context.Context, rawURL string) (*Blob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := checkStatus(rawURL, resp); err != nil {
		return nil, err
	}
	if resp.ContentLength > h.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, rawURL, resp.ContentLength)
	}

	data, err := readLimited(resp.Body, h.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rawURL, err)
	}
	mimeType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return &Blob{Name: fileName(rawURL, resp), MimeType: mimeType, Data: data}, nil
}

func checkStatus(rawURL string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%s: %w", rawURL, ErrNotFound)
	case resp.StatusCode >= 300:
		return fmt.Errorf("%s: unexpected status %d", rawURL, resp.StatusCode)
	}
	return nil
}

func fileName(rawURL string, resp *http.Response) string {
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if name := params["filename"]; name != "" {
			return name
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "/" && base != "." {
			return base
		}
	}
	return ""
}
