// Package health отдает состояние процесса и его зависимостей.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/content-delivery-bot/internal/http/response"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
)

const checkTimeout = 2 * time.Second

// Pinger проверяет доступность зависимости.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	log    *slog.Logger
	checks map[string]Pinger
}

func New(log *slog.Logger, checks map[string]Pinger) *Handler {
	return &Handler{
		log:    log,
		checks: checks,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			h.log.Error("dependency check failed", slog.String("op", op), slog.String("dependency", name), sl.Err(err))
			deps[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	render.Status(r, status)
	if status != http.StatusOK {
		render.JSON(w, r, response.Response{Status: response.StatusError, Error: "dependency unavailable", Data: deps})
		return
	}
	render.JSON(w, r, response.StatusOKWithData(deps))
}
