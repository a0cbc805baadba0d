// Package stats отдает агрегированную статистику платежей и пользователей.
package stats

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/content-delivery-bot/internal/http/middlewarectx"
	"github.com/magabrotheeeer/content-delivery-bot/internal/http/response"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
	"github.com/magabrotheeeer/content-delivery-bot/internal/services/admin"
)

// Service описывает бизнес-логику статистики.
type Service interface {
	Stats(ctx context.Context, adminID int64) (*models.Stats, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.stats"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	adminID, ok := middlewarectx.AdminIDFromContext(r.Context())
	if !ok {
		log.Error("admin id missing in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("admin identification missing"))
		return
	}

	res, err := h.service.Stats(r.Context(), adminID)
	if err != nil {
		if errors.Is(err, admin.ErrUnauthorized) {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("admin privileges required"))
			return
		}
		log.Error("failed to load stats", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not load stats"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"stats": res,
	}))
}
