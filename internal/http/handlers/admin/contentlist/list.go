// Package contentlist отдает элементы контент-библиотеки.
package contentlist

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/content-delivery-bot/internal/http/middlewarectx"
	"github.com/magabrotheeeer/content-delivery-bot/internal/http/response"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
	"github.com/magabrotheeeer/content-delivery-bot/internal/services/admin"
)

type Service interface {
	Contents(ctx context.Context, adminID int64, limit, offset int) ([]*models.Content, error)
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
	const op = "handlers.admin.contentlist"

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

	// некорректные значения заменяются значениями по умолчанию, сервис сам ограничивает limit
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	res, err := h.service.Contents(r.Context(), adminID, limit, max(offset, 0))
	if err != nil {
		if errors.Is(err, admin.ErrUnauthorized) {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("admin privileges required"))
			return
		}
		log.Error("failed to list contents", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list contents"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"contents": res,
	}))
}
