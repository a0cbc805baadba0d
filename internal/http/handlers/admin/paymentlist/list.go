// Package paymentlist отдает страницу платежей, новые первыми.
//
// Параметры limit и offset берутся из query string и проверяются валидатором.
package paymentlist

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/content-delivery-bot/internal/http/middlewarectx"
	"github.com/magabrotheeeer/content-delivery-bot/internal/http/response"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
	"github.com/magabrotheeeer/content-delivery-bot/internal/services/admin"
)

// Service описывает бизнес-логику выборки платежей.
type Service interface {
	Payments(ctx context.Context, adminID int64, limit, offset int) ([]*models.Payment, error)
}

// Query параметры страницы.
type Query struct {
	Limit  int `validate:"min=1,max=100"`
	Offset int `validate:"min=0"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.paymentlist"

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

	q, err := parseQuery(r)
	if err != nil {
		log.Warn("failed to parse query", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("limit and offset must be integers"))
		return
	}
	if err := h.validate.Struct(q); err != nil {
		var validateErr validator.ValidationErrors
		if errors.As(err, &validateErr) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(validateErr))
			return
		}
		log.Error("failed to validate query", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid query"))
		return
	}

	res, err := h.service.Payments(r.Context(), adminID, q.Limit, q.Offset)
	if err != nil {
		if errors.Is(err, admin.ErrUnauthorized) {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("admin privileges required"))
			return
		}
		log.Error("failed to list payments", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list payments"))
		return
	}

	log.Debug("payments listed", slog.Int("count", len(res)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"payments": res,
		"limit":    q.Limit,
		"offset":   q.Offset,
	}))
}

func parseQuery(r *http.Request) (Query, error) {
	q := Query{Limit: admin.DefaultLimit}
	values := r.URL.Query()
	if v := values.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return q, err
		}
		q.Limit = limit
	}
	if v := values.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			return q, err
		}
		q.Offset = offset
	}
	return q, nil
}
