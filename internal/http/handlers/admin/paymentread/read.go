// Package paymentread отдает карточку платежа с владельцем и привязанным контентом.
package paymentread

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/content-delivery-bot/internal/http/middlewarectx"
	"github.com/magabrotheeeer/content-delivery-bot/internal/http/response"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
	"github.com/magabrotheeeer/content-delivery-bot/internal/models"
	"github.com/magabrotheeeer/content-delivery-bot/internal/services/admin"
	"github.com/magabrotheeeer/content-delivery-bot/internal/storage"
)

// Service описывает бизнес-логику чтения платежа.
type Service interface {
	PaymentDetails(ctx context.Context, adminID int64, paymentID string) (*models.PaymentDetails, error)
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
	const op = "handlers.admin.paymentread"

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

	paymentID := chi.URLParam(r, "id")
	if err := h.validate.Var(paymentID, "required,uuid"); err != nil {
		log.Warn("invalid payment id", slog.String("payment_id", paymentID))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("payment id must be a uuid"))
		return
	}

	res, err := h.service.PaymentDetails(r.Context(), adminID, paymentID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("payment not found"))
		return
	case errors.Is(err, admin.ErrUnauthorized):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.Error("admin privileges required"))
		return
	case err != nil:
		log.Error("failed to read payment", sl.PaymentID(paymentID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read payment"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(res))
}
