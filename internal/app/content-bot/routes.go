// Package contentbot собирает бота: хранилище, сервисы, Telegram и HTTP сервер.
package contentbot

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/content-delivery-bot/internal/http/handlers/admin/contentlist"
	"github.com/magabrotheeeer/content-delivery-bot/internal/http/handlers/admin/paymentlist"
	"github.com/magabrotheeeer/content-delivery-bot/internal/http/handlers/admin/paymentread"
	"github.com/magabrotheeeer/content-delivery-bot/internal/http/handlers/admin/stats"
	"github.com/magabrotheeeer/content-delivery-bot/internal/http/handlers/health"
	"github.com/magabrotheeeer/content-delivery-bot/internal/http/middlewarectx"
	adminservice "github.com/magabrotheeeer/content-delivery-bot/internal/services/admin"
)

// Ограничение частоты запросов к административному API
const (
	adminAPIRate  = 5
	adminAPIBurst = 10
)

// Routes зависимости HTTP маршрутов.
type Routes struct {
	Logger       *slog.Logger
	Admin        *adminservice.Service
	Tokens       middlewarectx.TokenParser
	AdminID      int64
	Metrics      http.Handler
	Health       map[string]health.Pinger
	Webhook      http.Handler // nil в режиме long polling
	WebhookRoute string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, rt Routes) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	)

	r.Handle("/metrics", rt.Metrics)
	r.Get("/healthz", health.New(rt.Logger, rt.Health).ServeHTTP)

	if rt.Webhook != nil {
		r.Post(rt.WebhookRoute, rt.Webhook.ServeHTTP)
	}

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Logger)
		r.Use(middlewarectx.RateLimitMiddleware(rate.NewLimiter(adminAPIRate, adminAPIBurst), rt.Logger))
		r.Use(middlewarectx.JWTMiddleware(rt.Tokens, rt.AdminID, rt.Logger))

		r.Get("/stats", stats.New(rt.Logger, rt.Admin).ServeHTTP)
		r.Get("/payments", paymentlist.New(rt.Logger, rt.Admin).ServeHTTP)
		r.Get("/payments/{id}", paymentread.New(rt.Logger, rt.Admin).ServeHTTP)
		r.Get("/contents", contentlist.New(rt.Logger, rt.Admin).ServeHTTP)
	})
}
