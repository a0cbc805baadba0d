// Package middlewarectx содержит HTTP middleware административного API.
//
// JWTMiddleware проверяет токен из заголовка Authorization и кладет
// идентификатор администратора в контекст запроса.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/content-delivery-bot/internal/http/response"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/jwt"
	"github.com/magabrotheeeer/content-delivery-bot/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// AdminID ключ идентификатора администратора в контексте
const AdminID Key = "admin_id"

// TokenParser разбирает токен администратора.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.AdminClaims, error)
}

// JWTMiddleware пропускает запрос, только если токен валиден и выпущен для adminID.
func JWTMiddleware(parser TokenParser, adminID int64, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := parser.ParseToken(tokenStr)
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			if claims.AdminID != adminID {
				log.Warn("token issued for another user", slog.Int64("token_admin_id", claims.AdminID))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("admin privileges required"))
				return
			}

			ctx := context.WithValue(r.Context(), AdminID, claims.AdminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminIDFromContext возвращает идентификатор, положенный JWTMiddleware.
func AdminIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(AdminID).(int64)
	return id, ok
}
