// Package sl содержит вспомогательные функции для работы с логгером slog.
package sl

import (
	"log/slog"
	"os"
)

// Окружения, от которых зависит формат логов
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// PaymentID атрибут идентификатора платежа
func PaymentID(id string) slog.Attr {
	return slog.String("payment_id", id)
}

// UserID атрибут идентификатора пользователя telegram
func UserID(id int64) slog.Attr {
	return slog.Int64("user_id", id)
}

// SetupLogger создает логгер под окружение: текст для local, JSON для остальных.
func SetupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
