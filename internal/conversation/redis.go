// Package conversation хранит короткоживущие продолжения диалога в Redis.
//
// Продолжение создается, когда бот ждет от пользователя следующий ответ
// определенного вида (например, id платежа после /checkpayment), и
// потребляется ровно один раз либо истекает по TTL.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/content-delivery-bot/internal/config"
)

// Kind вид ожидаемого ввода
type Kind string

// KindCheckPayment ожидание идентификатора платежа после /checkpayment
const KindCheckPayment Kind = "checkpayment"

// DefaultTTL время жизни продолжения по умолчанию
const DefaultTTL = 5 * time.Minute

// Store продолжения диалогов, ключ (user_id, kind)
type Store struct {
	Db  *redis.Client
	ttl time.Duration
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection, ttl time.Duration) (*Store, error) {
	const op = "conversation.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{Db: db, ttl: ttl}, nil
}

func key(userID int64, kind Kind) string {
	return "conv:" + string(kind) + ":" + strconv.FormatInt(userID, 10)
}

// Await запоминает, что от пользователя ожидается ввод вида kind.
// Повторный вызов заменяет предыдущее продолжение и продлевает TTL.
func (s *Store) Await(ctx context.Context, userID int64, kind Kind, state any) error {
	const op = "conversation.Await"
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.Db.Set(ctx, key(userID, kind), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Consume атомарно забирает продолжение. false, если его нет или оно истекло.
func (s *Store) Consume(ctx context.Context, userID int64, kind Kind, result any) (bool, error) {
	const op = "conversation.Consume"
	val, err := s.Db.GetDel(ctx, key(userID, kind)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if result == nil {
		return true, nil
	}
	if err := json.Unmarshal([]byte(val), result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Cancel удаляет продолжение, если оно есть.
func (s *Store) Cancel(ctx context.Context, userID int64, kind Kind) error {
	const op = "conversation.Cancel"
	if err := s.Db.Del(ctx, key(userID, kind)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Ping проверяет соединение с Redis.
func (s *Store) Ping(ctx context.Context) error {
	return s.Db.Ping(ctx).Err()
}

// Close закрывает клиент Redis.
func (s *Store) Close() error {
	return s.Db.Close()
}
