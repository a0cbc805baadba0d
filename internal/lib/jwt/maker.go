// Package jwt выпускает и проверяет JWT токены для административного HTTP API.
package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptySecret возвращается, если ключ подписи не задан
var ErrEmptySecret = errors.New("jwt secret key is empty")

// AdminClaims содержит идентификатор администратора telegram.
type AdminClaims struct {
	AdminID int64 `json:"admin_id"`
	jwt.RegisteredClaims
}

// Maker описывает генерацию и разбор токенов администратора.
type Maker interface {
	GenerateToken(adminID int64) (string, error)
	ParseToken(tokenStr string) (*AdminClaims, error)
}

// MakerImpl реализует Maker на HS256 с секретным ключом и TTL.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewJWTMaker создаёт Maker на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

// GenerateToken создает токен для администратора с заданным идентификатором.
func (j *MakerImpl) GenerateToken(adminID int64) (string, error) {
	const op = "jwt.GenerateToken"
	if j.secretKey == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptySecret)
	}
	now := j.now()
	claims := AdminClaims{
		AdminID: adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(adminID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок действия токена.
func (j *MakerImpl) ParseToken(tokenStr string) (*AdminClaims, error) {
	const op = "jwt.ParseToken"
	if j.secretKey == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptySecret)
	}
	token, err := jwt.ParseWithClaims(tokenStr, &AdminClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}
