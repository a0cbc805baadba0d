package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTMaker_GenerateAndParseToken(t *testing.T) {
	tokenTTL := 15 * time.Minute
	maker := NewJWTMaker("test_secret_key_1234567890", tokenTTL)

	for _, adminID := range []int64{1, 42, 987654321} {
		token, err := maker.GenerateToken(adminID)
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		claims, err := maker.ParseToken(token)
		require.NoError(t, err)

		assert.Equal(t, adminID, claims.AdminID)
		assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second)
		assert.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt.Time, time.Second)
	}
}

func TestJWTMaker_ParseToken_InvalidTokens(t *testing.T) {
	secretKey := "test_secret_key_1234567890"
	maker := NewJWTMaker(secretKey, 15*time.Minute)

	validToken, err := maker.GenerateToken(42)
	require.NoError(t, err)

	expired := NewJWTMaker(secretKey, -time.Hour)
	expiredToken, err := expired.GenerateToken(42)
	require.NoError(t, err)

	wrongSecretToken, err := NewJWTMaker("wrong_secret_key", 15*time.Minute).GenerateToken(42)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, AdminClaims{AdminID: 42}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "пустой токен", token: ""},
		{name: "некорректный токен", token: "invalid.token.here"},
		{name: "истекший токен", token: expiredToken},
		{name: "чужой ключ", token: wrongSecretToken},
		{name: "измененный токен", token: validToken + "tampered"},
		{name: "алгоритм none", token: noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTMaker_EmptySecret(t *testing.T) {
	maker := NewJWTMaker("", time.Minute)

	_, err := maker.GenerateToken(1)
	assert.ErrorIs(t, err, ErrEmptySecret)

	_, err = maker.ParseToken("whatever")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestJWTMaker_TokenExpiration(t *testing.T) {
	maker := NewJWTMaker("test_secret_key", time.Minute)
	current := time.Now().Add(-2 * time.Minute)
	maker.now = func() time.Time { return current }

	token, err := maker.GenerateToken(7)
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}
