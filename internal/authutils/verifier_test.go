package authutils_test

import (
	"context"
	"testing"
	"time"

	"fable-server/internal/authutils"
	"fable-server/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, secret string, userID uuid.UUID, expiresAt time.Time) string {
	t.Helper()
	claims := &models.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestNewJWTVerifier(t *testing.T) {
	t.Run("rejects empty secret", func(t *testing.T) {
		_, err := authutils.NewJWTVerifier("", nil)
		assert.Error(t, err)
	})

	t.Run("accepts nil logger", func(t *testing.T) {
		v, err := authutils.NewJWTVerifier(testSecret, nil)
		require.NoError(t, err)
		assert.NotNil(t, v)
	})
}

func TestVerifyToken(t *testing.T) {
	ctx := context.Background()
	verifier, err := authutils.NewJWTVerifier(testSecret, nil)
	require.NoError(t, err)

	t.Run("valid token returns claims", func(t *testing.T) {
		userID := uuid.New()
		tokenStr := signToken(t, testSecret, userID, time.Now().Add(time.Hour))

		claims, err := verifier.VerifyToken(ctx, tokenStr)

		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
	})

	t.Run("expired token", func(t *testing.T) {
		tokenStr := signToken(t, testSecret, uuid.New(), time.Now().Add(-time.Hour))

		_, err := verifier.VerifyToken(ctx, tokenStr)

		assert.ErrorIs(t, err, models.ErrTokenExpired)
	})

	t.Run("wrong signature", func(t *testing.T) {
		tokenStr := signToken(t, "another-secret", uuid.New(), time.Now().Add(time.Hour))

		_, err := verifier.VerifyToken(ctx, tokenStr)

		assert.ErrorIs(t, err, models.ErrTokenInvalid)
	})

	t.Run("malformed token", func(t *testing.T) {
		_, err := verifier.VerifyToken(ctx, "not-a-jwt")

		assert.ErrorIs(t, err, models.ErrTokenMalformed)
	})

	t.Run("missing user id", func(t *testing.T) {
		tokenStr := signToken(t, testSecret, uuid.Nil, time.Now().Add(time.Hour))

		_, err := verifier.VerifyToken(ctx, tokenStr)

		assert.ErrorIs(t, err, models.ErrTokenInvalid)
	})

	t.Run("unexpected signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &models.Claims{UserID: uuid.New()})
		tokenStr, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, verifyErr := verifier.VerifyToken(ctx, tokenStr)

		assert.ErrorIs(t, verifyErr, models.ErrTokenInvalid)
	})
}
