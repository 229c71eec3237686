package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"fable-server/internal/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TokenVerifier validates a token string and returns its claims.
// Errors are models.ErrTokenInvalid, models.ErrTokenExpired,
// models.ErrTokenMalformed and friends.
type TokenVerifier func(ctx context.Context, tokenString string) (*models.Claims, error)

// AuthMiddleware extracts the bearer token, verifies it with the given
// verifier and puts the user ID into the request context under
// models.UserContextKey.
func AuthMiddleware(verifier TokenVerifier, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			log := logger.With(zap.String("path", req.URL.Path))

			authHeader := req.Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Authorization header missing")
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized: Missing token")
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				log.Warn("Malformed Authorization header")
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized: Malformed token header")
			}
			tokenString := parts[1]

			claims, err := verifier(req.Context(), tokenString)
			if err != nil {
				status := http.StatusUnauthorized
				msg := "Unauthorized: Invalid token"
				switch {
				case errors.Is(err, models.ErrTokenExpired):
					msg = "Unauthorized: Token expired"
				case errors.Is(err, models.ErrTokenMalformed) || errors.Is(err, models.ErrTokenInvalid):
					// Same message for invalid and malformed tokens.
				default:
					log.Error("Unexpected token verification error", zap.Error(err))
					status = http.StatusInternalServerError
					msg = "Internal server error during token verification"
				}
				return echo.NewHTTPError(status, msg)
			}

			ctx := context.WithValue(req.Context(), models.UserContextKey, claims.UserID)
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
