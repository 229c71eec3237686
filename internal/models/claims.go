package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the identity-service JWT payload we rely on.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// ContextKey is the type used for request-context keys to avoid collisions.
type ContextKey string

// UserContextKey is the request-context key holding the authenticated user ID.
const UserContextKey ContextKey = "user_id"
