package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the local mirror of an identity-service account. This service
// only reads it (to resolve invite identifiers and display names);
// account management lives in the identity service.
type User struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Username    string    `json:"username" db:"username"`
	Email       string    `json:"email" db:"email"`
	DisplayName string    `json:"display_name" db:"display_name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
