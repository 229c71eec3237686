package interfaces

import (
	"context"

	"fable-server/internal/models"

	"github.com/google/uuid"
)

// UserRepository is read-only access to the local mirror of identity
// accounts. Used to resolve invite identifiers to users.
//
//go:generate mockery --name UserRepository --output ./mocks --outpkg mocks --case=underscore
type UserRepository interface {
	GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, q DBTX, username string) (*models.User, error)
	GetByEmail(ctx context.Context, q DBTX, email string) (*models.User, error)
}
