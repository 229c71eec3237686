package interfaces

import (
	"context"

	"fable-server/internal/models"

	"github.com/google/uuid"
)

// TurnRepository defines persistence for the per-story turn ledger.
//
//go:generate mockery --name TurnRepository --output ./mocks --outpkg mocks --case=underscore
type TurnRepository interface {
	// Create initializes the ledger to (1, creator). Called exactly
	// once, in the same transaction as story creation.
	Create(ctx context.Context, q DBTX, turn *models.Turn) error

	// Get returns the ledger row or models.ErrNotFound.
	Get(ctx context.Context, q DBTX, storyID uuid.UUID) (*models.Turn, error)

	// GetForUpdate returns the ledger row under a row-level lock. Every
	// operation that reads the ledger and then mutates turn-dependent
	// state (submit, skip, leave, burn) must go through this inside a
	// transaction so concurrent attempts serialize per story.
	GetForUpdate(ctx context.Context, q DBTX, storyID uuid.UUID) (*models.Turn, error)

	// Advance writes the next (currentTurn, currentUserID) pair.
	Advance(ctx context.Context, q DBTX, storyID uuid.UUID, nextTurn int, nextUserID uuid.UUID) error
}
