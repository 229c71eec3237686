package interfaces

import (
	"context"

	"fable-server/internal/models"

	"github.com/google/uuid"
)

// EditRequestRepository defines persistence for edit requests.
//
//go:generate mockery --name EditRequestRepository --output ./mocks --outpkg mocks --case=underscore
type EditRequestRepository interface {
	// Create inserts a pending edit request with its original-value snapshot.
	Create(ctx context.Context, q DBTX, req *models.EditRequest) error

	// GetByID returns an edit request or models.ErrNotFound.
	GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*models.EditRequest, error)

	// Resolve flips status from pending to the given terminal status.
	// Returns false when the request was not pending anymore, so a
	// concurrent second resolution observes AlreadyResolved; the row is
	// mutated at most once.
	Resolve(ctx context.Context, q DBTX, id uuid.UUID, status models.EditRequestStatus) (bool, error)

	// ListPendingByStory returns pending requests for a story, oldest first.
	ListPendingByStory(ctx context.Context, q DBTX, storyID uuid.UUID) ([]*models.EditRequest, error)
}
