package interfaces

import (
	"context"

	"fable-server/internal/models"

	"github.com/google/uuid"
)

// SegmentRepository defines persistence for story segments.
//
//go:generate mockery --name SegmentRepository --output ./mocks --outpkg mocks --case=underscore
type SegmentRepository interface {
	// Create inserts a segment with the turn number consumed at
	// admission. Must be called in the same transaction as the ledger
	// advance.
	Create(ctx context.Context, q DBTX, segment *models.Segment) error

	// GetByID returns a segment or models.ErrNotFound.
	GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*models.Segment, error)

	// ListByStory returns all segments of a story ordered by turn ascending.
	ListByStory(ctx context.Context, q DBTX, storyID uuid.UUID) ([]*models.Segment, error)

	// CountByStory returns the number of segments in a story.
	CountByStory(ctx context.Context, q DBTX, storyID uuid.UUID) (int, error)

	// UpdateContent rewrites a segment's content and recomputed counts.
	// Only the approved edit-request path may call this.
	UpdateContent(ctx context.Context, q DBTX, id uuid.UUID, content string, wordCount, characterCount int) error
}
