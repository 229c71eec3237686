package interfaces

import (
	"context"
	"errors"

	"fable-server/internal/models"

	"github.com/google/uuid"
)

// ErrInvalidCursor signals a malformed pagination cursor.
var ErrInvalidCursor = errors.New("invalid cursor format")

// StoryRepository defines persistence for stories.
//
//go:generate mockery --name StoryRepository --output ./mocks --outpkg mocks --case=underscore
type StoryRepository interface {
	// Create inserts a new story record.
	Create(ctx context.Context, q DBTX, story *models.Story) error

	// GetByID retrieves a story by its ID. Returns models.ErrNotFound
	// if it does not exist (including after a burn).
	GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*models.Story, error)

	// UpdateMetadata rewrites title, description and genre. Used by the
	// creator's updates and by approved metadata edit requests.
	UpdateMetadata(ctx context.Context, q DBTX, id uuid.UUID, title, description, genre string) error

	// UpdateLimits rewrites word/character limits. Takes effect for
	// future segments only; existing segments are never re-validated.
	UpdateLimits(ctx context.Context, q DBTX, id uuid.UUID, wordLimit, characterLimit int) error

	// UpdateAuthor reassigns the approval authority for edit requests.
	UpdateAuthor(ctx context.Context, q DBTX, id, authorID uuid.UUID) error

	// MarkComplete flips is_complete to true. Returns the number of
	// rows changed so the caller can report AlreadyComplete.
	MarkComplete(ctx context.Context, q DBTX, id uuid.UUID) (bool, error)

	// MarkEdited flips is_edited to true.
	MarkEdited(ctx context.Context, q DBTX, id uuid.UUID) error

	// Delete removes the story row. Participants, segments, the turn
	// ledger, edit requests and invitations cascade at the schema level.
	Delete(ctx context.Context, q DBTX, id uuid.UUID) error

	// ListByParticipant returns stories the user is a member of, newest
	// first, with created_at cursor pagination.
	ListByParticipant(ctx context.Context, q DBTX, userID uuid.UUID, cursor string, limit int) ([]*models.Story, string, error)

	// ListPublic returns publicly joinable, incomplete stories, newest
	// first, with created_at cursor pagination.
	ListPublic(ctx context.Context, q DBTX, cursor string, limit int) ([]*models.Story, string, error)
}
