package interfaces

import (
	"context"
	"errors"

	"fable-server/internal/models"

	"github.com/google/uuid"
)

// ErrAlreadyParticipant is returned when the (story, user) pair already exists.
var ErrAlreadyParticipant = errors.New("user is already a participant of this story")

// ParticipantRepository defines persistence for story membership.
//
//go:generate mockery --name ParticipantRepository --output ./mocks --outpkg mocks --case=underscore
type ParticipantRepository interface {
	// Add inserts a membership row. Returns ErrAlreadyParticipant on a
	// duplicate (story, user) pair and models.ErrNotFound when the
	// story no longer exists.
	Add(ctx context.Context, q DBTX, p *models.Participant) error

	// Remove deletes a membership row. Returns models.ErrNotFound if
	// the pair does not exist. Turn-holder and creator guards are the
	// service's responsibility, inside the same transaction.
	Remove(ctx context.Context, q DBTX, storyID, userID uuid.UUID) error

	// Get returns a single membership row or models.ErrNotFound.
	Get(ctx context.Context, q DBTX, storyID, userID uuid.UUID) (*models.Participant, error)

	// Exists reports whether the user is a participant of the story.
	Exists(ctx context.Context, q DBTX, storyID, userID uuid.UUID) (bool, error)

	// ListByStory returns all participants in join order (joined_at
	// ascending). Rotation is defined over exactly this order.
	ListByStory(ctx context.Context, q DBTX, storyID uuid.UUID) ([]*models.Participant, error)

	// UpdateRole changes a participant's role. Used by the authorship
	// transfer flow.
	UpdateRole(ctx context.Context, q DBTX, storyID, userID uuid.UUID, role models.ParticipantRole) error
}
