package interfaces

import (
	"context"
	"errors"
	"time"

	"fable-server/internal/models"

	"github.com/google/uuid"
)

// ErrAlreadyInvited is returned when a pending invitation for the same
// story and invitee already exists.
var ErrAlreadyInvited = errors.New("a pending invitation for this user already exists")

// InvitationRepository defines persistence for invitations.
//
//go:generate mockery --name InvitationRepository --output ./mocks --outpkg mocks --case=underscore
type InvitationRepository interface {
	// Create inserts a pending invitation. Returns ErrAlreadyInvited
	// when a pending one already targets the same invitee.
	Create(ctx context.Context, q DBTX, inv *models.Invitation) error

	// GetByID returns an invitation or models.ErrNotFound.
	GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*models.Invitation, error)

	// UpdateStatus flips status from pending to the given terminal
	// status. Returns false when the invitation was not pending anymore.
	UpdateStatus(ctx context.Context, q DBTX, id uuid.UUID, status models.InvitationStatus) (bool, error)

	// ListPendingForUser returns pending, unexpired invitations
	// addressed to the user (by ID or email), newest first.
	ListPendingForUser(ctx context.Context, q DBTX, userID uuid.UUID, email string, now time.Time) ([]*models.Invitation, error)
}

// InviteTokenRepository indexes invitation tokens for O(1) acceptance
// lookups. Entries carry the invitation TTL so the store enforces
// expiry alongside the expires_at column.
//
//go:generate mockery --name InviteTokenRepository --output ./mocks --outpkg mocks --case=underscore
type InviteTokenRepository interface {
	// Set stores token -> invitation ID with the given TTL.
	Set(ctx context.Context, token string, invitationID uuid.UUID, ttl time.Duration) error

	// Get resolves a token to its invitation ID. Returns
	// models.ErrNotFound for unknown or expired tokens.
	Get(ctx context.Context, token string) (uuid.UUID, error)

	// Delete removes a token (on accept/decline).
	Delete(ctx context.Context, token string) error
}
