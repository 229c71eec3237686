package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fable-server/internal/interfaces"
	"fable-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Compile-time check
var _ interfaces.InvitationRepository = (*pgInvitationRepository)(nil)

const invitationFields = `id, story_id, inviter_id, invitee_id, invitee_email, token, status, expires_at, created_at`

type pgInvitationRepository struct {
	logger *zap.Logger
}

// NewPgInvitationRepository creates a PostgreSQL-backed InvitationRepository.
func NewPgInvitationRepository(logger *zap.Logger) interfaces.InvitationRepository {
	return &pgInvitationRepository{logger: logger.Named("PgInvitationRepo")}
}

func (r *pgInvitationRepository) Create(ctx context.Context, q interfaces.DBTX, inv *models.Invitation) error {
	query := `INSERT INTO story_invitations (` + invitationFields + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	logFields := []zap.Field{
		zap.String("invitationID", inv.ID.String()),
		zap.String("storyID", inv.StoryID.String()),
	}
	_, err := q.Exec(ctx, query,
		inv.ID, inv.StoryID, inv.InviterID, inv.InviteeID, inv.InviteeEmail,
		inv.Token, inv.Status, inv.ExpiresAt, inv.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // partial unique index on pending (story, invitee)
				r.logger.Warn("Pending invitation already exists", logFields...)
				return interfaces.ErrAlreadyInvited
			case "23503":
				r.logger.Warn("Story not found for invitation", logFields...)
				return models.ErrNotFound
			}
		}
		r.logger.Error("Failed to create invitation", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	r.logger.Info("Invitation created", logFields...)
	return nil
}

func (r *pgInvitationRepository) GetByID(ctx context.Context, q interfaces.DBTX, id uuid.UUID) (*models.Invitation, error) {
	query := `SELECT ` + invitationFields + ` FROM story_invitations WHERE id = $1`
	var inv models.Invitation
	if err := pgxscan.Get(ctx, q, &inv, query, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get invitation", zap.String("invitationID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return &inv, nil
}

// UpdateStatus flips a pending invitation into a terminal status.
// First writer wins; a repeat resolution observes false.
func (r *pgInvitationRepository) UpdateStatus(ctx context.Context, q interfaces.DBTX, id uuid.UUID, status models.InvitationStatus) (bool, error) {
	query := `UPDATE story_invitations SET status = $2 WHERE id = $1 AND status = 'pending'`
	tag, err := q.Exec(ctx, query, id, status)
	if err != nil {
		r.logger.Error("Failed to update invitation status", zap.String("invitationID", id.String()), zap.Error(err))
		return false, fmt.Errorf("failed to update invitation status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgInvitationRepository) ListPendingForUser(ctx context.Context, q interfaces.DBTX, userID uuid.UUID, email string, now time.Time) ([]*models.Invitation, error) {
	query := `SELECT ` + invitationFields + ` FROM story_invitations
	          WHERE status = 'pending' AND expires_at > $3 AND (invitee_id = $1 OR invitee_email = $2)
	          ORDER BY created_at DESC`
	invitations := make([]*models.Invitation, 0)
	if err := pgxscan.Select(ctx, q, &invitations, query, userID, email, now); err != nil {
		r.logger.Error("Failed to list pending invitations", zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list pending invitations: %w", err)
	}
	return invitations, nil
}
