package database

import (
	"context"
	"errors"
	"fmt"

	"fable-server/internal/interfaces"
	"fable-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Compile-time check
var _ interfaces.ParticipantRepository = (*pgParticipantRepository)(nil)

type pgParticipantRepository struct {
	logger *zap.Logger
}

// NewPgParticipantRepository creates a PostgreSQL-backed ParticipantRepository.
func NewPgParticipantRepository(logger *zap.Logger) interfaces.ParticipantRepository {
	return &pgParticipantRepository{logger: logger.Named("PgParticipantRepo")}
}

func (r *pgParticipantRepository) Add(ctx context.Context, q interfaces.DBTX, p *models.Participant) error {
	query := `INSERT INTO story_participants (story_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`
	logFields := []zap.Field{
		zap.String("storyID", p.StoryID.String()),
		zap.String("userID", p.UserID.String()),
		zap.String("role", string(p.Role)),
	}
	_, err := q.Exec(ctx, query, p.StoryID, p.UserID, p.Role, p.JoinedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // unique_violation: (story_id, user_id) pair exists
				r.logger.Warn("Participant already exists", logFields...)
				return interfaces.ErrAlreadyParticipant
			case "23503": // foreign_key_violation: story is gone
				r.logger.Warn("Story not found for participant insert", logFields...)
				return models.ErrNotFound
			}
		}
		r.logger.Error("Failed to add participant", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to add participant: %w", err)
	}
	r.logger.Info("Participant added", logFields...)
	return nil
}

func (r *pgParticipantRepository) Remove(ctx context.Context, q interfaces.DBTX, storyID, userID uuid.UUID) error {
	query := `DELETE FROM story_participants WHERE story_id = $1 AND user_id = $2`
	tag, err := q.Exec(ctx, query, storyID, userID)
	if err != nil {
		r.logger.Error("Failed to remove participant", zap.String("storyID", storyID.String()), zap.String("userID", userID.String()), zap.Error(err))
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	r.logger.Info("Participant removed", zap.String("storyID", storyID.String()), zap.String("userID", userID.String()))
	return nil
}

func (r *pgParticipantRepository) Get(ctx context.Context, q interfaces.DBTX, storyID, userID uuid.UUID) (*models.Participant, error) {
	query := `SELECT story_id, user_id, role, joined_at FROM story_participants WHERE story_id = $1 AND user_id = $2`
	var p models.Participant
	if err := pgxscan.Get(ctx, q, &p, query, storyID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get participant", zap.String("storyID", storyID.String()), zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return &p, nil
}

func (r *pgParticipantRepository) Exists(ctx context.Context, q interfaces.DBTX, storyID, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM story_participants WHERE story_id = $1 AND user_id = $2)`
	var exists bool
	if err := q.QueryRow(ctx, query, storyID, userID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check participant existence", zap.String("storyID", storyID.String()), zap.String("userID", userID.String()), zap.Error(err))
		return false, fmt.Errorf("failed to check participant existence: %w", err)
	}
	return exists, nil
}

// ListByStory returns participants in join order. The ordering is load-
// bearing: turn rotation is defined over exactly this sequence.
func (r *pgParticipantRepository) ListByStory(ctx context.Context, q interfaces.DBTX, storyID uuid.UUID) ([]*models.Participant, error) {
	query := `SELECT story_id, user_id, role, joined_at FROM story_participants WHERE story_id = $1 ORDER BY joined_at ASC, user_id ASC`
	participants := make([]*models.Participant, 0)
	if err := pgxscan.Select(ctx, q, &participants, query, storyID); err != nil {
		r.logger.Error("Failed to list participants", zap.String("storyID", storyID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return participants, nil
}

func (r *pgParticipantRepository) UpdateRole(ctx context.Context, q interfaces.DBTX, storyID, userID uuid.UUID, role models.ParticipantRole) error {
	query := `UPDATE story_participants SET role = $3 WHERE story_id = $1 AND user_id = $2`
	tag, err := q.Exec(ctx, query, storyID, userID, role)
	if err != nil {
		r.logger.Error("Failed to update participant role", zap.String("storyID", storyID.String()), zap.String("userID", userID.String()), zap.Error(err))
		return fmt.Errorf("failed to update participant role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
