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
	"go.uber.org/zap"
)

// Compile-time check
var _ interfaces.TurnRepository = (*pgTurnRepository)(nil)

type pgTurnRepository struct {
	logger *zap.Logger
}

// NewPgTurnRepository creates a PostgreSQL-backed TurnRepository.
func NewPgTurnRepository(logger *zap.Logger) interfaces.TurnRepository {
	return &pgTurnRepository{logger: logger.Named("PgTurnRepo")}
}

func (r *pgTurnRepository) Create(ctx context.Context, q interfaces.DBTX, turn *models.Turn) error {
	query := `INSERT INTO story_turns (story_id, current_turn, current_user_id, updated_at) VALUES ($1, $2, $3, $4)`
	_, err := q.Exec(ctx, query, turn.StoryID, turn.CurrentTurn, turn.CurrentUserID, turn.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create turn ledger", zap.String("storyID", turn.StoryID.String()), zap.Error(err))
		return fmt.Errorf("failed to create turn ledger: %w", err)
	}
	return nil
}

func (r *pgTurnRepository) Get(ctx context.Context, q interfaces.DBTX, storyID uuid.UUID) (*models.Turn, error) {
	return r.get(ctx, q, storyID, false)
}

// GetForUpdate takes a row-level lock on the ledger. All turn-dependent
// mutations for one story serialize on this lock.
func (r *pgTurnRepository) GetForUpdate(ctx context.Context, q interfaces.DBTX, storyID uuid.UUID) (*models.Turn, error) {
	return r.get(ctx, q, storyID, true)
}

func (r *pgTurnRepository) get(ctx context.Context, q interfaces.DBTX, storyID uuid.UUID, forUpdate bool) (*models.Turn, error) {
	query := `SELECT story_id, current_turn, current_user_id, updated_at FROM story_turns WHERE story_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var turn models.Turn
	if err := pgxscan.Get(ctx, q, &turn, query, storyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get turn ledger", zap.String("storyID", storyID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get turn ledger: %w", err)
	}
	return &turn, nil
}

func (r *pgTurnRepository) Advance(ctx context.Context, q interfaces.DBTX, storyID uuid.UUID, nextTurn int, nextUserID uuid.UUID) error {
	query := `UPDATE story_turns SET current_turn = $2, current_user_id = $3, updated_at = NOW() WHERE story_id = $1`
	tag, err := q.Exec(ctx, query, storyID, nextTurn, nextUserID)
	if err != nil {
		r.logger.Error("Failed to advance turn ledger", zap.String("storyID", storyID.String()), zap.Error(err))
		return fmt.Errorf("failed to advance turn ledger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	r.logger.Debug("Turn ledger advanced",
		zap.String("storyID", storyID.String()),
		zap.Int("currentTurn", nextTurn),
		zap.String("currentUserID", nextUserID.String()),
	)
	return nil
}
