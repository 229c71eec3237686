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
var _ interfaces.SegmentRepository = (*pgSegmentRepository)(nil)

const segmentFields = `id, story_id, user_id, turn, content, word_count, character_count, created_at`

type pgSegmentRepository struct {
	logger *zap.Logger
}

// NewPgSegmentRepository creates a PostgreSQL-backed SegmentRepository.
func NewPgSegmentRepository(logger *zap.Logger) interfaces.SegmentRepository {
	return &pgSegmentRepository{logger: logger.Named("PgSegmentRepo")}
}

func (r *pgSegmentRepository) Create(ctx context.Context, q interfaces.DBTX, segment *models.Segment) error {
	query := `INSERT INTO story_segments (` + segmentFields + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	logFields := []zap.Field{
		zap.String("segmentID", segment.ID.String()),
		zap.String("storyID", segment.StoryID.String()),
		zap.Int("turn", segment.Turn),
	}
	_, err := q.Exec(ctx, query,
		segment.ID, segment.StoryID, segment.UserID, segment.Turn,
		segment.Content, segment.WordCount, segment.CharacterCount, segment.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // unique_violation on (story_id, turn): a concurrent submit won the turn
				r.logger.Warn("Turn already consumed by a concurrent segment", logFields...)
				return models.ErrInvariantViolation
			case "23503": // foreign_key_violation: story is gone
				r.logger.Warn("Story not found for segment insert", logFields...)
				return models.ErrNotFound
			}
		}
		r.logger.Error("Failed to create segment", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to create segment: %w", err)
	}
	r.logger.Info("Segment created", logFields...)
	return nil
}

func (r *pgSegmentRepository) GetByID(ctx context.Context, q interfaces.DBTX, id uuid.UUID) (*models.Segment, error) {
	query := `SELECT ` + segmentFields + ` FROM story_segments WHERE id = $1`
	var segment models.Segment
	if err := pgxscan.Get(ctx, q, &segment, query, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get segment", zap.String("segmentID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get segment: %w", err)
	}
	return &segment, nil
}

func (r *pgSegmentRepository) ListByStory(ctx context.Context, q interfaces.DBTX, storyID uuid.UUID) ([]*models.Segment, error) {
	query := `SELECT ` + segmentFields + ` FROM story_segments WHERE story_id = $1 ORDER BY turn ASC`
	segments := make([]*models.Segment, 0)
	if err := pgxscan.Select(ctx, q, &segments, query, storyID); err != nil {
		r.logger.Error("Failed to list segments", zap.String("storyID", storyID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	return segments, nil
}

func (r *pgSegmentRepository) CountByStory(ctx context.Context, q interfaces.DBTX, storyID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM story_segments WHERE story_id = $1`
	var count int
	if err := q.QueryRow(ctx, query, storyID).Scan(&count); err != nil {
		r.logger.Error("Failed to count segments", zap.String("storyID", storyID.String()), zap.Error(err))
		return 0, fmt.Errorf("failed to count segments: %w", err)
	}
	return count, nil
}

func (r *pgSegmentRepository) UpdateContent(ctx context.Context, q interfaces.DBTX, id uuid.UUID, content string, wordCount, characterCount int) error {
	query := `UPDATE story_segments SET content = $2, word_count = $3, character_count = $4 WHERE id = $1`
	tag, err := q.Exec(ctx, query, id, content, wordCount, characterCount)
	if err != nil {
		r.logger.Error("Failed to update segment content", zap.String("segmentID", id.String()), zap.Error(err))
		return fmt.Errorf("failed to update segment content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	r.logger.Info("Segment content updated", zap.String("segmentID", id.String()))
	return nil
}
