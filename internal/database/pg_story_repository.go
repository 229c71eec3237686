package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fable-server/internal/interfaces"
	"fable-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check
var _ interfaces.StoryRepository = (*pgStoryRepository)(nil)

const storyFields = `id, title, description, genre, creator_id, author_id, word_limit, character_limit, max_segments, is_public, is_complete, is_edited, created_at, updated_at`

type pgStoryRepository struct {
	logger *zap.Logger
}

// NewPgStoryRepository creates a PostgreSQL-backed StoryRepository.
func NewPgStoryRepository(logger *zap.Logger) interfaces.StoryRepository {
	return &pgStoryRepository{logger: logger.Named("PgStoryRepo")}
}

func (r *pgStoryRepository) Create(ctx context.Context, q interfaces.DBTX, story *models.Story) error {
	query := `INSERT INTO stories (` + storyFields + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := q.Exec(ctx, query,
		story.ID, story.Title, story.Description, story.Genre,
		story.CreatorID, story.AuthorID, story.WordLimit, story.CharacterLimit,
		story.MaxSegments, story.IsPublic, story.IsComplete, story.IsEdited,
		story.CreatedAt, story.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create story", zap.String("storyID", story.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to create story: %w", err)
	}
	r.logger.Info("Story created", zap.String("storyID", story.ID.String()), zap.String("creatorID", story.CreatorID.String()))
	return nil
}

func (r *pgStoryRepository) GetByID(ctx context.Context, q interfaces.DBTX, id uuid.UUID) (*models.Story, error) {
	query := `SELECT ` + storyFields + ` FROM stories WHERE id = $1`
	var story models.Story
	err := pgxscan.Get(ctx, q, &story, query, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get story", zap.String("storyID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get story: %w", err)
	}
	return &story, nil
}

func (r *pgStoryRepository) UpdateMetadata(ctx context.Context, q interfaces.DBTX, id uuid.UUID, title, description, genre string) error {
	query := `UPDATE stories SET title = $2, description = $3, genre = $4, updated_at = NOW() WHERE id = $1`
	tag, err := q.Exec(ctx, query, id, title, description, genre)
	if err != nil {
		r.logger.Error("Failed to update story metadata", zap.String("storyID", id.String()), zap.Error(err))
		return fmt.Errorf("failed to update story metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgStoryRepository) UpdateAuthor(ctx context.Context, q interfaces.DBTX, id, authorID uuid.UUID) error {
	query := `UPDATE stories SET author_id = $2, updated_at = NOW() WHERE id = $1`
	tag, err := q.Exec(ctx, query, id, authorID)
	if err != nil {
		r.logger.Error("Failed to update story author", zap.String("storyID", id.String()), zap.Error(err))
		return fmt.Errorf("failed to update story author: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgStoryRepository) UpdateLimits(ctx context.Context, q interfaces.DBTX, id uuid.UUID, wordLimit, characterLimit int) error {
	query := `UPDATE stories SET word_limit = $2, character_limit = $3, updated_at = NOW() WHERE id = $1`
	tag, err := q.Exec(ctx, query, id, wordLimit, characterLimit)
	if err != nil {
		r.logger.Error("Failed to update story limits", zap.String("storyID", id.String()), zap.Error(err))
		return fmt.Errorf("failed to update story limits: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MarkComplete flips is_complete. The WHERE guard makes a repeated call
// report false instead of silently rewriting the row.
func (r *pgStoryRepository) MarkComplete(ctx context.Context, q interfaces.DBTX, id uuid.UUID) (bool, error) {
	query := `UPDATE stories SET is_complete = TRUE, updated_at = NOW() WHERE id = $1 AND is_complete = FALSE`
	tag, err := q.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to mark story complete", zap.String("storyID", id.String()), zap.Error(err))
		return false, fmt.Errorf("failed to mark story complete: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgStoryRepository) MarkEdited(ctx context.Context, q interfaces.DBTX, id uuid.UUID) error {
	query := `UPDATE stories SET is_edited = TRUE, updated_at = NOW() WHERE id = $1`
	tag, err := q.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to mark story edited", zap.String("storyID", id.String()), zap.Error(err))
		return fmt.Errorf("failed to mark story edited: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgStoryRepository) Delete(ctx context.Context, q interfaces.DBTX, id uuid.UUID) error {
	query := `DELETE FROM stories WHERE id = $1`
	tag, err := q.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete story", zap.String("storyID", id.String()), zap.Error(err))
		return fmt.Errorf("failed to delete story: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	r.logger.Info("Story deleted", zap.String("storyID", id.String()))
	return nil
}

func (r *pgStoryRepository) ListByParticipant(ctx context.Context, q interfaces.DBTX, userID uuid.UUID, cursor string, limit int) ([]*models.Story, string, error) {
	base := `SELECT s.` + strings.ReplaceAll(storyFields, ", ", ", s.") + `
	         FROM stories s
	         JOIN story_participants p ON p.story_id = s.id
	         WHERE p.user_id = $1`
	return r.list(ctx, q, base, []any{userID}, cursor, limit)
}

func (r *pgStoryRepository) ListPublic(ctx context.Context, q interfaces.DBTX, cursor string, limit int) ([]*models.Story, string, error) {
	base := `SELECT s.` + strings.ReplaceAll(storyFields, ", ", ", s.") + `
	         FROM stories s
	         WHERE s.is_public = TRUE AND s.is_complete = FALSE`
	return r.list(ctx, q, base, nil, cursor, limit)
}

func (r *pgStoryRepository) list(ctx context.Context, q interfaces.DBTX, base string, args []any, cursor string, limit int) ([]*models.Story, string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1 // one extra row to detect the next page

	cursorTime, cursorID, err := decodeCursor(cursor)
	if err != nil {
		r.logger.Warn("Failed to decode cursor", zap.String("cursor", cursor), zap.Error(err))
		return nil, "", interfaces.ErrInvalidCursor
	}

	var sb strings.Builder
	sb.WriteString(base)
	idx := len(args) + 1
	if !cursorTime.IsZero() {
		sb.WriteString(fmt.Sprintf(" AND (s.created_at, s.id) < ($%d, $%d)", idx, idx+1))
		args = append(args, cursorTime, cursorID)
		idx += 2
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY s.created_at DESC, s.id DESC LIMIT $%d", idx))
	args = append(args, fetchLimit)

	stories := make([]*models.Story, 0, fetchLimit)
	if err := pgxscan.Select(ctx, q, &stories, sb.String(), args...); err != nil {
		r.logger.Error("Failed to list stories", zap.Error(err))
		return nil, "", fmt.Errorf("failed to list stories: %w", err)
	}

	nextCursor := ""
	if len(stories) > limit {
		stories = stories[:limit]
		last := stories[len(stories)-1]
		nextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	return stories, nextCursor, nil
}
