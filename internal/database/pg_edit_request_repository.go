package database

import (
	"context"
	"errors"
	"fmt"

	"fable-server/internal/interfaces"
	"fable-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Compile-time check
var _ interfaces.EditRequestRepository = (*pgEditRequestRepository)(nil)

const editRequestFields = `id, story_id, requester_id, author_id, edit_type, segment_id,
	original_content, proposed_content,
	original_title, original_description, original_genre,
	proposed_title, proposed_description, proposed_genre,
	reason, status, created_at, resolved_at`

type pgEditRequestRepository struct {
	logger *zap.Logger
}

// NewPgEditRequestRepository creates a PostgreSQL-backed EditRequestRepository.
func NewPgEditRequestRepository(logger *zap.Logger) interfaces.EditRequestRepository {
	return &pgEditRequestRepository{logger: logger.Named("PgEditRequestRepo")}
}

func (r *pgEditRequestRepository) Create(ctx context.Context, q interfaces.DBTX, req *models.EditRequest) error {
	query := `INSERT INTO edit_requests (` + editRequestFields + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	// Flatten the tagged variant into nullable columns.
	var segmentID *uuid.UUID
	var originalContent, proposedContent *string
	var origTitle, origDesc, origGenre, propTitle, propDesc, propGenre *string
	switch req.EditType {
	case models.EditTypeSegmentContent:
		segmentID = &req.Segment.SegmentID
		originalContent = &req.Segment.OriginalContent
		proposedContent = &req.Segment.ProposedContent
	case models.EditTypeStoryMetadata:
		origTitle = &req.Metadata.OriginalTitle
		origDesc = &req.Metadata.OriginalDescription
		origGenre = &req.Metadata.OriginalGenre
		propTitle = &req.Metadata.ProposedTitle
		propDesc = &req.Metadata.ProposedDescription
		propGenre = &req.Metadata.ProposedGenre
	}

	_, err := q.Exec(ctx, query,
		req.ID, req.StoryID, req.RequesterID, req.AuthorID, req.EditType, segmentID,
		originalContent, proposedContent,
		origTitle, origDesc, origGenre,
		propTitle, propDesc, propGenre,
		req.Reason, req.Status, req.CreatedAt, req.ResolvedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			r.logger.Warn("Story or segment not found for edit request", zap.String("requestID", req.ID.String()))
			return models.ErrNotFound
		}
		r.logger.Error("Failed to create edit request", zap.String("requestID", req.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to create edit request: %w", err)
	}
	r.logger.Info("Edit request created",
		zap.String("requestID", req.ID.String()),
		zap.String("storyID", req.StoryID.String()),
		zap.String("editType", string(req.EditType)),
	)
	return nil
}

func (r *pgEditRequestRepository) GetByID(ctx context.Context, q interfaces.DBTX, id uuid.UUID) (*models.EditRequest, error) {
	query := `SELECT ` + editRequestFields + ` FROM edit_requests WHERE id = $1`
	req, err := scanEditRequest(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get edit request", zap.String("requestID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get edit request: %w", err)
	}
	return req, nil
}

// Resolve flips a pending request into a terminal status. The status
// guard in the WHERE clause is the serialization point for concurrent
// approve/deny attempts: first writer wins, the rest see false.
func (r *pgEditRequestRepository) Resolve(ctx context.Context, q interfaces.DBTX, id uuid.UUID, status models.EditRequestStatus) (bool, error) {
	query := `UPDATE edit_requests SET status = $2, resolved_at = NOW() WHERE id = $1 AND status = 'pending'`
	tag, err := q.Exec(ctx, query, id, status)
	if err != nil {
		r.logger.Error("Failed to resolve edit request", zap.String("requestID", id.String()), zap.Error(err))
		return false, fmt.Errorf("failed to resolve edit request: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgEditRequestRepository) ListPendingByStory(ctx context.Context, q interfaces.DBTX, storyID uuid.UUID) ([]*models.EditRequest, error) {
	query := `SELECT ` + editRequestFields + ` FROM edit_requests WHERE story_id = $1 AND status = 'pending' ORDER BY created_at ASC`
	rows, err := q.Query(ctx, query, storyID)
	if err != nil {
		r.logger.Error("Failed to list pending edit requests", zap.String("storyID", storyID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list pending edit requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*models.EditRequest, 0)
	for rows.Next() {
		req, err := scanEditRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edit request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read edit request rows: %w", err)
	}
	return requests, nil
}

// scanEditRequest reassembles the tagged variant from its flattened columns.
func scanEditRequest(row pgx.Row) (*models.EditRequest, error) {
	var req models.EditRequest
	var segmentID *uuid.UUID
	var originalContent, proposedContent *string
	var origTitle, origDesc, origGenre, propTitle, propDesc, propGenre *string

	err := row.Scan(
		&req.ID, &req.StoryID, &req.RequesterID, &req.AuthorID, &req.EditType, &segmentID,
		&originalContent, &proposedContent,
		&origTitle, &origDesc, &origGenre,
		&propTitle, &propDesc, &propGenre,
		&req.Reason, &req.Status, &req.CreatedAt, &req.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}

	switch req.EditType {
	case models.EditTypeSegmentContent:
		if segmentID == nil || originalContent == nil || proposedContent == nil {
			return nil, fmt.Errorf("edit request %s: segment payload columns are null: %w", req.ID, models.ErrInvariantViolation)
		}
		req.Segment = &models.SegmentEdit{
			SegmentID:       *segmentID,
			OriginalContent: *originalContent,
			ProposedContent: *proposedContent,
		}
	case models.EditTypeStoryMetadata:
		if origTitle == nil || propTitle == nil {
			return nil, fmt.Errorf("edit request %s: metadata payload columns are null: %w", req.ID, models.ErrInvariantViolation)
		}
		req.Metadata = &models.MetadataEdit{
			OriginalTitle:       *origTitle,
			OriginalDescription: deref(origDesc),
			OriginalGenre:       deref(origGenre),
			ProposedTitle:       *propTitle,
			ProposedDescription: deref(propDesc),
			ProposedGenre:       deref(propGenre),
		}
	default:
		return nil, fmt.Errorf("edit request %s: unknown edit type %q: %w", req.ID, req.EditType, models.ErrInvariantViolation)
	}
	return &req, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
