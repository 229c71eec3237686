package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fable-server/internal/interfaces"
	"fable-server/internal/messaging"
	"fable-server/internal/models"
	"fable-server/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProposeEditParams carries a proposed retroactive change. SegmentID
// and ProposedContent apply to segment_content requests; the Proposed*
// metadata fields apply to story_metadata requests.
type ProposeEditParams struct {
	EditType            models.EditType
	SegmentID           *uuid.UUID
	ProposedContent     string
	ProposedTitle       string
	ProposedDescription string
	ProposedGenre       string
	Reason              string
}

// EditRequestService runs the proposal/approval workflow for
// retroactive edits. Any participant proposes; only the story's
// current author resolves. Approved edits mutate the stored segment or
// story in place and never touch the turn ledger.
type EditRequestService interface {
	Propose(ctx context.Context, storyID, requesterID uuid.UUID, params ProposeEditParams) (*models.EditRequest, error)
	Approve(ctx context.Context, requestID, approverID uuid.UUID) (*models.EditRequest, error)
	Deny(ctx context.Context, requestID, approverID uuid.UUID) (*models.EditRequest, error)
	ListPending(ctx context.Context, storyID, requesterID uuid.UUID) ([]*models.EditRequest, error)
}

type editRequestServiceImpl struct {
	db              interfaces.DBTX
	tx              interfaces.TxRunner
	storyRepo       interfaces.StoryRepository
	participantRepo interfaces.ParticipantRepository
	segmentRepo     interfaces.SegmentRepository
	editRepo        interfaces.EditRequestRepository
	notifier        messaging.NotificationPublisher
	logger          *zap.Logger
}

// NewEditRequestService creates a new instance of EditRequestService.
func NewEditRequestService(
	db interfaces.DBTX,
	tx interfaces.TxRunner,
	storyRepo interfaces.StoryRepository,
	participantRepo interfaces.ParticipantRepository,
	segmentRepo interfaces.SegmentRepository,
	editRepo interfaces.EditRequestRepository,
	notifier messaging.NotificationPublisher,
	logger *zap.Logger,
) EditRequestService {
	return &editRequestServiceImpl{
		db:              db,
		tx:              tx,
		storyRepo:       storyRepo,
		participantRepo: participantRepo,
		segmentRepo:     segmentRepo,
		editRepo:        editRepo,
		notifier:        notifier,
		logger:          logger.Named("EditRequestService"),
	}
}

// Propose records a pending edit request, snapshotting the current
// value of the target as the immutable original for later display.
func (s *editRequestServiceImpl) Propose(ctx context.Context, storyID, requesterID uuid.UUID, params ProposeEditParams) (*models.EditRequest, error) {
	log := s.logger.With(
		zap.String("storyID", storyID.String()),
		zap.String("requesterID", requesterID.String()),
	)

	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}
	isMember, err := s.participantRepo.Exists(ctx, s.db, storyID, requesterID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotAParticipant
	}

	req := &models.EditRequest{
		ID:          uuid.New(),
		StoryID:     storyID,
		RequesterID: requesterID,
		AuthorID:    story.AuthorID,
		EditType:    params.EditType,
		Reason:      params.Reason,
		Status:      models.EditStatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	switch params.EditType {
	case models.EditTypeSegmentContent:
		if params.SegmentID == nil {
			return nil, fmt.Errorf("%w: segment id is required", models.ErrInvalidInput)
		}
		if strings.TrimSpace(params.ProposedContent) == "" {
			return nil, fmt.Errorf("%w: proposed content is empty", models.ErrInvalidInput)
		}
		segment, err := s.segmentRepo.GetByID(ctx, s.db, *params.SegmentID)
		if err != nil {
			return nil, err
		}
		// A segment id from another story is a standing violation, not
		// a lookup miss.
		if segment.StoryID != storyID {
			return nil, models.ErrForbidden
		}
		req.Segment = &models.SegmentEdit{
			SegmentID:       segment.ID,
			OriginalContent: segment.Content,
			ProposedContent: params.ProposedContent,
		}
	case models.EditTypeStoryMetadata:
		if strings.TrimSpace(params.ProposedTitle) == "" {
			return nil, fmt.Errorf("%w: proposed title is empty", models.ErrInvalidInput)
		}
		req.Metadata = &models.MetadataEdit{
			OriginalTitle:       story.Title,
			OriginalDescription: story.Description,
			OriginalGenre:       story.Genre,
			ProposedTitle:       params.ProposedTitle,
			ProposedDescription: params.ProposedDescription,
			ProposedGenre:       params.ProposedGenre,
		}
	default:
		return nil, fmt.Errorf("%w: unknown edit type %q", models.ErrInvalidInput, params.EditType)
	}

	if err := s.editRepo.Create(ctx, s.db, req); err != nil {
		return nil, err
	}
	log.Info("Edit request proposed",
		zap.String("requestID", req.ID.String()),
		zap.String("editType", string(req.EditType)),
	)

	s.notifyResolution(req.AuthorID, messaging.TemplateEditRequestCreated, req)
	return req, nil
}

// Approve applies a pending request: flips it to approved, mutates the
// target and marks the story edited, all in one transaction. The
// approver must be the story's author at approval time, not at
// proposal time. First resolver wins; the second caller observes
// AlreadyResolved.
func (s *editRequestServiceImpl) Approve(ctx context.Context, requestID, approverID uuid.UUID) (*models.EditRequest, error) {
	log := s.logger.With(
		zap.String("requestID", requestID.String()),
		zap.String("approverID", approverID.String()),
	)

	var req *models.EditRequest

	err := s.tx.WithTx(ctx, func(q interfaces.DBTX) error {
		var err error
		req, err = s.editRepo.GetByID(ctx, q, requestID)
		if err != nil {
			return err
		}
		story, err := s.storyRepo.GetByID(ctx, q, req.StoryID)
		if err != nil {
			return err
		}
		if story.AuthorID != approverID {
			return models.ErrForbidden
		}

		resolved, err := s.editRepo.Resolve(ctx, q, requestID, models.EditStatusApproved)
		if err != nil {
			return err
		}
		if !resolved {
			return ErrAlreadyResolved
		}

		switch req.EditType {
		case models.EditTypeSegmentContent:
			content := req.Segment.ProposedContent
			err = s.segmentRepo.UpdateContent(ctx, q, req.Segment.SegmentID, content,
				utils.CountWords(content), utils.CountCharacters(content))
		case models.EditTypeStoryMetadata:
			err = s.storyRepo.UpdateMetadata(ctx, q, req.StoryID,
				req.Metadata.ProposedTitle, req.Metadata.ProposedDescription, req.Metadata.ProposedGenre)
		default:
			return fmt.Errorf("edit request %s has unknown type %q: %w",
				req.ID, req.EditType, models.ErrInvariantViolation)
		}
		if err != nil {
			return err
		}
		return s.storyRepo.MarkEdited(ctx, q, req.StoryID)
	})
	if err != nil {
		return nil, err
	}

	req.Status = models.EditStatusApproved
	now := time.Now().UTC()
	req.ResolvedAt = &now

	log.Info("Edit request approved", zap.String("editType", string(req.EditType)))
	s.notifyResolution(req.RequesterID, messaging.TemplateEditRequestResolved, req)
	return req, nil
}

// Deny resolves a pending request without mutating anything.
func (s *editRequestServiceImpl) Deny(ctx context.Context, requestID, approverID uuid.UUID) (*models.EditRequest, error) {
	log := s.logger.With(
		zap.String("requestID", requestID.String()),
		zap.String("approverID", approverID.String()),
	)

	var req *models.EditRequest

	err := s.tx.WithTx(ctx, func(q interfaces.DBTX) error {
		var err error
		req, err = s.editRepo.GetByID(ctx, q, requestID)
		if err != nil {
			return err
		}
		story, err := s.storyRepo.GetByID(ctx, q, req.StoryID)
		if err != nil {
			return err
		}
		if story.AuthorID != approverID {
			return models.ErrForbidden
		}
		resolved, err := s.editRepo.Resolve(ctx, q, requestID, models.EditStatusDenied)
		if err != nil {
			return err
		}
		if !resolved {
			return ErrAlreadyResolved
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	req.Status = models.EditStatusDenied
	now := time.Now().UTC()
	req.ResolvedAt = &now

	log.Info("Edit request denied")
	s.notifyResolution(req.RequesterID, messaging.TemplateEditRequestResolved, req)
	return req, nil
}

func (s *editRequestServiceImpl) ListPending(ctx context.Context, storyID, requesterID uuid.UUID) ([]*models.EditRequest, error) {
	isMember, err := s.participantRepo.Exists(ctx, s.db, storyID, requesterID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotAParticipant
	}
	return s.editRepo.ListPendingByStory(ctx, s.db, storyID)
}

func (s *editRequestServiceImpl) notifyResolution(recipientID uuid.UUID, templateID string, req *models.EditRequest) {
	go func() {
		nctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		recipient := recipientID
		payload := messaging.NotificationPayload{
			RecipientID: &recipient,
			TemplateID:  templateID,
			Data: map[string]any{
				"request_id": req.ID.String(),
				"story_id":   req.StoryID.String(),
				"edit_type":  string(req.EditType),
				"status":     string(req.Status),
			},
		}
		if err := s.notifier.PublishNotification(nctx, payload); err != nil {
			s.logger.Warn("Failed to publish edit request notification",
				zap.String("requestID", req.ID.String()),
				zap.Error(err),
			)
		}
	}()
}
