package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fable-server/internal/interfaces"
	"fable-server/internal/messaging"
	"fable-server/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateStoryParams carries the caller-supplied fields for a new story.
type CreateStoryParams struct {
	Title          string
	Description    string
	Genre          string
	WordLimit      int
	CharacterLimit int
	MaxSegments    int
	IsPublic       bool
}

// StoryDetail bundles a story with its membership and content for display.
type StoryDetail struct {
	Story        *models.Story         `json:"story"`
	Participants []*models.Participant `json:"participants"`
	Segments     []*models.Segment     `json:"segments"`
	Turn         *models.Turn          `json:"turn"`
	Progress     int                   `json:"progress"`
}

// StoryService owns story lifecycle transitions and participant
// membership: creation, completion, burning, limit/title updates,
// direct joins and leaves.
type StoryService interface {
	CreateStory(ctx context.Context, creatorID uuid.UUID, params CreateStoryParams) (*models.Story, error)
	GetStoryDetail(ctx context.Context, storyID, userID uuid.UUID) (*StoryDetail, error)
	ListMyStories(ctx context.Context, userID uuid.UUID, cursor string, limit int) ([]*models.Story, string, error)
	ListPublicStories(ctx context.Context, cursor string, limit int) ([]*models.Story, string, error)
	UpdateMetadata(ctx context.Context, storyID, requesterID uuid.UUID, title, description, genre string) error
	UpdateLimits(ctx context.Context, storyID, requesterID uuid.UUID, wordLimit, characterLimit int) error
	TransferAuthorship(ctx context.Context, storyID, requesterID, newAuthorID uuid.UUID) error
	CompleteStory(ctx context.Context, storyID, requesterID uuid.UUID) error
	BurnStory(ctx context.Context, storyID, requesterID uuid.UUID) error
	JoinStory(ctx context.Context, storyID, userID uuid.UUID) (*models.Participant, error)
	LeaveStory(ctx context.Context, storyID, userID uuid.UUID) error
	ListParticipants(ctx context.Context, storyID, requesterID uuid.UUID) ([]*models.Participant, error)
}

type storyServiceImpl struct {
	db              interfaces.DBTX
	tx              interfaces.TxRunner
	storyRepo       interfaces.StoryRepository
	participantRepo interfaces.ParticipantRepository
	turnRepo        interfaces.TurnRepository
	segmentRepo     interfaces.SegmentRepository
	userRepo        interfaces.UserRepository
	notifier        messaging.NotificationPublisher
	logger          *zap.Logger
}

// NewStoryService creates a new instance of StoryService.
func NewStoryService(
	db interfaces.DBTX,
	tx interfaces.TxRunner,
	storyRepo interfaces.StoryRepository,
	participantRepo interfaces.ParticipantRepository,
	turnRepo interfaces.TurnRepository,
	segmentRepo interfaces.SegmentRepository,
	userRepo interfaces.UserRepository,
	notifier messaging.NotificationPublisher,
	logger *zap.Logger,
) StoryService {
	return &storyServiceImpl{
		db:              db,
		tx:              tx,
		storyRepo:       storyRepo,
		participantRepo: participantRepo,
		turnRepo:        turnRepo,
		segmentRepo:     segmentRepo,
		userRepo:        userRepo,
		notifier:        notifier,
		logger:          logger.Named("StoryService"),
	}
}

// CreateStory creates the story, its author participant and the turn
// ledger initialized to (1, creator) as one atomic unit.
func (s *storyServiceImpl) CreateStory(ctx context.Context, creatorID uuid.UUID, params CreateStoryParams) (*models.Story, error) {
	log := s.logger.With(zap.String("creatorID", creatorID.String()))

	if strings.TrimSpace(params.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", models.ErrInvalidInput)
	}
	if params.WordLimit < 1 {
		return nil, fmt.Errorf("%w: word limit must be positive", models.ErrInvalidInput)
	}
	if params.CharacterLimit < 0 {
		return nil, fmt.Errorf("%w: character limit cannot be negative", models.ErrInvalidInput)
	}
	if params.MaxSegments < 0 {
		return nil, fmt.Errorf("%w: max segments cannot be negative", models.ErrInvalidInput)
	}

	now := time.Now().UTC()
	story := &models.Story{
		ID:             uuid.New(),
		Title:          strings.TrimSpace(params.Title),
		Description:    params.Description,
		Genre:          params.Genre,
		CreatorID:      creatorID,
		AuthorID:       creatorID,
		WordLimit:      params.WordLimit,
		CharacterLimit: params.CharacterLimit,
		MaxSegments:    params.MaxSegments,
		IsPublic:       params.IsPublic,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.tx.WithTx(ctx, func(q interfaces.DBTX) error {
		if err := s.storyRepo.Create(ctx, q, story); err != nil {
			return fmt.Errorf("failed to create story: %w", err)
		}
		author := &models.Participant{
			StoryID:  story.ID,
			UserID:   creatorID,
			Role:     models.RoleAuthor,
			JoinedAt: now,
		}
		if err := s.participantRepo.Add(ctx, q, author); err != nil {
			return fmt.Errorf("failed to add author participant: %w", err)
		}
		turn := &models.Turn{
			StoryID:       story.ID,
			CurrentTurn:   1,
			CurrentUserID: creatorID,
			UpdatedAt:     now,
		}
		if err := s.turnRepo.Create(ctx, q, turn); err != nil {
			return fmt.Errorf("failed to initialize turn ledger: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to create story", zap.Error(err))
		return nil, err
	}

	log.Info("Story created", zap.String("storyID", story.ID.String()))
	return story, nil
}

func (s *storyServiceImpl) GetStoryDetail(ctx context.Context, storyID, userID uuid.UUID) (*StoryDetail, error) {
	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}
	// Non-participants may view public stories only.
	isMember, err := s.participantRepo.Exists(ctx, s.db, storyID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember && !story.IsPublic {
		return nil, models.ErrForbidden
	}

	participants, err := s.participantRepo.ListByStory(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}
	segments, err := s.segmentRepo.ListByStory(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}
	turn, err := s.turnRepo.Get(ctx, s.db, storyID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// A story without its ledger is corrupted state, not a 404.
			s.logger.Error("Story exists but turn ledger is missing",
				zap.String("storyID", storyID.String()))
			return nil, models.ErrInvariantViolation
		}
		return nil, err
	}

	return &StoryDetail{
		Story:        story,
		Participants: participants,
		Segments:     segments,
		Turn:         turn,
		Progress:     story.Progress(len(segments)),
	}, nil
}

func (s *storyServiceImpl) ListMyStories(ctx context.Context, userID uuid.UUID, cursor string, limit int) ([]*models.Story, string, error) {
	return s.storyRepo.ListByParticipant(ctx, s.db, userID, cursor, limit)
}

func (s *storyServiceImpl) ListPublicStories(ctx context.Context, cursor string, limit int) ([]*models.Story, string, error) {
	return s.storyRepo.ListPublic(ctx, s.db, cursor, limit)
}

// UpdateMetadata rewrites title/description/genre. Creator-only.
func (s *storyServiceImpl) UpdateMetadata(ctx context.Context, storyID, requesterID uuid.UUID, title, description, genre string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", models.ErrInvalidInput)
	}
	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		return err
	}
	if story.CreatorID != requesterID {
		return models.ErrForbidden
	}
	return s.storyRepo.UpdateMetadata(ctx, s.db, storyID, strings.TrimSpace(title), description, genre)
}

// UpdateLimits rewrites the word/character limits. Creator-only; takes
// effect for the next submitted segment only; existing segments are
// never re-validated.
func (s *storyServiceImpl) UpdateLimits(ctx context.Context, storyID, requesterID uuid.UUID, wordLimit, characterLimit int) error {
	if wordLimit < 1 {
		return fmt.Errorf("%w: word limit must be positive", models.ErrInvalidInput)
	}
	if characterLimit < 0 {
		return fmt.Errorf("%w: character limit cannot be negative", models.ErrInvalidInput)
	}
	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		return err
	}
	if story.CreatorID != requesterID {
		return models.ErrForbidden
	}
	return s.storyRepo.UpdateLimits(ctx, s.db, storyID, wordLimit, characterLimit)
}

// TransferAuthorship hands edit-approval authority to another
// participant. Only the current author may transfer it; pending edit
// requests fall under the new author immediately, since approval
// re-checks authorship at resolution time.
func (s *storyServiceImpl) TransferAuthorship(ctx context.Context, storyID, requesterID, newAuthorID uuid.UUID) error {
	log := s.logger.With(
		zap.String("storyID", storyID.String()),
		zap.String("requesterID", requesterID.String()),
		zap.String("newAuthorID", newAuthorID.String()),
	)

	err := s.tx.WithTx(ctx, func(q interfaces.DBTX) error {
		story, err := s.storyRepo.GetByID(ctx, q, storyID)
		if err != nil {
			return err
		}
		if story.AuthorID != requesterID {
			return models.ErrForbidden
		}
		if newAuthorID == requesterID {
			return fmt.Errorf("%w: story author is already %s", models.ErrInvalidInput, newAuthorID)
		}
		isMember, err := s.participantRepo.Exists(ctx, q, storyID, newAuthorID)
		if err != nil {
			return err
		}
		if !isMember {
			return ErrNotAParticipant
		}
		if err := s.storyRepo.UpdateAuthor(ctx, q, storyID, newAuthorID); err != nil {
			return err
		}
		if err := s.participantRepo.UpdateRole(ctx, q, storyID, requesterID, models.RoleParticipant); err != nil {
			return err
		}
		return s.participantRepo.UpdateRole(ctx, q, storyID, newAuthorID, models.RoleAuthor)
	})
	if err != nil {
		return err
	}
	log.Info("Authorship transferred")
	return nil
}

// CompleteStory marks the story complete. Any participant may do this.
// The ledger row is locked first so completion serializes with in-flight
// submissions; a segment admitted under the lock is always committed
// before the completion lands. A repeat call reports ErrAlreadyComplete
// rather than silently succeeding, to surface client bugs.
func (s *storyServiceImpl) CompleteStory(ctx context.Context, storyID, requesterID uuid.UUID) error {
	log := s.logger.With(zap.String("storyID", storyID.String()), zap.String("requesterID", requesterID.String()))

	var segmentCount int
	err := s.tx.WithTx(ctx, func(q interfaces.DBTX) error {
		if _, err := s.turnRepo.GetForUpdate(ctx, q, storyID); err != nil {
			return err
		}
		isMember, err := s.participantRepo.Exists(ctx, q, storyID, requesterID)
		if err != nil {
			return err
		}
		if !isMember {
			return ErrNotAParticipant
		}
		changed, err := s.storyRepo.MarkComplete(ctx, q, storyID)
		if err != nil {
			return err
		}
		if !changed {
			return ErrAlreadyComplete
		}
		segmentCount, err = s.segmentRepo.CountByStory(ctx, q, storyID)
		return err
	})
	if err != nil {
		return err
	}
	log.Info("Story completed", zap.Int("segments", segmentCount))

	s.notifyParticipants(storyID, messaging.TemplateStoryCompleted, map[string]any{
		"story_id":     storyID.String(),
		"completed_by": requesterID.String(),
		"segments":     segmentCount,
	})
	return nil
}

// BurnStory destroys the story and everything attached to it.
// Creator-only. The farewell mail-out carrying the full story text is
// best-effort: collected before commit, published after, and a failure
// there never propagates as a deletion error.
func (s *storyServiceImpl) BurnStory(ctx context.Context, storyID, requesterID uuid.UUID) error {
	log := s.logger.With(zap.String("storyID", storyID.String()), zap.String("requesterID", requesterID.String()))

	var story *models.Story
	var participants []*models.Participant
	var farewell []messaging.BurnedStorySegment

	err := s.tx.WithTx(ctx, func(q interfaces.DBTX) error {
		var err error
		story, err = s.storyRepo.GetByID(ctx, q, storyID)
		if err != nil {
			return err
		}
		if story.CreatorID != requesterID {
			return models.ErrForbidden
		}
		// Serialize against in-flight submissions for the same story.
		if _, err := s.turnRepo.GetForUpdate(ctx, q, storyID); err != nil {
			return err
		}
		participants, err = s.participantRepo.ListByStory(ctx, q, storyID)
		if err != nil {
			return err
		}
		segments, err := s.segmentRepo.ListByStory(ctx, q, storyID)
		if err != nil {
			return err
		}
		farewell = make([]messaging.BurnedStorySegment, 0, len(segments))
		for _, seg := range segments {
			farewell = append(farewell, messaging.BurnedStorySegment{
				Turn:    seg.Turn,
				Author:  seg.UserID.String(),
				Content: seg.Content,
			})
		}
		return s.storyRepo.Delete(ctx, q, storyID)
	})
	if err != nil {
		return err
	}
	log.Info("Story burned", zap.Int("participants", len(participants)))

	go func() {
		nctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		data := map[string]any{
			"story_id": storyID.String(),
			"title":    story.Title,
			"prompt":   story.Description,
			"segments": farewell,
		}
		for _, p := range participants {
			recipient := p.UserID
			payload := messaging.NotificationPayload{
				RecipientID: &recipient,
				TemplateID:  messaging.TemplateStoryBurned,
				Data:        data,
			}
			if err := s.notifier.PublishNotification(nctx, payload); err != nil {
				s.logger.Warn("Failed to publish burn notification",
					zap.String("storyID", storyID.String()),
					zap.String("recipientID", recipient.String()),
					zap.Error(err),
				)
			}
		}
	}()
	return nil
}

// JoinStory is the direct self-join path for publicly joinable stories.
func (s *storyServiceImpl) JoinStory(ctx context.Context, storyID, userID uuid.UUID) (*models.Participant, error) {
	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}
	if !story.IsPublic {
		return nil, ErrStoryNotJoinable
	}
	if story.IsComplete {
		return nil, ErrStoryClosed
	}

	p := &models.Participant{
		StoryID:  storyID,
		UserID:   userID,
		Role:     models.RoleParticipant,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.participantRepo.Add(ctx, s.db, p); err != nil {
		return nil, err
	}
	s.logger.Info("User joined story", zap.String("storyID", storyID.String()), zap.String("userID", userID.String()))
	return p, nil
}

// LeaveStory removes a participant. The creator can never leave, and
// neither can the current turn holder. The removal check runs inside
// the same transaction that locks the ledger, so a leave racing a
// submission can never orphan the turn.
func (s *storyServiceImpl) LeaveStory(ctx context.Context, storyID, userID uuid.UUID) error {
	log := s.logger.With(zap.String("storyID", storyID.String()), zap.String("userID", userID.String()))

	err := s.tx.WithTx(ctx, func(q interfaces.DBTX) error {
		story, err := s.storyRepo.GetByID(ctx, q, storyID)
		if err != nil {
			return err
		}
		// The creator check precedes the turn check: the creator gets
		// Forbidden even while holding the turn.
		if story.CreatorID == userID {
			return models.ErrForbidden
		}
		turn, err := s.turnRepo.GetForUpdate(ctx, q, storyID)
		if err != nil {
			return err
		}
		if turn.CurrentUserID == userID {
			return ErrTurnConflict
		}
		if err := s.participantRepo.Remove(ctx, q, storyID, userID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return ErrNotAParticipant
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Info("Participant left story")
	return nil
}

func (s *storyServiceImpl) ListParticipants(ctx context.Context, storyID, requesterID uuid.UUID) ([]*models.Participant, error) {
	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}
	if !story.IsPublic {
		isMember, err := s.participantRepo.Exists(ctx, s.db, storyID, requesterID)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, models.ErrForbidden
		}
	}
	return s.participantRepo.ListByStory(ctx, s.db, storyID)
}

// notifyParticipants fans a notification out to every current
// participant, outside any transaction and without awaiting delivery.
func (s *storyServiceImpl) notifyParticipants(storyID uuid.UUID, templateID string, data map[string]any) {
	go func() {
		nctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		participants, err := s.participantRepo.ListByStory(nctx, s.db, storyID)
		if err != nil {
			s.logger.Warn("Failed to list participants for notification",
				zap.String("storyID", storyID.String()), zap.Error(err))
			return
		}
		for _, p := range participants {
			recipient := p.UserID
			payload := messaging.NotificationPayload{
				RecipientID: &recipient,
				TemplateID:  templateID,
				Data:        data,
			}
			if err := s.notifier.PublishNotification(nctx, payload); err != nil {
				s.logger.Warn("Failed to publish notification",
					zap.String("templateID", templateID),
					zap.String("recipientID", recipient.String()),
					zap.Error(err),
				)
			}
		}
	}()
}
