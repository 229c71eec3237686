package service

import (
	"context"
	"time"

	"fable-server/internal/interfaces"
	"fable-server/internal/messaging"
	"fable-server/internal/models"
	"fable-server/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SegmentService is the admission path for story content: it validates
// a contribution against membership, turn ownership and story limits,
// records it, and advances the turn, all in one transaction.
type SegmentService interface {
	Submit(ctx context.Context, storyID, userID uuid.UUID, content string) (*models.Segment, error)
	Skip(ctx context.Context, storyID, requesterID uuid.UUID) (*models.Turn, error)
	ListSegments(ctx context.Context, storyID, userID uuid.UUID) ([]*models.Segment, error)
	CurrentTurn(ctx context.Context, storyID, userID uuid.UUID) (*models.Turn, error)
}

type segmentServiceImpl struct {
	db              interfaces.DBTX
	tx              interfaces.TxRunner
	storyRepo       interfaces.StoryRepository
	participantRepo interfaces.ParticipantRepository
	turnRepo        interfaces.TurnRepository
	segmentRepo     interfaces.SegmentRepository
	notifier        messaging.NotificationPublisher
	logger          *zap.Logger
}

// NewSegmentService creates a new instance of SegmentService.
func NewSegmentService(
	db interfaces.DBTX,
	tx interfaces.TxRunner,
	storyRepo interfaces.StoryRepository,
	participantRepo interfaces.ParticipantRepository,
	turnRepo interfaces.TurnRepository,
	segmentRepo interfaces.SegmentRepository,
	notifier messaging.NotificationPublisher,
	logger *zap.Logger,
) SegmentService {
	return &segmentServiceImpl{
		db:              db,
		tx:              tx,
		storyRepo:       storyRepo,
		participantRepo: participantRepo,
		turnRepo:        turnRepo,
		segmentRepo:     segmentRepo,
		notifier:        notifier,
		logger:          logger.Named("SegmentService"),
	}
}

// Submit admits a contribution. Word and character counts are computed
// here from the content, never trusted from the caller. The ledger row
// is locked for the whole check sequence, so two concurrent submissions
// against the same story serialize and the loser fails the turn check.
func (s *segmentServiceImpl) Submit(ctx context.Context, storyID, userID uuid.UUID, content string) (*models.Segment, error) {
	log := s.logger.With(
		zap.String("storyID", storyID.String()),
		zap.String("userID", userID.String()),
	)

	var segment *models.Segment
	var nextHolderID uuid.UUID
	var nextTurn int

	err := s.tx.WithTx(ctx, func(q interfaces.DBTX) error {
		// Lock before reading the story: completion and burn take the
		// same lock, so the closed check below always sees a completion
		// that committed before us.
		turn, err := s.turnRepo.GetForUpdate(ctx, q, storyID)
		if err != nil {
			return err
		}
		story, err := s.storyRepo.GetByID(ctx, q, storyID)
		if err != nil {
			return err
		}
		if story.IsComplete {
			return ErrStoryClosed
		}

		participants, err := s.participantRepo.ListByStory(ctx, q, storyID)
		if err != nil {
			return err
		}
		if !containsUser(participants, userID) {
			return ErrNotAParticipant
		}
		if turn.CurrentUserID != userID {
			return ErrNotYourTurn
		}

		wordCount := utils.CountWords(content)
		characterCount := utils.CountCharacters(content)
		if wordCount < 1 || characterCount < 1 {
			return ErrEmptySegment
		}
		if wordCount > story.WordLimit {
			return ErrWordLimitExceeded
		}
		if story.CharacterLimit > 0 && characterCount > story.CharacterLimit {
			return ErrCharacterLimitExceeded
		}

		segment = &models.Segment{
			ID:             uuid.New(),
			StoryID:        storyID,
			UserID:         userID,
			Turn:           turn.CurrentTurn,
			Content:        content,
			WordCount:      wordCount,
			CharacterCount: characterCount,
			CreatedAt:      time.Now().UTC(),
		}
		if err := s.segmentRepo.Create(ctx, q, segment); err != nil {
			return err
		}

		next, err := nextHolder(participants, turn.CurrentUserID)
		if err != nil {
			return err
		}
		nextHolderID = next
		nextTurn = turn.CurrentTurn + 1
		return s.turnRepo.Advance(ctx, q, storyID, nextTurn, nextHolderID)
	})
	if err != nil {
		return nil, err
	}

	log.Info("Segment admitted",
		zap.Int("turn", segment.Turn),
		zap.String("nextHolderID", nextHolderID.String()),
	)
	s.notifyTurnAdvanced(storyID, nextHolderID, nextTurn)
	return segment, nil
}

// Skip passes the current turn without recording a segment. Allowed
// for the current holder or the story's author; anyone else is
// Forbidden.
func (s *segmentServiceImpl) Skip(ctx context.Context, storyID, requesterID uuid.UUID) (*models.Turn, error) {
	log := s.logger.With(
		zap.String("storyID", storyID.String()),
		zap.String("requesterID", requesterID.String()),
	)

	var advanced *models.Turn

	err := s.tx.WithTx(ctx, func(q interfaces.DBTX) error {
		// Same lock-then-read ordering as Submit.
		turn, err := s.turnRepo.GetForUpdate(ctx, q, storyID)
		if err != nil {
			return err
		}
		story, err := s.storyRepo.GetByID(ctx, q, storyID)
		if err != nil {
			return err
		}
		if story.IsComplete {
			return ErrStoryClosed
		}
		if requesterID != turn.CurrentUserID && requesterID != story.AuthorID {
			return models.ErrForbidden
		}

		participants, err := s.participantRepo.ListByStory(ctx, q, storyID)
		if err != nil {
			return err
		}
		next, err := nextHolder(participants, turn.CurrentUserID)
		if err != nil {
			return err
		}

		advanced = &models.Turn{
			StoryID:       storyID,
			CurrentTurn:   turn.CurrentTurn + 1,
			CurrentUserID: next,
			UpdatedAt:     time.Now().UTC(),
		}
		return s.turnRepo.Advance(ctx, q, storyID, advanced.CurrentTurn, next)
	})
	if err != nil {
		return nil, err
	}

	log.Info("Turn skipped",
		zap.Int("turn", advanced.CurrentTurn),
		zap.String("nextHolderID", advanced.CurrentUserID.String()),
	)
	s.notifyTurnAdvanced(storyID, advanced.CurrentUserID, advanced.CurrentTurn)
	return advanced, nil
}

func (s *segmentServiceImpl) ListSegments(ctx context.Context, storyID, userID uuid.UUID) ([]*models.Segment, error) {
	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}
	if !story.IsPublic {
		isMember, err := s.participantRepo.Exists(ctx, s.db, storyID, userID)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, models.ErrForbidden
		}
	}
	return s.segmentRepo.ListByStory(ctx, s.db, storyID)
}

func (s *segmentServiceImpl) CurrentTurn(ctx context.Context, storyID, userID uuid.UUID) (*models.Turn, error) {
	isMember, err := s.participantRepo.Exists(ctx, s.db, storyID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotAParticipant
	}
	return s.turnRepo.Get(ctx, s.db, storyID)
}

func (s *segmentServiceImpl) notifyTurnAdvanced(storyID, holderID uuid.UUID, turn int) {
	go func() {
		nctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		recipient := holderID
		payload := messaging.NotificationPayload{
			RecipientID: &recipient,
			TemplateID:  messaging.TemplateTurnAdvanced,
			Data: map[string]any{
				"story_id": storyID.String(),
				"turn":     turn,
			},
		}
		if err := s.notifier.PublishNotification(nctx, payload); err != nil {
			s.logger.Warn("Failed to publish turn notification",
				zap.String("storyID", storyID.String()),
				zap.String("recipientID", recipient.String()),
				zap.Error(err),
			)
		}
	}()
}

func containsUser(participants []*models.Participant, userID uuid.UUID) bool {
	for _, p := range participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
