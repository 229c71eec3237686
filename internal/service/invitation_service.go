package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fable-server/internal/interfaces"
	"fable-server/internal/messaging"
	"fable-server/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvitationService runs the invite/accept/decline workflow. An invite
// always produces a pending invitation requiring explicit acceptance;
// nobody is ever added to a story as a side effect of being named.
type InvitationService interface {
	Invite(ctx context.Context, storyID, inviterID uuid.UUID, identifier string) (*models.Invitation, error)
	Accept(ctx context.Context, invitationID, userID uuid.UUID) (*models.Participant, error)
	AcceptByToken(ctx context.Context, token string, userID uuid.UUID) (*models.Participant, error)
	Decline(ctx context.Context, invitationID, userID uuid.UUID) error
	ListMyInvitations(ctx context.Context, userID uuid.UUID) ([]*models.Invitation, error)
}

type invitationServiceImpl struct {
	db              interfaces.DBTX
	tx              interfaces.TxRunner
	storyRepo       interfaces.StoryRepository
	participantRepo interfaces.ParticipantRepository
	invitationRepo  interfaces.InvitationRepository
	tokenRepo       interfaces.InviteTokenRepository
	userRepo        interfaces.UserRepository
	notifier        messaging.NotificationPublisher
	logger          *zap.Logger
}

// NewInvitationService creates a new instance of InvitationService.
func NewInvitationService(
	db interfaces.DBTX,
	tx interfaces.TxRunner,
	storyRepo interfaces.StoryRepository,
	participantRepo interfaces.ParticipantRepository,
	invitationRepo interfaces.InvitationRepository,
	tokenRepo interfaces.InviteTokenRepository,
	userRepo interfaces.UserRepository,
	notifier messaging.NotificationPublisher,
	logger *zap.Logger,
) InvitationService {
	return &invitationServiceImpl{
		db:              db,
		tx:              tx,
		storyRepo:       storyRepo,
		participantRepo: participantRepo,
		invitationRepo:  invitationRepo,
		tokenRepo:       tokenRepo,
		userRepo:        userRepo,
		notifier:        notifier,
		logger:          logger.Named("InvitationService"),
	}
}

// Invite creates a pending invitation for the user named by identifier.
// An identifier containing "@" is treated as an email and may target an
// address with no account yet; anything else must resolve to an
// existing username.
func (s *invitationServiceImpl) Invite(ctx context.Context, storyID, inviterID uuid.UUID, identifier string) (*models.Invitation, error) {
	log := s.logger.With(
		zap.String("storyID", storyID.String()),
		zap.String("inviterID", inviterID.String()),
	)

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, models.ErrInvalidInput
	}

	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}
	if story.IsComplete {
		return nil, ErrStoryClosed
	}
	isMember, err := s.participantRepo.Exists(ctx, s.db, storyID, inviterID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotAParticipant
	}

	now := time.Now().UTC()
	inv := &models.Invitation{
		ID:        uuid.New(),
		StoryID:   storyID,
		InviterID: inviterID,
		Token:     uuid.NewString(),
		Status:    models.InvitationPending,
		ExpiresAt: now.Add(models.InvitationTTL),
		CreatedAt: now,
	}

	if strings.Contains(identifier, "@") {
		email := strings.ToLower(identifier)
		user, err := s.userRepo.GetByEmail(ctx, s.db, email)
		switch {
		case err == nil:
			inv.InviteeID = &user.ID
		case errors.Is(err, models.ErrNotFound):
			// No account yet. The invitation targets the address and
			// resolves to whoever registers it.
			inv.InviteeEmail = &email
		default:
			return nil, err
		}
	} else {
		user, err := s.userRepo.GetByUsername(ctx, s.db, identifier)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, ErrInviteeNotFound
			}
			return nil, err
		}
		inv.InviteeID = &user.ID
	}

	if inv.InviteeID != nil {
		if *inv.InviteeID == inviterID {
			return nil, ErrCannotInviteSelf
		}
		alreadyIn, err := s.participantRepo.Exists(ctx, s.db, storyID, *inv.InviteeID)
		if err != nil {
			return nil, err
		}
		if alreadyIn {
			return nil, interfaces.ErrAlreadyParticipant
		}
	}

	if err := s.invitationRepo.Create(ctx, s.db, inv); err != nil {
		return nil, err
	}
	if err := s.tokenRepo.Set(ctx, inv.Token, inv.ID, models.InvitationTTL); err != nil {
		// The token index is an accelerator; the invitation itself is
		// already durable and acceptable by id.
		log.Warn("Failed to index invite token", zap.Error(err))
	}

	log.Info("Invitation created", zap.String("invitationID", inv.ID.String()))
	s.notifyInvitee(inv, story.Title)
	return inv, nil
}

// Accept converts a pending invitation into membership. Guards run in
// order: the invitation must be addressed to the caller, still pending,
// not past its expiry, and the story must still be open.
func (s *invitationServiceImpl) Accept(ctx context.Context, invitationID, userID uuid.UUID) (*models.Participant, error) {
	log := s.logger.With(
		zap.String("invitationID", invitationID.String()),
		zap.String("userID", userID.String()),
	)

	var participant *models.Participant
	var token string

	err := s.tx.WithTx(ctx, func(q interfaces.DBTX) error {
		inv, err := s.invitationRepo.GetByID(ctx, q, invitationID)
		if err != nil {
			return err
		}
		token = inv.Token
		if err := s.checkInvitee(ctx, q, inv, userID); err != nil {
			return err
		}
		if inv.Status != models.InvitationPending {
			return ErrAlreadyResolved
		}
		now := time.Now().UTC()
		if inv.IsExpired(now) {
			// Mark lazily; a sweeper is deliberately absent.
			if _, err := s.invitationRepo.UpdateStatus(ctx, q, invitationID, models.InvitationExpired); err != nil {
				return err
			}
			return ErrInvitationExpired
		}

		// The story may have completed since the invitation went out;
		// a closed story admits nobody, same as the direct join path.
		// The invitation stays pending.
		story, err := s.storyRepo.GetByID(ctx, q, inv.StoryID)
		if err != nil {
			return err
		}
		if story.IsComplete {
			return ErrStoryClosed
		}

		accepted, err := s.invitationRepo.UpdateStatus(ctx, q, invitationID, models.InvitationAccepted)
		if err != nil {
			return err
		}
		if !accepted {
			return ErrAlreadyResolved
		}

		participant = &models.Participant{
			StoryID:  inv.StoryID,
			UserID:   userID,
			Role:     models.RoleParticipant,
			JoinedAt: now,
		}
		return s.participantRepo.Add(ctx, q, participant)
	})
	if err != nil {
		// Expiry is a terminal resolution; drop the token for it too.
		if errors.Is(err, ErrInvitationExpired) && token != "" {
			s.dropToken(token)
		}
		return nil, err
	}

	s.dropToken(token)
	log.Info("Invitation accepted", zap.String("storyID", participant.StoryID.String()))
	return participant, nil
}

// AcceptByToken resolves an invite link token and accepts the
// invitation it points at.
func (s *invitationServiceImpl) AcceptByToken(ctx context.Context, token string, userID uuid.UUID) (*models.Participant, error) {
	invitationID, err := s.tokenRepo.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.Accept(ctx, invitationID, userID)
}

// Decline resolves a pending invitation without creating membership.
func (s *invitationServiceImpl) Decline(ctx context.Context, invitationID, userID uuid.UUID) error {
	log := s.logger.With(
		zap.String("invitationID", invitationID.String()),
		zap.String("userID", userID.String()),
	)

	var token string

	err := s.tx.WithTx(ctx, func(q interfaces.DBTX) error {
		inv, err := s.invitationRepo.GetByID(ctx, q, invitationID)
		if err != nil {
			return err
		}
		token = inv.Token
		if err := s.checkInvitee(ctx, q, inv, userID); err != nil {
			return err
		}
		if inv.Status != models.InvitationPending {
			return ErrAlreadyResolved
		}
		if inv.IsExpired(time.Now().UTC()) {
			if _, err := s.invitationRepo.UpdateStatus(ctx, q, invitationID, models.InvitationExpired); err != nil {
				return err
			}
			return ErrInvitationExpired
		}
		declined, err := s.invitationRepo.UpdateStatus(ctx, q, invitationID, models.InvitationDeclined)
		if err != nil {
			return err
		}
		if !declined {
			return ErrAlreadyResolved
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvitationExpired) && token != "" {
			s.dropToken(token)
		}
		return err
	}

	s.dropToken(token)
	log.Info("Invitation declined")
	return nil
}

func (s *invitationServiceImpl) ListMyInvitations(ctx context.Context, userID uuid.UUID) ([]*models.Invitation, error) {
	user, err := s.userRepo.GetByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	return s.invitationRepo.ListPendingForUser(ctx, s.db, userID, user.Email, time.Now().UTC())
}

// checkInvitee verifies the caller is who the invitation addresses,
// either directly by id or by owning the invited email address.
func (s *invitationServiceImpl) checkInvitee(ctx context.Context, q interfaces.DBTX, inv *models.Invitation, userID uuid.UUID) error {
	if inv.InviteeID != nil {
		if *inv.InviteeID != userID {
			return ErrNotYourInvitation
		}
		return nil
	}
	if inv.InviteeEmail != nil {
		user, err := s.userRepo.GetByID(ctx, q, userID)
		if err != nil {
			return err
		}
		if !strings.EqualFold(user.Email, *inv.InviteeEmail) {
			return ErrNotYourInvitation
		}
		return nil
	}
	return models.ErrInvariantViolation
}

func (s *invitationServiceImpl) dropToken(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.tokenRepo.Delete(ctx, token); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Warn("Failed to drop invite token", zap.Error(err))
	}
}

func (s *invitationServiceImpl) notifyInvitee(inv *models.Invitation, storyTitle string) {
	go func() {
		nctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		payload := messaging.NotificationPayload{
			RecipientID:    inv.InviteeID,
			RecipientEmail: inv.InviteeEmail,
			TemplateID:     messaging.TemplateInvitationCreated,
			Data: map[string]any{
				"invitation_id": inv.ID.String(),
				"story_id":      inv.StoryID.String(),
				"story_title":   storyTitle,
				"token":         inv.Token,
			},
		}
		if err := s.notifier.PublishNotification(nctx, payload); err != nil {
			s.logger.Warn("Failed to publish invitation notification",
				zap.String("invitationID", inv.ID.String()),
				zap.Error(err),
			)
		}
	}()
}
