package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"fable-server/internal/interfaces"
	repoMocks "fable-server/internal/interfaces/mocks"
	messagingMocks "fable-server/internal/messaging/mocks"
	"fable-server/internal/models"
	"fable-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type invitationServiceFixture struct {
	tx          *repoMocks.TxRunner
	stories     *repoMocks.StoryRepository
	members     *repoMocks.ParticipantRepository
	invitations *repoMocks.InvitationRepository
	tokens      *repoMocks.InviteTokenRepository
	users       *repoMocks.UserRepository
	notifier    *messagingMocks.NotificationPublisher
	service     service.InvitationService
}

func newInvitationServiceFixture() *invitationServiceFixture {
	f := &invitationServiceFixture{
		tx:          new(repoMocks.TxRunner),
		stories:     new(repoMocks.StoryRepository),
		members:     new(repoMocks.ParticipantRepository),
		invitations: new(repoMocks.InvitationRepository),
		tokens:      new(repoMocks.InviteTokenRepository),
		users:       new(repoMocks.UserRepository),
		notifier:    new(messagingMocks.NotificationPublisher),
	}
	f.notifier.On("PublishNotification", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.tokens.On("Delete", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.service = service.NewInvitationService(nil, f.tx, f.stories, f.members, f.invitations, f.tokens, f.users, f.notifier, zap.NewNop())
	return f
}

func TestInvite(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()
	inviter := uuid.New()
	invitee := uuid.New()
	story := &models.Story{ID: storyID, CreatorID: inviter, AuthorID: inviter, Title: "Open Invitation"}

	t.Run("Known username resolves to a pending invitation, never instant membership", func(t *testing.T) {
		f := newInvitationServiceFixture()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.members.On("Exists", ctx, mock.Anything, storyID, inviter).Return(true, nil).Once()
		f.users.On("GetByUsername", ctx, mock.Anything, "bob").
			Return(&models.User{ID: invitee, Username: "bob", Email: "bob@example.com"}, nil).Once()
		f.members.On("Exists", ctx, mock.Anything, storyID, invitee).Return(false, nil).Once()
		f.invitations.On("Create", ctx, mock.Anything, mock.MatchedBy(func(inv *models.Invitation) bool {
			assert.Equal(t, models.InvitationPending, inv.Status)
			assert.NotNil(t, inv.InviteeID)
			assert.Equal(t, invitee, *inv.InviteeID)
			assert.Nil(t, inv.InviteeEmail)
			assert.NotEmpty(t, inv.Token)
			return true
		})).Return(nil).Once()
		f.tokens.On("Set", ctx, mock.Anything, mock.Anything, models.InvitationTTL).Return(nil).Once()

		inv, err := f.service.Invite(ctx, storyID, inviter, "bob")

		assert.NoError(t, err)
		assert.NotNil(t, inv)
		f.members.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
		f.invitations.AssertExpectations(t)
	})

	t.Run("Unknown email becomes an address-targeted invitation", func(t *testing.T) {
		f := newInvitationServiceFixture()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.members.On("Exists", ctx, mock.Anything, storyID, inviter).Return(true, nil).Once()
		f.users.On("GetByEmail", ctx, mock.Anything, "new@example.com").Return(nil, models.ErrNotFound).Once()
		f.invitations.On("Create", ctx, mock.Anything, mock.MatchedBy(func(inv *models.Invitation) bool {
			assert.Nil(t, inv.InviteeID)
			assert.Equal(t, "new@example.com", *inv.InviteeEmail)
			return true
		})).Return(nil).Once()
		f.tokens.On("Set", ctx, mock.Anything, mock.Anything, models.InvitationTTL).Return(nil).Once()

		_, err := f.service.Invite(ctx, storyID, inviter, "New@Example.com")

		assert.NoError(t, err)
		f.invitations.AssertExpectations(t)
	})

	t.Run("Unknown username fails InviteeNotFound", func(t *testing.T) {
		f := newInvitationServiceFixture()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.members.On("Exists", ctx, mock.Anything, storyID, inviter).Return(true, nil).Once()
		f.users.On("GetByUsername", ctx, mock.Anything, "ghost").Return(nil, models.ErrNotFound).Once()

		_, err := f.service.Invite(ctx, storyID, inviter, "ghost")

		assert.True(t, errors.Is(err, service.ErrInviteeNotFound))
	})

	t.Run("Inviting yourself is rejected", func(t *testing.T) {
		f := newInvitationServiceFixture()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.members.On("Exists", ctx, mock.Anything, storyID, inviter).Return(true, nil).Once()
		f.users.On("GetByUsername", ctx, mock.Anything, "me").
			Return(&models.User{ID: inviter, Username: "me"}, nil).Once()

		_, err := f.service.Invite(ctx, storyID, inviter, "me")

		assert.True(t, errors.Is(err, service.ErrCannotInviteSelf))
	})

	t.Run("Existing member cannot be invited again", func(t *testing.T) {
		f := newInvitationServiceFixture()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.members.On("Exists", ctx, mock.Anything, storyID, inviter).Return(true, nil).Once()
		f.users.On("GetByUsername", ctx, mock.Anything, "bob").
			Return(&models.User{ID: invitee, Username: "bob"}, nil).Once()
		f.members.On("Exists", ctx, mock.Anything, storyID, invitee).Return(true, nil).Once()

		_, err := f.service.Invite(ctx, storyID, inviter, "bob")

		assert.True(t, errors.Is(err, interfaces.ErrAlreadyParticipant))
	})

	t.Run("Non-participant inviter is rejected", func(t *testing.T) {
		f := newInvitationServiceFixture()
		stranger := uuid.New()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.members.On("Exists", ctx, mock.Anything, storyID, stranger).Return(false, nil).Once()

		_, err := f.service.Invite(ctx, storyID, stranger, "bob")

		assert.True(t, errors.Is(err, service.ErrNotAParticipant))
	})

	t.Run("Completed story no longer accepts invitations", func(t *testing.T) {
		f := newInvitationServiceFixture()
		closed := &models.Story{ID: storyID, CreatorID: inviter, IsComplete: true}
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(closed, nil).Once()

		_, err := f.service.Invite(ctx, storyID, inviter, "bob")

		assert.True(t, errors.Is(err, service.ErrStoryClosed))
	})
}

func TestAcceptInvitation(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()
	inviter := uuid.New()
	invitee := uuid.New()
	invitationID := uuid.New()

	pendingInvitation := func() *models.Invitation {
		return &models.Invitation{
			ID:        invitationID,
			StoryID:   storyID,
			InviterID: inviter,
			InviteeID: &invitee,
			Token:     uuid.NewString(),
			Status:    models.InvitationPending,
			ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
		}
	}

	t.Run("Acceptance creates membership and resolves the invitation", func(t *testing.T) {
		f := newInvitationServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.invitations.On("GetByID", ctx, mock.Anything, invitationID).Return(pendingInvitation(), nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).
			Return(&models.Story{ID: storyID, CreatorID: inviter, AuthorID: inviter}, nil).Once()
		f.invitations.On("UpdateStatus", ctx, mock.Anything, invitationID, models.InvitationAccepted).Return(true, nil).Once()
		f.members.On("Add", ctx, mock.Anything, mock.MatchedBy(func(p *models.Participant) bool {
			return p.StoryID == storyID && p.UserID == invitee && p.Role == models.RoleParticipant
		})).Return(nil).Once()

		p, err := f.service.Accept(ctx, invitationID, invitee)

		assert.NoError(t, err)
		assert.Equal(t, invitee, p.UserID)
		f.invitations.AssertExpectations(t)
		f.members.AssertExpectations(t)
	})

	t.Run("Someone else's invitation fails NotYours", func(t *testing.T) {
		f := newInvitationServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.invitations.On("GetByID", ctx, mock.Anything, invitationID).Return(pendingInvitation(), nil).Once()

		_, err := f.service.Accept(ctx, invitationID, uuid.New())

		assert.True(t, errors.Is(err, service.ErrNotYourInvitation))
		f.members.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Resolved invitation fails AlreadyResolved", func(t *testing.T) {
		f := newInvitationServiceFixture()
		declined := pendingInvitation()
		declined.Status = models.InvitationDeclined
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.invitations.On("GetByID", ctx, mock.Anything, invitationID).Return(declined, nil).Once()

		_, err := f.service.Accept(ctx, invitationID, invitee)

		assert.True(t, errors.Is(err, service.ErrAlreadyResolved))
	})

	t.Run("Past expiry fails Expired and marks the row lazily", func(t *testing.T) {
		f := newInvitationServiceFixture()
		stale := pendingInvitation()
		stale.ExpiresAt = time.Now().UTC().Add(-time.Hour)
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.invitations.On("GetByID", ctx, mock.Anything, invitationID).Return(stale, nil).Once()
		f.invitations.On("UpdateStatus", ctx, mock.Anything, invitationID, models.InvitationExpired).Return(true, nil).Once()

		_, err := f.service.Accept(ctx, invitationID, invitee)

		assert.True(t, errors.Is(err, service.ErrInvitationExpired))
		f.invitations.AssertExpectations(t)
		f.members.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Story completed after the invite went out admits nobody", func(t *testing.T) {
		f := newInvitationServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.invitations.On("GetByID", ctx, mock.Anything, invitationID).Return(pendingInvitation(), nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).
			Return(&models.Story{ID: storyID, CreatorID: inviter, AuthorID: inviter, IsComplete: true}, nil).Once()

		_, err := f.service.Accept(ctx, invitationID, invitee)

		assert.True(t, errors.Is(err, service.ErrStoryClosed))
		f.invitations.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, invitationID, models.InvitationAccepted)
		f.members.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Email invitation accepted by the address owner", func(t *testing.T) {
		f := newInvitationServiceFixture()
		email := "bob@example.com"
		byEmail := pendingInvitation()
		byEmail.InviteeID = nil
		byEmail.InviteeEmail = &email
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.invitations.On("GetByID", ctx, mock.Anything, invitationID).Return(byEmail, nil).Once()
		f.users.On("GetByID", ctx, mock.Anything, invitee).
			Return(&models.User{ID: invitee, Email: "Bob@Example.com"}, nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).
			Return(&models.Story{ID: storyID, CreatorID: inviter, AuthorID: inviter}, nil).Once()
		f.invitations.On("UpdateStatus", ctx, mock.Anything, invitationID, models.InvitationAccepted).Return(true, nil).Once()
		f.members.On("Add", ctx, mock.Anything, mock.Anything).Return(nil).Once()

		_, err := f.service.Accept(ctx, invitationID, invitee)

		assert.NoError(t, err)
	})
}

func TestAcceptByToken(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()
	invitee := uuid.New()
	invitationID := uuid.New()
	token := uuid.NewString()

	t.Run("Token resolves to its invitation", func(t *testing.T) {
		f := newInvitationServiceFixture()
		f.tokens.On("Get", ctx, token).Return(invitationID, nil).Once()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.invitations.On("GetByID", ctx, mock.Anything, invitationID).Return(&models.Invitation{
			ID:        invitationID,
			StoryID:   storyID,
			InviteeID: &invitee,
			Token:     token,
			Status:    models.InvitationPending,
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}, nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).
			Return(&models.Story{ID: storyID}, nil).Once()
		f.invitations.On("UpdateStatus", ctx, mock.Anything, invitationID, models.InvitationAccepted).Return(true, nil).Once()
		f.members.On("Add", ctx, mock.Anything, mock.Anything).Return(nil).Once()

		p, err := f.service.AcceptByToken(ctx, token, invitee)

		assert.NoError(t, err)
		assert.Equal(t, storyID, p.StoryID)
	})

	t.Run("Unknown token is NotFound", func(t *testing.T) {
		f := newInvitationServiceFixture()
		f.tokens.On("Get", ctx, "bogus").Return(uuid.Nil, models.ErrNotFound).Once()

		_, err := f.service.AcceptByToken(ctx, "bogus", invitee)

		assert.True(t, errors.Is(err, models.ErrNotFound))
	})
}

func TestDeclineInvitation(t *testing.T) {
	ctx := context.Background()
	invitee := uuid.New()
	invitationID := uuid.New()

	t.Run("Decline resolves without membership", func(t *testing.T) {
		f := newInvitationServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.invitations.On("GetByID", ctx, mock.Anything, invitationID).Return(&models.Invitation{
			ID:        invitationID,
			StoryID:   uuid.New(),
			InviteeID: &invitee,
			Token:     uuid.NewString(),
			Status:    models.InvitationPending,
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}, nil).Once()
		f.invitations.On("UpdateStatus", ctx, mock.Anything, invitationID, models.InvitationDeclined).Return(true, nil).Once()

		err := f.service.Decline(ctx, invitationID, invitee)

		assert.NoError(t, err)
		f.members.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
	})
}
