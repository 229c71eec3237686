package service_test

import (
	"context"
	"errors"
	"testing"

	repoMocks "fable-server/internal/interfaces/mocks"
	messagingMocks "fable-server/internal/messaging/mocks"
	"fable-server/internal/models"
	"fable-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type storyServiceFixture struct {
	tx       *repoMocks.TxRunner
	stories  *repoMocks.StoryRepository
	members  *repoMocks.ParticipantRepository
	turns    *repoMocks.TurnRepository
	segments *repoMocks.SegmentRepository
	users    *repoMocks.UserRepository
	notifier *messagingMocks.NotificationPublisher
	service  service.StoryService
}

func newStoryServiceFixture() *storyServiceFixture {
	f := &storyServiceFixture{
		tx:       new(repoMocks.TxRunner),
		stories:  new(repoMocks.StoryRepository),
		members:  new(repoMocks.ParticipantRepository),
		turns:    new(repoMocks.TurnRepository),
		segments: new(repoMocks.SegmentRepository),
		users:    new(repoMocks.UserRepository),
		notifier: new(messagingMocks.NotificationPublisher),
	}
	f.notifier.On("PublishNotification", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.service = service.NewStoryService(nil, f.tx, f.stories, f.members, f.turns, f.segments, f.users, f.notifier, zap.NewNop())
	return f
}

func TestCreateStory(t *testing.T) {
	ctx := context.Background()
	creator := uuid.New()

	params := service.CreateStoryParams{
		Title:       "The Long Winter",
		Description: "Snow began to fall and never stopped.",
		Genre:       "fantasy",
		WordLimit:   100,
		MaxSegments: 20,
	}

	t.Run("Creates story, author membership and ledger at turn one", func(t *testing.T) {
		f := newStoryServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.stories.On("Create", ctx, mock.Anything, mock.MatchedBy(func(s *models.Story) bool {
			assert.Equal(t, creator, s.CreatorID)
			assert.Equal(t, creator, s.AuthorID)
			assert.False(t, s.IsComplete)
			return true
		})).Return(nil).Once()
		f.members.On("Add", ctx, mock.Anything, mock.MatchedBy(func(p *models.Participant) bool {
			assert.Equal(t, creator, p.UserID)
			assert.Equal(t, models.RoleAuthor, p.Role)
			return true
		})).Return(nil).Once()
		f.turns.On("Create", ctx, mock.Anything, mock.MatchedBy(func(turn *models.Turn) bool {
			assert.Equal(t, 1, turn.CurrentTurn)
			assert.Equal(t, creator, turn.CurrentUserID)
			return true
		})).Return(nil).Once()

		story, err := f.service.CreateStory(ctx, creator, params)

		assert.NoError(t, err)
		assert.NotNil(t, story)
		assert.Equal(t, "The Long Winter", story.Title)
		f.stories.AssertExpectations(t)
		f.members.AssertExpectations(t)
		f.turns.AssertExpectations(t)
	})

	t.Run("Rejects blank title and non-positive word limit", func(t *testing.T) {
		f := newStoryServiceFixture()

		_, err := f.service.CreateStory(ctx, creator, service.CreateStoryParams{Title: "  ", WordLimit: 10})
		assert.True(t, errors.Is(err, models.ErrInvalidInput))

		_, err = f.service.CreateStory(ctx, creator, service.CreateStoryParams{Title: "ok", WordLimit: 0})
		assert.True(t, errors.Is(err, models.ErrInvalidInput))

		f.stories.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCompleteStory(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()
	member := uuid.New()

	t.Run("Any participant may complete, and completion holds the ledger lock", func(t *testing.T) {
		f := newStoryServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.turns.On("GetForUpdate", ctx, mock.Anything, storyID).
			Return(&models.Turn{StoryID: storyID, CurrentTurn: 6, CurrentUserID: member}, nil).Once()
		f.members.On("Exists", ctx, mock.Anything, storyID, member).Return(true, nil).Once()
		f.stories.On("MarkComplete", ctx, mock.Anything, storyID).Return(true, nil).Once()
		f.segments.On("CountByStory", ctx, mock.Anything, storyID).Return(5, nil).Once()
		f.members.On("ListByStory", mock.Anything, mock.Anything, storyID).
			Return([]*models.Participant{}, nil).Maybe()

		err := f.service.CompleteStory(ctx, storyID, member)

		assert.NoError(t, err)
		f.stories.AssertExpectations(t)
		f.turns.AssertExpectations(t)
		f.segments.AssertExpectations(t)
	})

	t.Run("Second completion reports AlreadyComplete", func(t *testing.T) {
		f := newStoryServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.turns.On("GetForUpdate", ctx, mock.Anything, storyID).
			Return(&models.Turn{StoryID: storyID, CurrentTurn: 6, CurrentUserID: member}, nil).Once()
		f.members.On("Exists", ctx, mock.Anything, storyID, member).Return(true, nil).Once()
		f.stories.On("MarkComplete", ctx, mock.Anything, storyID).Return(false, nil).Once()

		err := f.service.CompleteStory(ctx, storyID, member)

		assert.True(t, errors.Is(err, service.ErrAlreadyComplete))
	})

	t.Run("Non-participant cannot complete", func(t *testing.T) {
		f := newStoryServiceFixture()
		stranger := uuid.New()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.turns.On("GetForUpdate", ctx, mock.Anything, storyID).
			Return(&models.Turn{StoryID: storyID, CurrentTurn: 6, CurrentUserID: member}, nil).Once()
		f.members.On("Exists", ctx, mock.Anything, storyID, stranger).Return(false, nil).Once()

		err := f.service.CompleteStory(ctx, storyID, stranger)

		assert.True(t, errors.Is(err, service.ErrNotAParticipant))
		f.stories.AssertNotCalled(t, "MarkComplete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Burned story reports NotFound from the lock attempt", func(t *testing.T) {
		f := newStoryServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.turns.On("GetForUpdate", ctx, mock.Anything, storyID).Return(nil, models.ErrNotFound).Once()

		err := f.service.CompleteStory(ctx, storyID, member)

		assert.True(t, errors.Is(err, models.ErrNotFound))
		f.stories.AssertNotCalled(t, "MarkComplete", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBurnStory(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()
	creator := uuid.New()
	member := uuid.New()
	story := &models.Story{ID: storyID, CreatorID: creator, AuthorID: creator, Title: "Ashes"}

	t.Run("Creator burn cascades after collecting the farewell payload", func(t *testing.T) {
		f := newStoryServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.turns.On("GetForUpdate", ctx, mock.Anything, storyID).
			Return(&models.Turn{StoryID: storyID, CurrentTurn: 9, CurrentUserID: member}, nil).Once()
		f.members.On("ListByStory", ctx, mock.Anything, storyID).
			Return(participantsFor(storyID, creator, member), nil).Once()
		f.segments.On("ListByStory", ctx, mock.Anything, storyID).
			Return([]*models.Segment{{StoryID: storyID, UserID: creator, Turn: 1, Content: "it began"}}, nil).Once()
		f.stories.On("Delete", ctx, mock.Anything, storyID).Return(nil).Once()

		err := f.service.BurnStory(ctx, storyID, creator)

		assert.NoError(t, err)
		f.stories.AssertExpectations(t)
	})

	t.Run("Non-creator participant is Forbidden", func(t *testing.T) {
		f := newStoryServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()

		err := f.service.BurnStory(ctx, storyID, member)

		assert.True(t, errors.Is(err, models.ErrForbidden))
		f.stories.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLeaveStory(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()
	creator := uuid.New()
	member := uuid.New()
	story := &models.Story{ID: storyID, CreatorID: creator, AuthorID: creator}

	t.Run("Participant leaves when not holding the turn", func(t *testing.T) {
		f := newStoryServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.turns.On("GetForUpdate", ctx, mock.Anything, storyID).
			Return(&models.Turn{StoryID: storyID, CurrentTurn: 5, CurrentUserID: creator}, nil).Once()
		f.members.On("Remove", ctx, mock.Anything, storyID, member).Return(nil).Once()

		err := f.service.LeaveStory(ctx, storyID, member)

		assert.NoError(t, err)
		f.members.AssertExpectations(t)
	})

	t.Run("Current holder cannot leave", func(t *testing.T) {
		f := newStoryServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.turns.On("GetForUpdate", ctx, mock.Anything, storyID).
			Return(&models.Turn{StoryID: storyID, CurrentTurn: 5, CurrentUserID: member}, nil).Once()

		err := f.service.LeaveStory(ctx, storyID, member)

		assert.True(t, errors.Is(err, service.ErrTurnConflict))
		f.members.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Creator gets Forbidden even while holding the turn", func(t *testing.T) {
		f := newStoryServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()

		err := f.service.LeaveStory(ctx, storyID, creator)

		assert.True(t, errors.Is(err, models.ErrForbidden))
		assert.False(t, errors.Is(err, service.ErrTurnConflict))
		f.turns.AssertNotCalled(t, "GetForUpdate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Non-member leave reports NotAParticipant", func(t *testing.T) {
		f := newStoryServiceFixture()
		stranger := uuid.New()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.turns.On("GetForUpdate", ctx, mock.Anything, storyID).
			Return(&models.Turn{StoryID: storyID, CurrentTurn: 5, CurrentUserID: creator}, nil).Once()
		f.members.On("Remove", ctx, mock.Anything, storyID, stranger).Return(models.ErrNotFound).Once()

		err := f.service.LeaveStory(ctx, storyID, stranger)

		assert.True(t, errors.Is(err, service.ErrNotAParticipant))
	})
}

func TestJoinStory(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()
	creator := uuid.New()
	joiner := uuid.New()

	t.Run("Public open story accepts a direct join", func(t *testing.T) {
		f := newStoryServiceFixture()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).
			Return(&models.Story{ID: storyID, CreatorID: creator, IsPublic: true}, nil).Once()
		f.members.On("Add", ctx, mock.Anything, mock.MatchedBy(func(p *models.Participant) bool {
			return p.UserID == joiner && p.Role == models.RoleParticipant
		})).Return(nil).Once()

		p, err := f.service.JoinStory(ctx, storyID, joiner)

		assert.NoError(t, err)
		assert.Equal(t, joiner, p.UserID)
	})

	t.Run("Private story rejects direct joins", func(t *testing.T) {
		f := newStoryServiceFixture()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).
			Return(&models.Story{ID: storyID, CreatorID: creator, IsPublic: false}, nil).Once()

		_, err := f.service.JoinStory(ctx, storyID, joiner)

		assert.True(t, errors.Is(err, service.ErrStoryNotJoinable))
	})

	t.Run("Duplicate join surfaces AlreadyParticipant from storage", func(t *testing.T) {
		f := newStoryServiceFixture()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).
			Return(&models.Story{ID: storyID, CreatorID: creator, IsPublic: true}, nil).Once()
		f.members.On("Add", ctx, mock.Anything, mock.Anything).
			Return(errors.New("duplicate key")).Once()

		_, err := f.service.JoinStory(ctx, storyID, joiner)

		assert.Error(t, err)
	})
}

func TestTransferAuthorship(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()
	author := uuid.New()
	heir := uuid.New()
	story := &models.Story{ID: storyID, CreatorID: author, AuthorID: author}

	t.Run("Current author hands over approval authority", func(t *testing.T) {
		f := newStoryServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.members.On("Exists", ctx, mock.Anything, storyID, heir).Return(true, nil).Once()
		f.stories.On("UpdateAuthor", ctx, mock.Anything, storyID, heir).Return(nil).Once()
		f.members.On("UpdateRole", ctx, mock.Anything, storyID, author, models.RoleParticipant).Return(nil).Once()
		f.members.On("UpdateRole", ctx, mock.Anything, storyID, heir, models.RoleAuthor).Return(nil).Once()

		err := f.service.TransferAuthorship(ctx, storyID, author, heir)

		assert.NoError(t, err)
		f.stories.AssertExpectations(t)
		f.members.AssertExpectations(t)
	})

	t.Run("Non-author cannot transfer", func(t *testing.T) {
		f := newStoryServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()

		err := f.service.TransferAuthorship(ctx, storyID, heir, heir)

		assert.True(t, errors.Is(err, models.ErrForbidden))
	})

	t.Run("New author must already be a participant", func(t *testing.T) {
		f := newStoryServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.members.On("Exists", ctx, mock.Anything, storyID, heir).Return(false, nil).Once()

		err := f.service.TransferAuthorship(ctx, storyID, author, heir)

		assert.True(t, errors.Is(err, service.ErrNotAParticipant))
		f.stories.AssertNotCalled(t, "UpdateAuthor", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
