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

type editServiceFixture struct {
	tx       *repoMocks.TxRunner
	stories  *repoMocks.StoryRepository
	members  *repoMocks.ParticipantRepository
	segments *repoMocks.SegmentRepository
	edits    *repoMocks.EditRequestRepository
	notifier *messagingMocks.NotificationPublisher
	service  service.EditRequestService
}

func newEditServiceFixture() *editServiceFixture {
	f := &editServiceFixture{
		tx:       new(repoMocks.TxRunner),
		stories:  new(repoMocks.StoryRepository),
		members:  new(repoMocks.ParticipantRepository),
		segments: new(repoMocks.SegmentRepository),
		edits:    new(repoMocks.EditRequestRepository),
		notifier: new(messagingMocks.NotificationPublisher),
	}
	f.notifier.On("PublishNotification", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.service = service.NewEditRequestService(nil, f.tx, f.stories, f.members, f.segments, f.edits, f.notifier, zap.NewNop())
	return f
}

func TestProposeEdit(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()
	author := uuid.New()
	requester := uuid.New()
	segmentID := uuid.New()

	story := &models.Story{
		ID:          storyID,
		CreatorID:   author,
		AuthorID:    author,
		Title:       "Before",
		Description: "An old prompt",
		Genre:       "mystery",
	}

	t.Run("Segment proposal snapshots the current content", func(t *testing.T) {
		f := newEditServiceFixture()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.members.On("Exists", ctx, mock.Anything, storyID, requester).Return(true, nil).Once()
		f.segments.On("GetByID", ctx, mock.Anything, segmentID).
			Return(&models.Segment{ID: segmentID, StoryID: storyID, Content: "teh dragon"}, nil).Once()
		f.edits.On("Create", ctx, mock.Anything, mock.MatchedBy(func(req *models.EditRequest) bool {
			assert.Equal(t, models.EditStatusPending, req.Status)
			assert.Equal(t, author, req.AuthorID)
			assert.NotNil(t, req.Segment)
			assert.Equal(t, "teh dragon", req.Segment.OriginalContent)
			assert.Equal(t, "the dragon", req.Segment.ProposedContent)
			assert.Nil(t, req.Metadata)
			return true
		})).Return(nil).Once()

		req, err := f.service.Propose(ctx, storyID, requester, service.ProposeEditParams{
			EditType:        models.EditTypeSegmentContent,
			SegmentID:       &segmentID,
			ProposedContent: "the dragon",
			Reason:          "typo",
		})

		assert.NoError(t, err)
		assert.NotNil(t, req)
		f.edits.AssertExpectations(t)
	})

	t.Run("Metadata proposal snapshots title, description and genre", func(t *testing.T) {
		f := newEditServiceFixture()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.members.On("Exists", ctx, mock.Anything, storyID, requester).Return(true, nil).Once()
		f.edits.On("Create", ctx, mock.Anything, mock.MatchedBy(func(req *models.EditRequest) bool {
			assert.Equal(t, "Before", req.Metadata.OriginalTitle)
			assert.Equal(t, "After", req.Metadata.ProposedTitle)
			assert.Nil(t, req.Segment)
			return true
		})).Return(nil).Once()

		_, err := f.service.Propose(ctx, storyID, requester, service.ProposeEditParams{
			EditType:      models.EditTypeStoryMetadata,
			ProposedTitle: "After",
		})

		assert.NoError(t, err)
		f.edits.AssertExpectations(t)
	})

	t.Run("Segment from another story is Forbidden", func(t *testing.T) {
		f := newEditServiceFixture()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.members.On("Exists", ctx, mock.Anything, storyID, requester).Return(true, nil).Once()
		f.segments.On("GetByID", ctx, mock.Anything, segmentID).
			Return(&models.Segment{ID: segmentID, StoryID: uuid.New(), Content: "elsewhere"}, nil).Once()

		_, err := f.service.Propose(ctx, storyID, requester, service.ProposeEditParams{
			EditType:        models.EditTypeSegmentContent,
			SegmentID:       &segmentID,
			ProposedContent: "nope",
		})

		assert.True(t, errors.Is(err, models.ErrForbidden))
		f.edits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Non-participant cannot propose", func(t *testing.T) {
		f := newEditServiceFixture()
		stranger := uuid.New()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.members.On("Exists", ctx, mock.Anything, storyID, stranger).Return(false, nil).Once()

		_, err := f.service.Propose(ctx, storyID, stranger, service.ProposeEditParams{
			EditType:      models.EditTypeStoryMetadata,
			ProposedTitle: "Hijacked",
		})

		assert.True(t, errors.Is(err, service.ErrNotAParticipant))
	})
}

func TestApproveEdit(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()
	author := uuid.New()
	requester := uuid.New()
	requestID := uuid.New()
	segmentID := uuid.New()

	story := &models.Story{ID: storyID, CreatorID: author, AuthorID: author, Title: "Before"}

	segmentRequest := func() *models.EditRequest {
		return &models.EditRequest{
			ID:          requestID,
			StoryID:     storyID,
			RequesterID: requester,
			AuthorID:    author,
			EditType:    models.EditTypeSegmentContent,
			Status:      models.EditStatusPending,
			Segment: &models.SegmentEdit{
				SegmentID:       segmentID,
				OriginalContent: "teh dragon roared",
				ProposedContent: "the dragon roared",
			},
		}
	}

	t.Run("Approval rewrites the segment with recomputed counts and marks the story edited", func(t *testing.T) {
		f := newEditServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.edits.On("GetByID", ctx, mock.Anything, requestID).Return(segmentRequest(), nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.edits.On("Resolve", ctx, mock.Anything, requestID, models.EditStatusApproved).Return(true, nil).Once()
		f.segments.On("UpdateContent", ctx, mock.Anything, segmentID, "the dragon roared", 3, 17).Return(nil).Once()
		f.stories.On("MarkEdited", ctx, mock.Anything, storyID).Return(nil).Once()

		req, err := f.service.Approve(ctx, requestID, author)

		assert.NoError(t, err)
		assert.Equal(t, models.EditStatusApproved, req.Status)
		assert.NotNil(t, req.ResolvedAt)
		f.segments.AssertExpectations(t)
		f.stories.AssertExpectations(t)
	})

	t.Run("Metadata approval rewrites the story", func(t *testing.T) {
		f := newEditServiceFixture()
		metaReq := &models.EditRequest{
			ID:       requestID,
			StoryID:  storyID,
			AuthorID: author,
			EditType: models.EditTypeStoryMetadata,
			Status:   models.EditStatusPending,
			Metadata: &models.MetadataEdit{
				OriginalTitle: "Before",
				ProposedTitle: "After",
				ProposedGenre: "noir",
			},
		}
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.edits.On("GetByID", ctx, mock.Anything, requestID).Return(metaReq, nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.edits.On("Resolve", ctx, mock.Anything, requestID, models.EditStatusApproved).Return(true, nil).Once()
		f.stories.On("UpdateMetadata", ctx, mock.Anything, storyID, "After", "", "noir").Return(nil).Once()
		f.stories.On("MarkEdited", ctx, mock.Anything, storyID).Return(nil).Once()

		_, err := f.service.Approve(ctx, requestID, author)

		assert.NoError(t, err)
		f.stories.AssertExpectations(t)
	})

	t.Run("Approval authority follows the current author, not the one cached at proposal", func(t *testing.T) {
		f := newEditServiceFixture()
		newAuthor := uuid.New()
		transferred := &models.Story{ID: storyID, CreatorID: author, AuthorID: newAuthor}
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Twice()
		f.edits.On("GetByID", ctx, mock.Anything, requestID).Return(segmentRequest(), nil).Twice()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(transferred, nil).Twice()

		// The original author lost the authority.
		_, err := f.service.Approve(ctx, requestID, author)
		assert.True(t, errors.Is(err, models.ErrForbidden))

		// The new author has it.
		f.edits.On("Resolve", ctx, mock.Anything, requestID, models.EditStatusApproved).Return(true, nil).Once()
		f.segments.On("UpdateContent", ctx, mock.Anything, segmentID, "the dragon roared", 3, 17).Return(nil).Once()
		f.stories.On("MarkEdited", ctx, mock.Anything, storyID).Return(nil).Once()

		_, err = f.service.Approve(ctx, requestID, newAuthor)
		assert.NoError(t, err)
	})

	t.Run("Second resolution observes AlreadyResolved", func(t *testing.T) {
		f := newEditServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.edits.On("GetByID", ctx, mock.Anything, requestID).Return(segmentRequest(), nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.edits.On("Resolve", ctx, mock.Anything, requestID, models.EditStatusApproved).Return(false, nil).Once()

		_, err := f.service.Approve(ctx, requestID, author)

		assert.True(t, errors.Is(err, service.ErrAlreadyResolved))
		f.segments.AssertNotCalled(t, "UpdateContent",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Burned story fails NotFound before any mutation", func(t *testing.T) {
		f := newEditServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.edits.On("GetByID", ctx, mock.Anything, requestID).Return(segmentRequest(), nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(nil, models.ErrNotFound).Once()

		_, err := f.service.Approve(ctx, requestID, author)

		assert.True(t, errors.Is(err, models.ErrNotFound))
		f.edits.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDenyEdit(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()
	author := uuid.New()
	requestID := uuid.New()

	story := &models.Story{ID: storyID, CreatorID: author, AuthorID: author}
	pending := &models.EditRequest{
		ID:       requestID,
		StoryID:  storyID,
		AuthorID: author,
		EditType: models.EditTypeStoryMetadata,
		Status:   models.EditStatusPending,
		Metadata: &models.MetadataEdit{ProposedTitle: "Rejected"},
	}

	t.Run("Denial resolves without touching the story", func(t *testing.T) {
		f := newEditServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.edits.On("GetByID", ctx, mock.Anything, requestID).Return(pending, nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.edits.On("Resolve", ctx, mock.Anything, requestID, models.EditStatusDenied).Return(true, nil).Once()

		req, err := f.service.Deny(ctx, requestID, author)

		assert.NoError(t, err)
		assert.Equal(t, models.EditStatusDenied, req.Status)
		f.stories.AssertNotCalled(t, "UpdateMetadata",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.stories.AssertNotCalled(t, "MarkEdited", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Only the author may deny", func(t *testing.T) {
		f := newEditServiceFixture()
		f.tx.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.edits.On("GetByID", ctx, mock.Anything, requestID).Return(pending, nil).Once()
		f.stories.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()

		_, err := f.service.Deny(ctx, requestID, uuid.New())

		assert.True(t, errors.Is(err, models.ErrForbidden))
	})
}
