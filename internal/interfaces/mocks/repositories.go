package mocks

import (
	"context"
	"time"

	"fable-server/internal/interfaces"
	"fable-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// TxRunner runs the transaction body against whatever DBTX the test
// configured, so repository expectations set on the same mock apply
// inside and outside transactions alike.
type TxRunner struct {
	mock.Mock
	Q interfaces.DBTX
}

func (m *TxRunner) WithTx(ctx context.Context, fn func(q interfaces.DBTX) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(m.Q)
}

// Mock StoryRepository
type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) Create(ctx context.Context, q interfaces.DBTX, story *models.Story) error {
	args := m.Called(ctx, q, story)
	return args.Error(0)
}

func (m *StoryRepository) GetByID(ctx context.Context, q interfaces.DBTX, id uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Story), args.Error(1)
}

func (m *StoryRepository) UpdateMetadata(ctx context.Context, q interfaces.DBTX, id uuid.UUID, title, description, genre string) error {
	args := m.Called(ctx, q, id, title, description, genre)
	return args.Error(0)
}

func (m *StoryRepository) UpdateLimits(ctx context.Context, q interfaces.DBTX, id uuid.UUID, wordLimit, characterLimit int) error {
	args := m.Called(ctx, q, id, wordLimit, characterLimit)
	return args.Error(0)
}

func (m *StoryRepository) UpdateAuthor(ctx context.Context, q interfaces.DBTX, id, authorID uuid.UUID) error {
	args := m.Called(ctx, q, id, authorID)
	return args.Error(0)
}

func (m *StoryRepository) MarkComplete(ctx context.Context, q interfaces.DBTX, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, q, id)
	return args.Bool(0), args.Error(1)
}

func (m *StoryRepository) MarkEdited(ctx context.Context, q interfaces.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, q, id)
	return args.Error(0)
}

func (m *StoryRepository) Delete(ctx context.Context, q interfaces.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, q, id)
	return args.Error(0)
}

func (m *StoryRepository) ListByParticipant(ctx context.Context, q interfaces.DBTX, userID uuid.UUID, cursor string, limit int) ([]*models.Story, string, error) {
	args := m.Called(ctx, q, userID, cursor, limit)
	var stories []*models.Story
	if args.Get(0) != nil {
		stories = args.Get(0).([]*models.Story)
	}
	return stories, args.String(1), args.Error(2)
}

func (m *StoryRepository) ListPublic(ctx context.Context, q interfaces.DBTX, cursor string, limit int) ([]*models.Story, string, error) {
	args := m.Called(ctx, q, cursor, limit)
	var stories []*models.Story
	if args.Get(0) != nil {
		stories = args.Get(0).([]*models.Story)
	}
	return stories, args.String(1), args.Error(2)
}

// Mock ParticipantRepository
type ParticipantRepository struct {
	mock.Mock
}

func (m *ParticipantRepository) Add(ctx context.Context, q interfaces.DBTX, p *models.Participant) error {
	args := m.Called(ctx, q, p)
	return args.Error(0)
}

func (m *ParticipantRepository) Remove(ctx context.Context, q interfaces.DBTX, storyID, userID uuid.UUID) error {
	args := m.Called(ctx, q, storyID, userID)
	return args.Error(0)
}

func (m *ParticipantRepository) Get(ctx context.Context, q interfaces.DBTX, storyID, userID uuid.UUID) (*models.Participant, error) {
	args := m.Called(ctx, q, storyID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Participant), args.Error(1)
}

func (m *ParticipantRepository) Exists(ctx context.Context, q interfaces.DBTX, storyID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, q, storyID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ParticipantRepository) ListByStory(ctx context.Context, q interfaces.DBTX, storyID uuid.UUID) ([]*models.Participant, error) {
	args := m.Called(ctx, q, storyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Participant), args.Error(1)
}

func (m *ParticipantRepository) UpdateRole(ctx context.Context, q interfaces.DBTX, storyID, userID uuid.UUID, role models.ParticipantRole) error {
	args := m.Called(ctx, q, storyID, userID, role)
	return args.Error(0)
}

// Mock TurnRepository
type TurnRepository struct {
	mock.Mock
}

func (m *TurnRepository) Create(ctx context.Context, q interfaces.DBTX, turn *models.Turn) error {
	args := m.Called(ctx, q, turn)
	return args.Error(0)
}

func (m *TurnRepository) Get(ctx context.Context, q interfaces.DBTX, storyID uuid.UUID) (*models.Turn, error) {
	args := m.Called(ctx, q, storyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Turn), args.Error(1)
}

func (m *TurnRepository) GetForUpdate(ctx context.Context, q interfaces.DBTX, storyID uuid.UUID) (*models.Turn, error) {
	args := m.Called(ctx, q, storyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Turn), args.Error(1)
}

func (m *TurnRepository) Advance(ctx context.Context, q interfaces.DBTX, storyID uuid.UUID, nextTurn int, nextUserID uuid.UUID) error {
	args := m.Called(ctx, q, storyID, nextTurn, nextUserID)
	return args.Error(0)
}

// Mock SegmentRepository
type SegmentRepository struct {
	mock.Mock
}

func (m *SegmentRepository) Create(ctx context.Context, q interfaces.DBTX, segment *models.Segment) error {
	args := m.Called(ctx, q, segment)
	return args.Error(0)
}

func (m *SegmentRepository) GetByID(ctx context.Context, q interfaces.DBTX, id uuid.UUID) (*models.Segment, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Segment), args.Error(1)
}

func (m *SegmentRepository) ListByStory(ctx context.Context, q interfaces.DBTX, storyID uuid.UUID) ([]*models.Segment, error) {
	args := m.Called(ctx, q, storyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Segment), args.Error(1)
}

func (m *SegmentRepository) CountByStory(ctx context.Context, q interfaces.DBTX, storyID uuid.UUID) (int, error) {
	args := m.Called(ctx, q, storyID)
	return args.Int(0), args.Error(1)
}

func (m *SegmentRepository) UpdateContent(ctx context.Context, q interfaces.DBTX, id uuid.UUID, content string, wordCount, characterCount int) error {
	args := m.Called(ctx, q, id, content, wordCount, characterCount)
	return args.Error(0)
}

// Mock EditRequestRepository
type EditRequestRepository struct {
	mock.Mock
}

func (m *EditRequestRepository) Create(ctx context.Context, q interfaces.DBTX, req *models.EditRequest) error {
	args := m.Called(ctx, q, req)
	return args.Error(0)
}

func (m *EditRequestRepository) GetByID(ctx context.Context, q interfaces.DBTX, id uuid.UUID) (*models.EditRequest, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EditRequest), args.Error(1)
}

func (m *EditRequestRepository) Resolve(ctx context.Context, q interfaces.DBTX, id uuid.UUID, status models.EditRequestStatus) (bool, error) {
	args := m.Called(ctx, q, id, status)
	return args.Bool(0), args.Error(1)
}

func (m *EditRequestRepository) ListPendingByStory(ctx context.Context, q interfaces.DBTX, storyID uuid.UUID) ([]*models.EditRequest, error) {
	args := m.Called(ctx, q, storyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.EditRequest), args.Error(1)
}

// Mock InvitationRepository
type InvitationRepository struct {
	mock.Mock
}

func (m *InvitationRepository) Create(ctx context.Context, q interfaces.DBTX, inv *models.Invitation) error {
	args := m.Called(ctx, q, inv)
	return args.Error(0)
}

func (m *InvitationRepository) GetByID(ctx context.Context, q interfaces.DBTX, id uuid.UUID) (*models.Invitation, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *InvitationRepository) UpdateStatus(ctx context.Context, q interfaces.DBTX, id uuid.UUID, status models.InvitationStatus) (bool, error) {
	args := m.Called(ctx, q, id, status)
	return args.Bool(0), args.Error(1)
}

func (m *InvitationRepository) ListPendingForUser(ctx context.Context, q interfaces.DBTX, userID uuid.UUID, email string, now time.Time) ([]*models.Invitation, error) {
	args := m.Called(ctx, q, userID, email, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Invitation), args.Error(1)
}

// Mock InviteTokenRepository
type InviteTokenRepository struct {
	mock.Mock
}

func (m *InviteTokenRepository) Set(ctx context.Context, token string, invitationID uuid.UUID, ttl time.Duration) error {
	args := m.Called(ctx, token, invitationID, ttl)
	return args.Error(0)
}

func (m *InviteTokenRepository) Get(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *InviteTokenRepository) Delete(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// Mock UserRepository
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) GetByID(ctx context.Context, q interfaces.DBTX, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepository) GetByUsername(ctx context.Context, q interfaces.DBTX, username string) (*models.User, error) {
	args := m.Called(ctx, q, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, q interfaces.DBTX, email string) (*models.User, error) {
	args := m.Called(ctx, q, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
