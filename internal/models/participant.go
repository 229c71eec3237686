package models

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantRole defines the role of a story participant.
// Matches the ENUM 'participant_role' in the database.
type ParticipantRole string

const (
	RoleAuthor      ParticipantRole = "author"
	RoleParticipant ParticipantRole = "participant"
)

// Participant represents a user's membership in a story.
// The (StoryID, UserID) pair is unique; exactly one participant per
// story holds RoleAuthor at any time.
type Participant struct {
	StoryID  uuid.UUID       `json:"story_id" db:"story_id"`
	UserID   uuid.UUID       `json:"user_id" db:"user_id"`
	Role     ParticipantRole `json:"role" db:"role"`
	JoinedAt time.Time       `json:"joined_at" db:"joined_at"` // rotation order is join order
}
