package models

import (
	"time"

	"github.com/google/uuid"
)

// Story represents a collaborative story in the database.
// AuthorID is stored explicitly rather than inferred by scanning
// participants for the author role; it must always reference a
// current participant holding RoleAuthor.
type Story struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Title          string    `json:"title" db:"title"`
	Description    string    `json:"description" db:"description"` // doubles as the opening prompt
	Genre          string    `json:"genre" db:"genre"`
	CreatorID      uuid.UUID `json:"creator_id" db:"creator_id"`
	AuthorID       uuid.UUID `json:"author_id" db:"author_id"`
	WordLimit      int       `json:"word_limit" db:"word_limit"`
	CharacterLimit int       `json:"character_limit" db:"character_limit"` // 0 means no limit
	MaxSegments    int       `json:"max_segments" db:"max_segments"`       // soft target for progress display only
	IsPublic       bool      `json:"is_public" db:"is_public"`             // allows direct self-join
	IsComplete     bool      `json:"is_complete" db:"is_complete"`
	IsEdited       bool      `json:"is_edited" db:"is_edited"` // set once any approved edit has touched it
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Progress returns completion progress in percent against MaxSegments.
// Display-only, MaxSegments is never enforced as a hard cap.
func (s *Story) Progress(segmentCount int) int {
	if s.MaxSegments <= 0 {
		return 0
	}
	p := segmentCount * 100 / s.MaxSegments
	if p > 100 {
		p = 100
	}
	return p
}
