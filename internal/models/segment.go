package models

import (
	"time"

	"github.com/google/uuid"
)

// Segment is one user's single turn's worth of story content.
// Immutable once created, except through an approved EditRequest which
// rewrites Content (and the recomputed counts) in place.
type Segment struct {
	ID             uuid.UUID `json:"id" db:"id"`
	StoryID        uuid.UUID `json:"story_id" db:"story_id"`
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	Turn           int       `json:"turn" db:"turn"` // the ledger value consumed at admission
	Content        string    `json:"content" db:"content"`
	WordCount      int       `json:"word_count" db:"word_count"`
	CharacterCount int       `json:"character_count" db:"character_count"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
