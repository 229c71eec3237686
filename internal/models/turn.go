package models

import (
	"time"

	"github.com/google/uuid"
)

// Turn is the per-story ledger row pointing at whose turn it currently is.
// CurrentTurn starts at 1 and increases by exactly one per accepted segment
// or explicit skip; turn numbers are never reused or renumbered.
type Turn struct {
	StoryID       uuid.UUID `json:"story_id" db:"story_id"`
	CurrentTurn   int       `json:"current_turn" db:"current_turn"`
	CurrentUserID uuid.UUID `json:"current_user_id" db:"current_user_id"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
