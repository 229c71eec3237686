package service

import (
	"fmt"

	"fable-server/internal/models"

	"github.com/google/uuid"
)

// nextHolder computes who receives the turn after current, given the
// join-ordered participant list: (index of current + 1) mod count.
// With a single participant the turn stays put. This is the only
// rotation rule in the system.
//
// The current holder being absent from the list is a data-integrity
// violation (the leave guard must make it impossible), not a
// recoverable branch.
func nextHolder(participants []*models.Participant, current uuid.UUID) (uuid.UUID, error) {
	if len(participants) == 0 {
		return uuid.Nil, fmt.Errorf("story has no participants: %w", models.ErrInvariantViolation)
	}
	idx := -1
	for i, p := range participants {
		if p.UserID == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return uuid.Nil, fmt.Errorf("turn holder %s is not a participant: %w", current, models.ErrInvariantViolation)
	}
	return participants[(idx+1)%len(participants)].UserID, nil
}
