package models

import (
	"time"

	"github.com/google/uuid"
)

// InvitationStatus is the state of an invitation.
// Matches the ENUM 'invitation_status' in the database.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

// InvitationTTL is the validity window of an invitation.
const InvitationTTL = 7 * 24 * time.Hour

// Invitation is a pending offer of story membership. Before acceptance
// the target is identified by exactly one of InviteeID or InviteeEmail.
// Acceptance converts it into a Participant row.
type Invitation struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	StoryID      uuid.UUID        `json:"story_id" db:"story_id"`
	InviterID    uuid.UUID        `json:"inviter_id" db:"inviter_id"`
	InviteeID    *uuid.UUID       `json:"invitee_id,omitempty" db:"invitee_id"`
	InviteeEmail *string          `json:"invitee_email,omitempty" db:"invitee_email"`
	Token        string           `json:"token" db:"token"`
	Status       InvitationStatus `json:"status" db:"status"`
	ExpiresAt    time.Time        `json:"expires_at" db:"expires_at"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}

// IsExpired reports whether the invitation is past its validity window.
func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
