package service

import "errors"

// Errors returned by the collaboration engine. All of these are
// expected, user-facing outcomes; only models.ErrInvariantViolation
// marks an unexpected server-side condition.
var (
	// Authorization
	ErrNotAParticipant = errors.New("user is not a participant of this story")
	ErrNotYourTurn     = errors.New("it is not this user's turn")

	// State conflicts
	ErrStoryClosed      = errors.New("story is complete and no longer accepts segments")
	ErrAlreadyComplete  = errors.New("story is already complete")
	ErrTurnConflict     = errors.New("participant currently holds the turn and cannot leave")
	ErrAlreadyResolved  = errors.New("request has already been resolved")
	ErrStoryNotJoinable = errors.New("story is not open for direct joining")

	// Validation
	ErrWordLimitExceeded      = errors.New("segment exceeds the story word limit")
	ErrCharacterLimitExceeded = errors.New("segment exceeds the story character limit")
	ErrEmptySegment           = errors.New("segment content is empty")

	// Invitations
	ErrNotYourInvitation = errors.New("invitation is addressed to a different user")
	ErrInvitationExpired = errors.New("invitation has expired")
	ErrInviteeNotFound   = errors.New("no account matches the invited identifier")
	ErrCannotInviteSelf  = errors.New("cannot invite yourself")
)
