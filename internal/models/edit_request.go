package models

import (
	"time"

	"github.com/google/uuid"
)

// EditType selects the target of an edit request.
// Matches the ENUM 'edit_type' in the database.
type EditType string

const (
	EditTypeSegmentContent EditType = "segment_content"
	EditTypeStoryMetadata  EditType = "story_metadata"
)

// EditRequestStatus is the state of an edit request.
// Matches the ENUM 'edit_request_status' in the database.
// pending -> approved | denied, terminal once resolved.
type EditRequestStatus string

const (
	EditStatusPending  EditRequestStatus = "pending"
	EditStatusApproved EditRequestStatus = "approved"
	EditStatusDenied   EditRequestStatus = "denied"
)

// SegmentEdit is the payload for EditTypeSegmentContent.
// OriginalContent is an immutable snapshot captured at proposal time.
type SegmentEdit struct {
	SegmentID       uuid.UUID `json:"segment_id" db:"segment_id"`
	OriginalContent string    `json:"original_content" db:"original_content"`
	ProposedContent string    `json:"proposed_content" db:"proposed_content"`
}

// MetadataEdit is the payload for EditTypeStoryMetadata.
// Original* fields are immutable snapshots captured at proposal time.
type MetadataEdit struct {
	OriginalTitle       string `json:"original_title" db:"original_title"`
	OriginalDescription string `json:"original_description" db:"original_description"`
	OriginalGenre       string `json:"original_genre" db:"original_genre"`
	ProposedTitle       string `json:"proposed_title" db:"proposed_title"`
	ProposedDescription string `json:"proposed_description" db:"proposed_description"`
	ProposedGenre       string `json:"proposed_genre" db:"proposed_genre"`
}

// EditRequest is a proposed, author-gated retroactive change to a
// segment's content or the story's metadata. Exactly one of Segment or
// Metadata is set, selected by EditType; edits never consume a turn.
type EditRequest struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	StoryID     uuid.UUID         `json:"story_id" db:"story_id"`
	RequesterID uuid.UUID         `json:"requester_id" db:"requester_id"`
	AuthorID    uuid.UUID         `json:"author_id" db:"author_id"` // the story's author at proposal time; re-checked at apply time
	EditType    EditType          `json:"edit_type" db:"edit_type"`
	Segment     *SegmentEdit      `json:"segment,omitempty"`
	Metadata    *MetadataEdit     `json:"metadata,omitempty"`
	Reason      string            `json:"reason,omitempty" db:"reason"`
	Status      EditRequestStatus `json:"status" db:"status"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	ResolvedAt  *time.Time        `json:"resolved_at,omitempty" db:"resolved_at"`
}
