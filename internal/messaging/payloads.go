package messaging

import (
	"github.com/google/uuid"
)

// Notification template identifiers understood by the notification
// service on the other side of the queue.
const (
	TemplateTurnAdvanced        = "turn_advanced"
	TemplateStoryCompleted      = "story_completed"
	TemplateStoryBurned         = "story_burned"
	TemplateEditRequestCreated  = "edit_request_created"
	TemplateEditRequestResolved = "edit_request_resolved"
	TemplateInvitationCreated   = "invitation_created"
)

// NotificationPayload is the envelope handed to the notification
// side-channel. Delivery is best-effort; nothing in the engine depends
// on the outcome.
type NotificationPayload struct {
	// Exactly one of RecipientID / RecipientEmail identifies the target.
	RecipientID    *uuid.UUID     `json:"recipient_id,omitempty"`
	RecipientEmail *string        `json:"recipient_email,omitempty"`
	TemplateID     string         `json:"template_id"`
	Data           map[string]any `json:"data,omitempty"`
}

// BurnedStorySegment is one segment of the farewell mail-out sent to
// every participant when a story is burned.
type BurnedStorySegment struct {
	Turn    int    `json:"turn"`
	Author  string `json:"author"`
	Content string `json:"content"`
}
