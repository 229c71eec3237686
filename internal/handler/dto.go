package handler

// createStoryRequest is the body for POST /stories.
type createStoryRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Genre          string `json:"genre"`
	WordLimit      int    `json:"word_limit"`
	CharacterLimit int    `json:"character_limit"`
	MaxSegments    int    `json:"max_segments"`
	IsPublic       bool   `json:"is_public"`
}

type updateMetadataRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
}

type updateLimitsRequest struct {
	WordLimit      int `json:"word_limit"`
	CharacterLimit int `json:"character_limit"`
}

type transferAuthorshipRequest struct {
	NewAuthorID string `json:"new_author_id"`
}

type submitSegmentRequest struct {
	Content string `json:"content"`
}

type proposeEditRequest struct {
	EditType            string `json:"edit_type"`
	SegmentID           string `json:"segment_id,omitempty"`
	ProposedContent     string `json:"proposed_content,omitempty"`
	ProposedTitle       string `json:"proposed_title,omitempty"`
	ProposedDescription string `json:"proposed_description,omitempty"`
	ProposedGenre       string `json:"proposed_genre,omitempty"`
	Reason              string `json:"reason,omitempty"`
}

type inviteRequest struct {
	// Identifier is a username, or an email when it contains "@".
	Identifier string `json:"identifier"`
}

type acceptByTokenRequest struct {
	Token string `json:"token"`
}

// storyListResponse pairs a page of stories with its continuation cursor.
type storyListResponse struct {
	Stories    any    `json:"stories"`
	NextCursor string `json:"next_cursor,omitempty"`
}
