package domain

import "context"

// InboundEvent is one message or poll-vote update delivered by the chat
// gateway. Exactly one of Text or Vote is set.
type InboundEvent struct {
	ConversationID string      `json:"conversation_id"`
	Text           string      `json:"text,omitempty"`
	Vote           *VoteUpdate `json:"vote,omitempty"`
	FromSelf       bool        `json:"from_self,omitempty"`
}

// VoteUpdate carries a poll vote back to the broker. The option label embeds
// the 1-based candidate index as a leading "N." token.
type VoteUpdate struct {
	PollMessageID string `json:"poll_message_id"`
	OptionLabel   string `json:"option_label"`
}

// Document is an outbound binary artifact.
type Document struct {
	Filename string
	MimeType string
	Caption  string
	Data     []byte
}

// Transport is the outbound side of the messaging gateway. Implementations
// must be safe for concurrent use across conversations.
type Transport interface {
	// SendText sends a plain message and returns its message id so it can
	// be edited later (progress updates).
	SendText(ctx context.Context, conversationID, text string) (string, error)

	SendDocument(ctx context.Context, conversationID string, doc Document) error

	// SendImage relays an image by URL with a caption.
	SendImage(ctx context.Context, conversationID, imageURL, caption string) error

	// SendPoll presents options for single selection and returns the poll
	// message id used to correlate the vote back.
	SendPoll(ctx context.Context, conversationID, title string, options []string) (string, error)

	EditText(ctx context.Context, conversationID, messageID, text string) error
}

// Catalog is the app-store metadata provider.
type Catalog interface {
	Search(ctx context.Context, term string) ([]CatalogCandidate, error)
	Details(ctx context.Context, identifier string) (*AppDetails, error)
}
