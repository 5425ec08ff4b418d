package controllers

// inboundPayload mirrors the gateway's webhook body. Exactly one of Text or
// Vote carries the event.
type inboundPayload struct {
	ConversationID string       `json:"conversation_id"`
	Text           string       `json:"text"`
	FromSelf       bool         `json:"from_self"`
	Vote           *votePayload `json:"vote"`
}

type votePayload struct {
	PollMessageID string `json:"poll_message_id"`
	OptionLabel   string `json:"option_label"`
}

type acceptedResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}
