package dto

// InboundFrame covers every frame a client may send; Type selects the fields that matter.
type InboundFrame struct {
	Type    string `json:"type"`
	ChatId  string `json:"chatId"`
	Content string `json:"content,omitempty"`
}

type AssistantReplyEvent struct {
	Type    string `json:"type"`
	ChatId  string `json:"chatId"`
	Content string `json:"content"`
}

// ErrorEvent carries a kind token in Reason that clients can switch on, and
// optional human-readable text in Message.
type ErrorEvent struct {
	Type    string `json:"type"`
	ChatId  string `json:"chatId,omitempty"`
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}
