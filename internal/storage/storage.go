package storage

import "time"

const (
	ChannelWeb      = "web"
	ChannelTelegram = "telegram"
)

// Event is one finished chat turn: the user's question and whatever ended up
// in the assistant slot, including error text when the completion failed.
type Event struct {
	Timestamp         time.Time `json:"timestamp"`
	SessionID         string    `json:"session_id"`
	Channel           string    `json:"channel"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
	Failed            bool      `json:"failed,omitempty"`
	Model             string    `json:"model,omitempty"`
	TotalTokens       int       `json:"total_tokens,omitempty"`
}

// Recorder persists interaction events in chronological order.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
}
