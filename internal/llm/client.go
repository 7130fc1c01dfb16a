package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrMissingAPIKey = errors.New("no API key provided")
	ErrNoChoices     = errors.New("completion returned no choices")
)

// APIError is a provider rejection reduced to the provider's own message,
// e.g. "Incorrect API key provided". The client error stays reachable via
// errors.As.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.Err }

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}
