// Package chat holds the conversational state of the "Chatbot Insights" page.
//
// A Session is created once by NewSession and then driven only through Submit:
// awaiting input -> awaiting the completion API -> awaiting input. There are no
// retries and no partial states; a failed completion still produces an
// assistant entry carrying the error text.
package chat

import (
	"context"
	"errors"
	"strings"

	"shop-insights/internal/llm"
)

// ErrorPrefix starts every assistant entry that stands in for a failed completion.
const ErrorPrefix = "Error while calling OpenAI API: "

var (
	ErrEmptyInput = errors.New("empty user input")
	ErrNoSession  = errors.New("chat session is not initialized")
)

// Result describes one finished turn.
type Result struct {
	Reply  string
	Failed bool
	// Err is the completion error when Failed is set.
	Err      error
	Response llm.Response
}

// Submit appends the user's text, asks client for a reply and appends it.
// On completion failure the reply slot holds ErrorPrefix plus the error
// message instead. The only returned errors are ErrEmptyInput and
// ErrNoSession, in which case the session is left untouched.
func Submit(ctx context.Context, client llm.Client, s *Session, userText string) (*Session, Result, error) {
	if s == nil {
		return nil, Result{}, ErrNoSession
	}
	if strings.TrimSpace(userText) == "" {
		return s, Result{}, ErrEmptyInput
	}

	s.turn.Lock()
	defer s.turn.Unlock()

	s.append(llm.Message{Role: llm.RoleUser, Content: userText})

	resp, err := client.Generate(ctx, s.request())
	if err != nil {
		text := FailureText(err)
		s.append(llm.Message{Role: llm.RoleAssistant, Content: text})
		return s, Result{Reply: text, Failed: true, Err: err}, nil
	}

	s.append(llm.Message{Role: llm.RoleAssistant, Content: resp.Content})
	return s, Result{Reply: resp.Content, Response: resp}, nil
}

func FailureText(err error) string {
	return ErrorPrefix + err.Error()
}
