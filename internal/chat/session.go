package chat

import (
	"sync"

	"shop-insights/internal/llm"
)

// Policy decides how much of the conversation is sent with each request.
type Policy string

const (
	// PolicyFullHistory resends the system prompt and every prior turn.
	PolicyFullHistory Policy = "full"
	// PolicySingleTurn sends only the system prompt and the newest user message.
	PolicySingleTurn Policy = "single"
)

func ParsePolicy(s string) (Policy, bool) {
	switch Policy(s) {
	case PolicyFullHistory, PolicySingleTurn:
		return Policy(s), true
	}
	return "", false
}

const DefaultSystemPrompt = "You are an expert in e-commerce business analytics. You have deep knowledge of the entire data model " +
	"including Orders, Payments, Products, Inventory, Customers, Suppliers, Shipping, and other related tables. " +
	"Provide insightful analysis and recommendations."

// Session is the ordered, append-only transcript of one user interaction window.
// With PolicyFullHistory the first message is always the system prompt.
type Session struct {
	// turn serializes submits so a session is never waiting on two replies.
	turn sync.Mutex

	mu           sync.RWMutex
	policy       Policy
	systemPrompt string
	messages     []llm.Message
	apiKey       string
}

// NewSession returns the initialized default session. An empty systemPrompt
// falls back to DefaultSystemPrompt.
func NewSession(policy Policy, systemPrompt string) *Session {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	if _, ok := ParsePolicy(string(policy)); !ok {
		policy = PolicyFullHistory
	}
	s := &Session{policy: policy, systemPrompt: systemPrompt}
	if policy == PolicyFullHistory {
		s.messages = []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}
	}
	return s
}

func (s *Session) Policy() Policy { return s.policy }

// Messages returns a copy of the whole history, system prompt included.
func (s *Session) Messages() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]llm.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Transcript returns what the user gets to see: every message except the
// system instruction.
func (s *Session) Transcript() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]llm.Message, 0, len(s.messages))
	for _, m := range s.messages {
		if m.Role == llm.RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *Session) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey
}

func (s *Session) SetAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = key
}

func (s *Session) append(msg llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// request builds the message list sent to the completion API for the turn
// whose user message was just appended.
func (s *Session) request() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.policy == PolicySingleTurn {
		last := s.messages[len(s.messages)-1]
		return []llm.Message{{Role: llm.RoleSystem, Content: s.systemPrompt}, last}
	}
	out := make([]llm.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Snapshot is the serializable form of a Session.
type Snapshot struct {
	Policy       Policy        `json:"policy"`
	SystemPrompt string        `json:"system_prompt"`
	Messages     []llm.Message `json:"messages"`
	APIKey       string        `json:"api_key,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]llm.Message, len(s.messages))
	copy(msgs, s.messages)
	return Snapshot{Policy: s.policy, SystemPrompt: s.systemPrompt, Messages: msgs, APIKey: s.apiKey}
}

// Restore rebuilds a Session from a snapshot, re-seeding the system prompt if a
// full-history snapshot somehow lost it.
func Restore(snap Snapshot) *Session {
	s := NewSession(snap.Policy, snap.SystemPrompt)
	s.apiKey = snap.APIKey
	for _, m := range snap.Messages {
		if m.Role == llm.RoleSystem {
			continue
		}
		s.messages = append(s.messages, m)
	}
	return s
}
