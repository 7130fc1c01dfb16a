// Package assistant ties the chat session manager to its collaborators: the
// per-visitor session store, the completion client factory and the
// interaction log. Web and Telegram frontends both talk to a Service.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"shop-insights/internal/chat"
	"shop-insights/internal/llm"
	"shop-insights/internal/session"
	"shop-insights/internal/storage"
)

const tracerName = "shop-insights/assistant"

type ClientFactory interface {
	ForKey(apiKey string) llm.Client
	HasDefaultKey() bool
	AcceptsUserKey() bool
}

type Reply struct {
	Text       string        `json:"reply"`
	Failed     bool          `json:"failed"`
	Transcript []llm.Message `json:"transcript"`
}

type Service struct {
	store        session.Store
	clients      ClientFactory
	recorder     storage.Recorder
	logger       *zap.Logger
	policy       chat.Policy
	systemPrompt string
	now          func() time.Time
	locks        *sessionLocks
}

type Option func(*Service)

func WithRecorder(r storage.Recorder) Option { return func(s *Service) { s.recorder = r } }

func WithSystemPrompt(p string) Option { return func(s *Service) { s.systemPrompt = p } }

func WithPolicy(p chat.Policy) Option { return func(s *Service) { s.policy = p } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func New(store session.Store, clients ClientFactory, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		clients: clients,
		logger:  logger,
		policy:  chat.PolicyFullHistory,
		now:     time.Now,
		locks:   newSessionLocks(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) newSession() *chat.Session {
	return chat.NewSession(s.policy, s.systemPrompt)
}

// Ask runs one chat turn for the session identified by id. A failed completion
// is not an error: it comes back as Reply.Failed with the error text as reply.
// Turns, resets and key changes on the same id run one at a time.
func (s *Service) Ask(ctx context.Context, id, channel, text string) (Reply, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "assistant.Ask",
		trace.WithAttributes(attribute.String("session.channel", channel)))
	defer span.End()

	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := session.Load(ctx, s.store, id, s.newSession)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Reply{}, fmt.Errorf("load session: %w", err)
	}

	client := s.clients.ForKey(sess.APIKey())
	started := s.now()
	_, res, err := chat.Submit(ctx, client, sess, text)
	if err != nil {
		return Reply{}, err
	}

	if err := s.store.Save(ctx, id, sess); err != nil {
		s.logger.Error("failed to save session", zap.String("session_id", id), zap.Error(err))
	}

	if res.Failed {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "completion failed")
		s.logger.Warn("completion failed",
			zap.String("session_id", id),
			zap.String("channel", channel),
			zap.Error(res.Err))
	} else {
		span.SetAttributes(
			attribute.String("llm.model", res.Response.Model),
			attribute.Int("llm.total_tokens", res.Response.TotalTokens))
		s.logger.Info("completion finished",
			zap.String("session_id", id),
			zap.String("channel", channel),
			zap.String("model", res.Response.Model),
			zap.Int("prompt_tokens", res.Response.PromptTokens),
			zap.Int("completion_tokens", res.Response.CompletionTokens),
			zap.Duration("elapsed", s.now().Sub(started)))
	}

	s.record(storage.Event{
		Timestamp:         started.UTC(),
		SessionID:         id,
		Channel:           channel,
		UserMessage:       text,
		AssistantResponse: res.Reply,
		Failed:            res.Failed,
		Model:             res.Response.Model,
		TotalTokens:       res.Response.TotalTokens,
	})

	return Reply{Text: res.Reply, Failed: res.Failed, Transcript: sess.Transcript()}, nil
}

func (s *Service) record(ev storage.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.AppendInteraction(ev); err != nil {
		s.logger.Warn("failed to record interaction", zap.Error(err))
	}
}

// Transcript returns the displayed messages of a session, initializing it
// when the visitor has none yet.
func (s *Service) Transcript(ctx context.Context, id string) ([]llm.Message, error) {
	sess, err := session.Load(ctx, s.store, id, s.newSession)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess.Transcript(), nil
}

// Reset drops the conversation. The API key entered for the session is kept.
// A reset issued while a reply is pending takes effect after that turn is saved.
func (s *Service) Reset(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	key := ""
	if sess, err := s.store.Get(ctx, id); err == nil {
		key = sess.APIKey()
	} else if !errors.Is(err, session.ErrNotFound) {
		return err
	}
	if err := s.store.Reset(ctx, id); err != nil {
		return err
	}
	if key == "" {
		return nil
	}
	fresh := s.newSession()
	fresh.SetAPIKey(key)
	return s.store.Save(ctx, id, fresh)
}

var ErrKeyNotAccepted = errors.New("the configured provider does not accept user API keys")

// SetAPIKey stores a manually entered credential for one session.
func (s *Service) SetAPIKey(ctx context.Context, id, key string) error {
	if !s.clients.AcceptsUserKey() {
		return ErrKeyNotAccepted
	}
	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := session.Load(ctx, s.store, id, s.newSession)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	sess.SetAPIKey(key)
	return s.store.Save(ctx, id, sess)
}

// NeedsAPIKey reports whether the visitor has to enter a key before the
// assistant can answer.
func (s *Service) NeedsAPIKey(ctx context.Context, id string) (bool, error) {
	if s.clients.HasDefaultKey() {
		return false, nil
	}
	sess, err := s.store.Get(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return sess.APIKey() == "", nil
}
