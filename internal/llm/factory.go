package llm

import (
	"fmt"
	"strings"

	"shop-insights/internal/config"
)

const (
	ProviderOpenAI = "openai"
	ProviderYandex = "yandex"
)

// Factory builds completion clients. A session may bring its own OpenAI key,
// in which case ForKey returns a client bound to that key instead of the default.
type Factory struct {
	provider string
	openai   Options
	fallback Client
}

func NewFactory(cfg *config.Config) (*Factory, error) {
	f := &Factory{
		provider: strings.ToLower(string(cfg.LLMProvider)),
		openai: Options{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: float32(cfg.Temperature),
			Referrer:    cfg.OpenRouterReferrer,
			Title:       cfg.OpenRouterTitle,
		},
	}
	switch f.provider {
	case ProviderOpenAI:
		f.fallback = NewOpenAI(f.openai)
	case ProviderYandex:
		ya, err := NewYandex(cfg.YandexOAuthToken, cfg.YandexFolderID)
		if err != nil {
			return nil, err
		}
		f.fallback = ya
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
	return f, nil
}

// NewStaticFactory wraps an already built client. Used by tests and by
// callers that never accept per-session keys.
func NewStaticFactory(c Client) *Factory {
	return &Factory{provider: "static", fallback: c}
}

// HasDefaultKey reports whether the configured provider can answer without a
// user supplied key.
func (f *Factory) HasDefaultKey() bool {
	if f.provider != ProviderOpenAI {
		return true
	}
	return f.openai.APIKey != ""
}

// AcceptsUserKey reports whether ForKey honours a per-session key.
func (f *Factory) AcceptsUserKey() bool {
	return f.provider == ProviderOpenAI
}

func (f *Factory) ForKey(apiKey string) Client {
	if apiKey == "" || !f.AcceptsUserKey() || apiKey == f.openai.APIKey {
		return f.fallback
	}
	opts := f.openai
	opts.APIKey = apiKey
	return NewOpenAI(opts)
}
