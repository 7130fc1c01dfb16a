package llm

import (
	"context"
	"testing"

	"shop-insights/internal/config"
)

type stubClient struct{}

func (stubClient) Generate(ctx context.Context, msgs []Message) (Response, error) {
	return Response{Content: "stub"}, nil
}

func TestFactory_ForKey(t *testing.T) {
	f, err := NewFactory(&config.Config{LLMProvider: config.ProviderOpenAI, OpenAIModel: "gpt-3.5-turbo"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if f.HasDefaultKey() {
		t.Fatalf("no key configured, HasDefaultKey should be false")
	}
	if !f.AcceptsUserKey() {
		t.Fatalf("openai provider should accept user keys")
	}
	def := f.ForKey("")
	if def != f.ForKey("") {
		t.Fatalf("empty key should return the shared default client")
	}
	user, ok := f.ForKey("sk-user").(*OpenAIClient)
	if !ok || !user.hasKey {
		t.Fatalf("user key not bound: %#v", f.ForKey("sk-user"))
	}
}

func TestFactory_UnknownProvider(t *testing.T) {
	if _, err := NewFactory(&config.Config{LLMProvider: "nope"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestStaticFactory_IgnoresUserKey(t *testing.T) {
	f := NewStaticFactory(stubClient{})
	if _, ok := f.ForKey("sk-user").(stubClient); !ok {
		t.Fatalf("static factory must always return the wrapped client")
	}
	if !f.HasDefaultKey() {
		t.Fatalf("static factory always has a usable client")
	}
}
