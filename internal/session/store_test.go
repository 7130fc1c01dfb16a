package session

import (
	"context"
	"errors"
	"testing"

	"shop-insights/internal/chat"
	"shop-insights/internal/llm"
)

type echoLLM struct{}

func (echoLLM) Generate(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	return llm.Response{Content: "echo: " + msgs[len(msgs)-1].Content}, nil
}

func TestMemoryStore_LoadSaveReset(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	created := 0
	newSession := func() *chat.Session {
		created++
		return chat.NewSession(chat.PolicyFullHistory, "")
	}

	a, err := Load(ctx, st, "a", newSession)
	if err != nil {
		t.Fatalf("load a: %v", err)
	}
	if _, _, err := chat.Submit(ctx, echoLLM{}, a, "hello"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	b, err := Load(ctx, st, "b", newSession)
	if err != nil {
		t.Fatalf("load b: %v", err)
	}

	again, err := Load(ctx, st, "a", newSession)
	if err != nil {
		t.Fatalf("reload a: %v", err)
	}
	if again != a || created != 2 {
		t.Fatalf("expected stored session to be reused, created=%d", created)
	}
	if len(a.Transcript()) != 2 || len(b.Transcript()) != 0 {
		t.Fatalf("sessions leaked into each other: a=%d b=%d", len(a.Transcript()), len(b.Transcript()))
	}

	if err := st.Reset(ctx, "a"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := st.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("reset did not clear a: %v", err)
	}
	if st.Len() != 1 {
		t.Fatalf("reset should not affect other sessions")
	}
}

type brokenStore struct{ *MemoryStore }

func (brokenStore) Get(context.Context, string) (*chat.Session, error) {
	return nil, errors.New("backend down")
}

func TestLoad_PropagatesBackendErrors(t *testing.T) {
	_, err := Load(context.Background(), brokenStore{NewMemoryStore()}, "x", func() *chat.Session {
		t.Fatalf("must not initialize on backend error")
		return nil
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestSessionCodec_RoundTripKeepsOrder(t *testing.T) {
	s := chat.NewSession(chat.PolicySingleTurn, "sys")
	if _, _, err := chat.Submit(context.Background(), echoLLM{}, s, "one"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	data, err := encodeSession(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeSession(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	tr := got.Transcript()
	if len(tr) != 2 || tr[0].Content != "one" || tr[1].Content != "echo: one" {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
	if got.Policy() != chat.PolicySingleTurn {
		t.Fatalf("policy lost: %s", got.Policy())
	}
	if _, err := decodeSession([]byte("{")); err == nil {
		t.Fatalf("expected decode error")
	}
}
