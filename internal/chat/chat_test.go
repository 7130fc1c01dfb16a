package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-insights/internal/llm"
)

type fakeLLM struct {
	mu    sync.Mutex
	resp  llm.Response
	err   error
	calls [][]llm.Message
}

func (f *fakeLLM) Generate(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msgs)
	return f.resp, f.err
}

func TestNewSession_SeedsSystemPrompt(t *testing.T) {
	s := NewSession(PolicyFullHistory, "")
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, DefaultSystemPrompt, msgs[0].Content)
	assert.Empty(t, s.Transcript())

	single := NewSession(PolicySingleTurn, "custom")
	assert.Equal(t, 0, single.Len())
}

func TestSubmit_AppendsUserThenAssistant(t *testing.T) {
	f := &fakeLLM{resp: llm.Response{Content: "Electronics, at £8,200 revenue."}}
	s := NewSession(PolicyFullHistory, "")

	got, res, err := Submit(context.Background(), f, s, "What is the top category?")
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.False(t, res.Failed)
	assert.Equal(t, "Electronics, at £8,200 revenue.", res.Reply)

	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "What is the top category?"},
		{Role: llm.RoleAssistant, Content: "Electronics, at £8,200 revenue."},
	}, s.Transcript())
	assert.Equal(t, 3, s.Len())

	require.Len(t, f.calls, 1)
	assert.Equal(t, llm.RoleSystem, f.calls[0][0].Role)
	assert.Equal(t, "What is the top category?", f.calls[0][1].Content)
}

func TestSubmit_FullHistorySendsEveryTurn(t *testing.T) {
	f := &fakeLLM{resp: llm.Response{Content: "ok"}}
	s := NewSession(PolicyFullHistory, "sys")

	for i := 0; i < 3; i++ {
		_, _, err := Submit(context.Background(), f, s, fmt.Sprintf("q%d", i))
		require.NoError(t, err)
	}
	require.Len(t, f.calls, 3)
	// system + q0 a0 q1 a1 q2
	assert.Len(t, f.calls[2], 6)
	assert.Equal(t, "sys", f.calls[2][0].Content)
	assert.Len(t, s.Transcript(), 6)
}

func TestSubmit_SingleTurnSendsOnlyLatest(t *testing.T) {
	f := &fakeLLM{resp: llm.Response{Content: "ok"}}
	s := NewSession(PolicySingleTurn, "sys")

	for _, q := range []string{"first", "second"} {
		_, _, err := Submit(context.Background(), f, s, q)
		require.NoError(t, err)
	}
	require.Len(t, f.calls, 2)
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: llm.RoleUser, Content: "second"},
	}, f.calls[1])
	// the transcript still records both turns
	assert.Len(t, s.Transcript(), 4)
}

func TestSubmit_FailureBecomesAssistantText(t *testing.T) {
	f := &fakeLLM{err: errors.New("quota exceeded")}
	s := NewSession(PolicyFullHistory, "")

	_, res, err := Submit(context.Background(), f, s, "How are returns trending?")
	require.NoError(t, err)
	assert.True(t, res.Failed)
	assert.EqualError(t, res.Err, "quota exceeded")
	assert.Equal(t, "Error while calling OpenAI API: quota exceeded", res.Reply)

	tr := s.Transcript()
	require.Len(t, tr, 2)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "How are returns trending?"}, tr[0])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "Error while calling OpenAI API: quota exceeded"}, tr[1])

	// the session keeps working afterwards
	f.err = nil
	f.resp = llm.Response{Content: "recovered"}
	_, res, err = Submit(context.Background(), f, s, "retry please")
	require.NoError(t, err)
	assert.Equal(t, "recovered", res.Reply)
	assert.Len(t, s.Transcript(), 4)
}

func TestFailureText_ShowsProviderMessage(t *testing.T) {
	err := &llm.APIError{StatusCode: 401, Message: "Incorrect API key provided", Err: errors.New("status code: 401")}
	assert.Equal(t, "Error while calling OpenAI API: Incorrect API key provided", FailureText(err))
}

func TestSubmit_RejectsEmptyInput(t *testing.T) {
	f := &fakeLLM{}
	s := NewSession(PolicyFullHistory, "")

	for _, in := range []string{"", "   ", "\n\t"} {
		_, _, err := Submit(context.Background(), f, s, in)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}
	assert.Empty(t, f.calls)
	assert.Equal(t, 1, s.Len())
}

func TestSubmit_NilSession(t *testing.T) {
	_, _, err := Submit(context.Background(), &fakeLLM{}, nil, "hi")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSubmit_ConcurrentTurnsStayPaired(t *testing.T) {
	f := &fakeLLM{resp: llm.Response{Content: "a"}}
	s := NewSession(PolicyFullHistory, "")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, _ = Submit(context.Background(), f, s, fmt.Sprintf("q%d", i))
		}(i)
	}
	wg.Wait()

	tr := s.Transcript()
	require.Len(t, tr, 40)
	for i := 0; i < len(tr); i += 2 {
		assert.Equal(t, llm.RoleUser, tr[i].Role)
		assert.Equal(t, llm.RoleAssistant, tr[i+1].Role)
	}
}

func TestMessages_ReturnsCopy(t *testing.T) {
	s := NewSession(PolicyFullHistory, "")
	msgs := s.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, DefaultSystemPrompt, s.Messages()[0].Content)
}

func TestSnapshotRestore(t *testing.T) {
	f := &fakeLLM{resp: llm.Response{Content: "fine"}}
	s := NewSession(PolicyFullHistory, "sys")
	s.SetAPIKey("sk-user")
	_, _, err := Submit(context.Background(), f, s, "hello")
	require.NoError(t, err)

	r := Restore(s.Snapshot())
	assert.Equal(t, s.Messages(), r.Messages())
	assert.Equal(t, "sk-user", r.APIKey())
	assert.Equal(t, PolicyFullHistory, r.Policy())

	// a snapshot without its system entry gets it back
	snap := s.Snapshot()
	snap.Messages = snap.Messages[1:]
	assert.Equal(t, llm.RoleSystem, Restore(snap).Messages()[0].Role)
}
