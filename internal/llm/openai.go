package llm

import (
	"context"
	"errors"
	"math"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultMaxTokens   = 300
	DefaultTemperature = 0.7
)

// Options configures a single OpenAI-compatible client.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	// Referrer and Title are sent as OpenRouter attribution headers when set.
	Referrer string
	Title    string
}

type OpenAIClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	hasKey      bool
}

type headerTransport struct {
	rt      http.RoundTripper
	headers http.Header
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone request to avoid mutating the original
	cl := req.Clone(req.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			cl.Header.Add(k, v)
		}
	}
	return t.rt.RoundTrip(cl)
}

func NewOpenAI(opts Options) *OpenAIClient {
	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	if opts.Referrer != "" || opts.Title != "" {
		h := http.Header{}
		if opts.Referrer != "" {
			h.Set("HTTP-Referer", opts.Referrer)
		}
		if opts.Title != "" {
			h.Set("X-Title", opts.Title)
		}
		config.HTTPClient = &http.Client{Transport: headerTransport{rt: http.DefaultTransport, headers: h}}
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(config),
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		hasKey:      opts.APIKey != "",
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	if !c.hasKey {
		return Response{}, ErrMissingAPIKey
	}

	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    oaMsgs,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	// temperature is omitempty in go-openai; a zero would fall back to the
	// server default of 1.0.
	if req.Temperature == 0 {
		req.Temperature = math.SmallestNonzeroFloat32
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Response{}, apiError(err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, ErrNoChoices
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return Response{
		Content:          resp.Choices[0].Message.Content,
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

func apiError(err error) error {
	var oaErr *openai.APIError
	if errors.As(err, &oaErr) && oaErr.Message != "" {
		return &APIError{StatusCode: oaErr.HTTPStatusCode, Message: oaErr.Message, Err: err}
	}
	return err
}
