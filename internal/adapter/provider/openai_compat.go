package provider

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"ccee-sentinel/internal/domain"

	"github.com/sashabaranov/go-openai"
)

// OpenAICompatCaller calls any OpenAI-compatible chat completions endpoint (AIML, OpenRouter).
// One go-openai client is kept per key.
type OpenAICompatCaller struct {
	name       string
	baseURL    string
	httpClient *http.Client
	maxTokens  int
	credit     map[int]bool

	mu      sync.Mutex
	clients map[string]*openai.Client
}

type CompatOption func(*OpenAICompatCaller)

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) CompatOption {
	return func(c *OpenAICompatCaller) { c.maxTokens = n }
}

// WithCreditStatuses treats the given HTTP statuses as an exhausted credit balance, so the
// key is rotated like a quota hit. AIML answers 403 once the account runs dry.
func WithCreditStatuses(statuses ...int) CompatOption {
	return func(c *OpenAICompatCaller) {
		if c.credit == nil {
			c.credit = make(map[int]bool, len(statuses))
		}
		for _, s := range statuses {
			c.credit[s] = true
		}
	}
}

// WithHeaders adds fixed headers to every request, e.g. OpenRouter's HTTP-Referer and X-Title.
func WithHeaders(headers map[string]string) CompatOption {
	return func(c *OpenAICompatCaller) {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		client := *c.httpClient
		client.Transport = &headerTransport{base: base, headers: headers}
		c.httpClient = &client
	}
}

func NewOpenAICompatCaller(name, baseURL string, httpClient *http.Client, opts ...CompatOption) *OpenAICompatCaller {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &OpenAICompatCaller{
		name:       name,
		baseURL:    baseURL,
		httpClient: httpClient,
		clients:    make(map[string]*openai.Client),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *OpenAICompatCaller) client(key string) *openai.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[key]; ok {
		return client
	}
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = c.baseURL
	cfg.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(cfg)
	c.clients[key] = client
	return client
}

func (c *OpenAICompatCaller) Call(ctx context.Context, key, model, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}

	resp, err := c.client(key).CreateChatCompletion(ctx, req)
	if err != nil {
		if isContextErr(ctx, err) {
			return "", ctx.Err()
		}
		return "", c.classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAICompatCaller) classify(err error) *domain.ProviderError {
	var perr *domain.ProviderError
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		perr = statusError(c.name, apiErr.HTTPStatusCode, apiErr.Message)
	case errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0:
		perr = statusError(c.name, reqErr.HTTPStatusCode, "")
		perr.Err = reqErr.Err
	default:
		return networkError(c.name, err)
	}
	if c.credit[perr.StatusCode] {
		perr.Kind = domain.FailureQuota
	}
	return perr
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}
	return t.base.RoundTrip(clone)
}
