package provider

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"ccee-sentinel/internal/domain"

	"google.golang.org/genai"
)

// GeminiCaller calls the Gemini API through the genai SDK. One client is kept per key; the
// key travels in a request header, never in the URL.
type GeminiCaller struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*genai.Client
}

func NewGeminiCaller(baseURL string, httpClient *http.Client) *GeminiCaller {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &GeminiCaller{
		baseURL:    baseURL,
		httpClient: httpClient,
		clients:    make(map[string]*genai.Client),
	}
}

func (g *GeminiCaller) client(ctx context.Context, key string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if client, ok := g.clients[key]; ok {
		return client, nil
	}
	cfg := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.httpClient,
	}
	if g.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	g.clients[key] = client
	return client, nil
}

func (g *GeminiCaller) Call(ctx context.Context, key, model, prompt string) (string, error) {
	client, err := g.client(ctx, key)
	if err != nil {
		return "", &domain.ProviderError{Provider: "gemini", Kind: domain.FailureAuth, Err: err}
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		if isContextErr(ctx, err) {
			return "", ctx.Err()
		}
		return "", classifyGemini(err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Text(), nil
}

func classifyGemini(err error) *domain.ProviderError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return statusError("gemini", apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return statusError("gemini", apiErrPtr.Code, apiErrPtr.Message)
	}
	return networkError("gemini", err)
}
