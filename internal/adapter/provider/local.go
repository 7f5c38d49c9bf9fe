package provider

import (
	"context"
	"net/http"
	"time"

	"ccee-sentinel/internal/config"
	"ccee-sentinel/internal/domain"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// LocalProvider runs prompts on a locally hosted model through langchaingo. It reports
// itself unready when the model server does not answer its health probe, and the chain
// then skips it without counting a failure.
type LocalProvider struct {
	model      llms.Model
	probeURL   string
	httpClient *http.Client
}

func NewLocalProvider(cfg config.LocalConfig, httpClient *http.Client) (*LocalProvider, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.ServerURL),
		ollama.WithModel(cfg.Model),
		ollama.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, err
	}
	return NewLocalProviderWithModel(llm, cfg.ServerURL, httpClient), nil
}

// NewLocalProviderWithModel wraps any langchaingo model. An empty probeURL means always ready.
func NewLocalProviderWithModel(model llms.Model, probeURL string, httpClient *http.Client) *LocalProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LocalProvider{model: model, probeURL: probeURL, httpClient: httpClient}
}

func (l *LocalProvider) Name() string {
	return "local"
}

func (l *LocalProvider) Ready(ctx context.Context) bool {
	if l.probeURL == "" {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (l *LocalProvider) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := llms.GenerateFromSinglePrompt(ctx, l.model, prompt, llms.WithTemperature(0.3))
	if err != nil {
		if isContextErr(ctx, err) {
			return "", ctx.Err()
		}
		return "", &domain.ProviderError{Provider: l.Name(), Kind: domain.FailureHTTP, Err: err}
	}
	if text == "" {
		return "", &domain.ProviderError{Provider: l.Name(), Kind: domain.FailureEmpty, Message: "empty response"}
	}
	return text, nil
}
