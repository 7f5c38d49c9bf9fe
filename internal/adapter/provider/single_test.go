package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ccee-sentinel/internal/config"
	"ccee-sentinel/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	reply string
	err   error
}

func (f *fakeModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("Ready follows the probe", func(t *testing.T) {
		up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("Ollama is running"))
		}))
		defer up.Close()

		assert.True(t, NewLocalProviderWithModel(&fakeModel{}, up.URL, up.Client()).Ready(ctx))
		assert.True(t, NewLocalProviderWithModel(&fakeModel{}, "", nil).Ready(ctx))

		down := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		downURL := down.URL
		down.Close()
		assert.False(t, NewLocalProviderWithModel(&fakeModel{}, downURL, nil).Ready(ctx))
	})

	t.Run("Generate", func(t *testing.T) {
		text, err := NewLocalProviderWithModel(&fakeModel{reply: `{"ok":true}`}, "", nil).Generate(ctx, "p")
		require.NoError(t, err)
		assert.Equal(t, `{"ok":true}`, text)
	})

	t.Run("Empty reply", func(t *testing.T) {
		_, err := NewLocalProviderWithModel(&fakeModel{}, "", nil).Generate(ctx, "p")
		var perr *domain.ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, domain.FailureEmpty, perr.Kind)
	})

	t.Run("Model error", func(t *testing.T) {
		_, err := NewLocalProviderWithModel(&fakeModel{err: errors.New("model not found")}, "", nil).Generate(ctx, "p")
		var perr *domain.ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "local", perr.Provider)
		assert.Contains(t, err.Error(), "model not found")
	})
}

func TestBackendProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var body map[string]string
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		switch body["message"] {
		case "fail":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"code":"AI_UNAVAILABLE","message":"AI Unavailable: gemini: all 2 keys quota exceeded"}`))
		case "diagram":
			_, _ = w.Write([]byte(`{"mermaidCode":"graph TD; A-->B"}`))
		case "plain":
			_, _ = w.Write([]byte(`just text`))
		default:
			_, _ = w.Write([]byte(`{"response":"reply to ` + body["message"] + `"}`))
		}
	}))
	defer server.Close()

	backend := NewBackendProvider(server.URL+"/", server.Client())
	ctx := context.Background()

	text, err := backend.Generate(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "reply to hello", text)

	text, err = backend.Generate(ctx, "diagram")
	require.NoError(t, err)
	assert.Equal(t, "graph TD; A-->B", text)

	text, err = backend.Generate(ctx, "plain")
	require.NoError(t, err)
	assert.Equal(t, "just text", text)

	_, err = backend.Generate(ctx, "fail")
	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusServiceUnavailable, perr.StatusCode)
	assert.Contains(t, perr.Message, "quota exceeded")
}

func TestAnthropicProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("X-Api-Key") == "limited" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"id":"msg_01","type":"message","role":"assistant","model":"claude-3-5-haiku-latest",
			"content":[{"type":"text","text":"{\"topic\":\"Paging\"}"}],
			"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}
		}`))
	}))
	defer server.Close()

	cfg := config.AnthropicConfig{Key: "good", BaseURL: server.URL, Model: "claude-3-5-haiku-latest"}
	text, err := NewAnthropicProvider(cfg, server.Client()).Generate(context.Background(), "notes")
	require.NoError(t, err)
	assert.Equal(t, `{"topic":"Paging"}`, text)

	cfg.Key = "limited"
	_, err = NewAnthropicProvider(cfg, server.Client()).Generate(context.Background(), "notes")
	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.FailureQuota, perr.Kind)
}
