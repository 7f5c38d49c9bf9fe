package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"ccee-sentinel/internal/adapter/provider"
	"ccee-sentinel/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFallbackChain_FirstSuccessWins(t *testing.T) {
	first := newMockProvider("gemini")
	second := newMockProvider("aiml")
	first.On("Generate", mock.Anything, "prompt").Return("hello", nil)

	health := NewHealthRegistry("gemini", "aiml")
	chain := NewFallbackChain("server", []domain.Provider{first, second}, health, nil)

	res, err := chain.Run(context.Background(), domain.GenerationRequest{Prompt: "prompt"})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, "gemini", res.Provider)
	second.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	assert.Equal(t, domain.StatusWorking, health.Get("gemini").Status)
	assert.Equal(t, domain.StatusUnknown, health.Get("aiml").Status)
}

func TestFallbackChain_ExhaustionNamesEveryProvider(t *testing.T) {
	a := newMockProvider("gemini")
	b := newMockProvider("aiml")
	c := newMockProvider("openrouter")
	a.On("Generate", mock.Anything, mock.Anything).Return("", &domain.ProviderError{Kind: domain.FailureHTTP, StatusCode: 404, Message: "model not found"})
	b.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("dial tcp: i/o timeout"))
	c.On("Generate", mock.Anything, mock.Anything).Return("", &domain.ProviderError{Provider: "openrouter", Kind: domain.FailureQuota, StatusCode: 402, Message: "no credit"})

	health := NewHealthRegistry()
	chain := NewFallbackChain("server", []domain.Provider{a, b, c}, health, nil)
	_, err := chain.Run(context.Background(), domain.GenerationRequest{Prompt: "p"})

	require.Error(t, err)
	assert.Equal(t, domain.ErrAIUnavailable, domain.CodeOf(err))
	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "AI Unavailable: "), msg)
	assert.Contains(t, msg, "gemini: 404 model not found")
	assert.Contains(t, msg, "aiml: dial tcp: i/o timeout")
	assert.Contains(t, msg, "openrouter: 402 no credit")
	assert.Equal(t, 2, strings.Count(msg, "; "))
	assert.True(t, domain.IsRateLimited(err))

	assert.Equal(t, domain.StatusError, health.Get("gemini").Status)
	assert.Equal(t, domain.StatusNoCredits, health.Get("openrouter").Status)
}

func TestFallbackChain_ParseFailureMovesOn(t *testing.T) {
	local := newMockProvider("local")
	cloud := newMockProvider("anthropic")
	local.On("Generate", mock.Anything, mock.Anything).Return("I cannot answer that", nil).Once()
	cloud.On("Generate", mock.Anything, mock.Anything).Return(`{"ok":true}`, nil).Once()

	chain := NewFallbackChain("client", []domain.Provider{local, cloud}, nil, nil)

	var parsed string
	res, err := chain.Run(context.Background(), domain.GenerationRequest{
		Prompt: "p",
		Parse: func(text string) error {
			if !strings.HasPrefix(text, "{") {
				return domain.NewParseError(errors.New("no JSON"))
			}
			parsed = text
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", res.Provider)
	assert.Equal(t, `{"ok":true}`, parsed)
	local.AssertNumberOfCalls(t, "Generate", 1)
}

func TestFallbackChain_SkipsUnreadyProvider(t *testing.T) {
	local := unreadyProvider{newMockProvider("local")}
	server := newMockProvider("server")
	server.On("Generate", mock.Anything, mock.Anything).Return("text", nil)

	chain := NewFallbackChain("client", []domain.Provider{local, server}, nil, nil)
	res, err := chain.Run(context.Background(), domain.GenerationRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "server", res.Provider)
	local.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestFallbackChain_CancelledContext(t *testing.T) {
	p := newMockProvider("gemini")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFallbackChain("server", []domain.Provider{p}, nil, nil).Run(ctx, domain.GenerationRequest{Prompt: "p"})
	assert.ErrorIs(t, err, context.Canceled)
	p.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

// keyedCaller fails with 429 for the listed keys and answers with the key otherwise.
type keyedCaller struct {
	mu      sync.Mutex
	limited map[string]bool
	calls   []string
}

func (k *keyedCaller) Call(_ context.Context, key, _, _ string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls = append(k.calls, key)
	if k.limited[key] {
		return "", &domain.ProviderError{Kind: domain.FailureQuota, StatusCode: http.StatusTooManyRequests}
	}
	return "answer from " + key, nil
}

func TestFallbackChain_QuotaRotationStaysOnPrimary(t *testing.T) {
	gemini := &keyedCaller{limited: map[string]bool{"g1": true, "g2": true}}
	aiml := &keyedCaller{}

	server := NewFallbackChain("server", []domain.Provider{
		provider.NewPool("gemini", gemini, provider.NewKeyRing("g1", "g2", "g3", "g4"), []string{"gemini-2.5-flash"}, nil),
		provider.NewPool("aiml", aiml, provider.NewKeyRing("a1"), []string{"gpt-3.5-turbo"}, nil),
	}, nil, nil)

	text, err := server.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "answer from g3", text)
	assert.Equal(t, []string{"g1", "g2", "g3"}, gemini.calls)
	assert.Empty(t, aiml.calls)
}

func TestFallbackChain_NestedExhaustion(t *testing.T) {
	gemini := &keyedCaller{limited: map[string]bool{"g1": true, "g2": true}}
	aiml := &keyedCaller{limited: map[string]bool{"a1": true}}
	health := NewHealthRegistry()

	server := NewFallbackChain("server", []domain.Provider{
		provider.NewPool("gemini", gemini, provider.NewKeyRing("g1", "g2"), nil, nil),
		provider.NewPool("aiml", aiml, provider.NewKeyRing("a1"), nil, nil),
	}, health, nil)
	cloud := newMockProvider("anthropic")
	cloud.On("Generate", mock.Anything, mock.Anything).Return("", &domain.ProviderError{Kind: domain.FailureHTTP, StatusCode: 529, Message: "overloaded"})

	client := NewFallbackChain("client", []domain.Provider{server, cloud}, health, nil)
	_, err := client.Run(context.Background(), domain.GenerationRequest{Prompt: "p"})

	require.Error(t, err)
	assert.Equal(t,
		"AI Unavailable: gemini: all 2 keys quota exceeded; aiml: all 1 keys quota exceeded; anthropic: 529 overloaded",
		err.Error())
	assert.True(t, domain.IsRateLimited(err))
	assert.Equal(t, domain.StatusAllKeysFailed, health.Get("gemini").Status)
	assert.Equal(t, domain.StatusError, health.Get("anthropic").Status)
	assert.NotContains(t, health.Snapshot(), "server")
}

func TestFallbackChain_NestedSuccessRecordsOnlyProviders(t *testing.T) {
	gemini := &keyedCaller{}
	health := NewHealthRegistry("gemini")

	server := NewFallbackChain("server", []domain.Provider{
		provider.NewPool("gemini", gemini, provider.NewKeyRing("g1"), nil, nil),
	}, health, nil)
	client := NewFallbackChain("client", []domain.Provider{server}, health, nil)

	_, err := client.Run(context.Background(), domain.GenerationRequest{Prompt: "p"})
	require.NoError(t, err)

	snapshot := health.Snapshot()
	assert.Len(t, snapshot, 1)
	assert.Equal(t, domain.StatusWorking, snapshot["gemini"].Status)
	assert.NotContains(t, snapshot, "server")
}

func TestStatusFor_CreditExhaustion(t *testing.T) {
	for _, status := range []int{http.StatusPaymentRequired, http.StatusForbidden} {
		err := &domain.ProviderError{Provider: "aiml", Kind: domain.FailureQuota, StatusCode: status}
		assert.Equal(t, domain.StatusNoCredits, StatusFor(err), "status %d", status)
	}
	limited := &domain.ProviderError{Provider: "gemini", Kind: domain.FailureQuota, StatusCode: http.StatusTooManyRequests}
	assert.Equal(t, domain.StatusAllKeysFailed, StatusFor(limited))
}
