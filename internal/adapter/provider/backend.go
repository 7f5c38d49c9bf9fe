package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ccee-sentinel/internal/domain"
)

// BackendProvider forwards prompts to another sentinel instance's POST /api/chat.
type BackendProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewBackendProvider(baseURL string, httpClient *http.Client) *BackendProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BackendProvider{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (b *BackendProvider) Name() string {
	return "backend"
}

func (b *BackendProvider) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"message": prompt})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		if isContextErr(ctx, err) {
			return "", ctx.Err()
		}
		return "", networkError(b.Name(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", networkError(b.Name(), fmt.Errorf("read response: %w", err))
	}

	var decoded struct {
		Response    string `json:"response"`
		MermaidCode string `json:"mermaidCode"`
		Error       string `json:"error"`
		Message     string `json:"message"`
	}
	jsonErr := json.Unmarshal(respBody, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := ""
		if jsonErr == nil {
			message = decoded.Message
			if message == "" {
				message = decoded.Error
			}
		}
		return "", statusError(b.Name(), resp.StatusCode, message)
	}

	var text string
	switch {
	case jsonErr != nil:
		text = string(respBody)
	case decoded.Response != "":
		text = decoded.Response
	case decoded.MermaidCode != "":
		text = decoded.MermaidCode
	default:
		text = string(respBody)
	}
	if strings.TrimSpace(text) == "" {
		return "", &domain.ProviderError{Provider: b.Name(), Kind: domain.FailureEmpty, Message: "empty response"}
	}
	return text, nil
}
