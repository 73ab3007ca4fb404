// Package llm implements the language capabilities (extraction,
// contradiction checking, facet classification) on top of an
// OpenAI-compatible chat completion endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultBaseURL = "https://api.openai.com/v1"
)

// OpenAIProvider sends chat completion requests.
type OpenAIProvider struct {
	Model      string
	APIKey     string
	endpoint   string
	httpClient *http.Client // nil means http.DefaultClient
}

// NewOpenAIProvider creates a provider. An empty baseURL targets the
// OpenAI API; any OpenAI-compatible server works.
func NewOpenAIProvider(model, apiKey, baseURL string) *OpenAIProvider {
	return NewOpenAIProviderWithClient(model, apiKey, baseURL, nil)
}

// NewOpenAIProviderWithClient creates a provider with a custom HTTP client.
func NewOpenAIProviderWithClient(model, apiKey, baseURL string, client *http.Client) *OpenAIProvider {
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OpenAIProvider{
		Model:      model,
		APIKey:     apiKey,
		endpoint:   strings.TrimRight(baseURL, "/") + "/chat/completions",
		httpClient: client,
	}
}

// ID names the provider and model.
func (p *OpenAIProvider) ID() string {
	return "openai:" + p.Model
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    float64         `json:"temperature"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one system + user exchange and returns the reply text.
// The reply is requested as a JSON object.
func (p *OpenAIProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("OpenAI API key not provided (set OPENAI_API_KEY)")
	}

	body, err := json.Marshal(chatRequest{
		Model: p.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	client := p.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAI API returned status: %s", resp.Status)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
