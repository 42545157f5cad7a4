package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CompletionRequest is the body accepted by the completion endpoint.
type CompletionRequest struct {
	Prompt      string   `json:"prompt"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
}

type envelope struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error json.RawMessage `json:"error"`
}

// CompletionClient posts prompts to the completion endpoint, normally this
// service's own /api/analyze.
type CompletionClient struct {
	c   HTTPClient
	url string
}

func NewCompletionClient(c HTTPClient, url string) *CompletionClient {
	return &CompletionClient{c: c, url: url}
}

// Complete returns the text of the first content block.
func (cc *CompletionClient) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	body, err := json.Marshal(CompletionRequest{Prompt: prompt, Temperature: &temperature, MaxTokens: maxTokens})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cc.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := cc.c.Do(req)
	if err != nil {
		return "", &StatusError{Code: http.StatusBadGateway, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &StatusError{Code: http.StatusBadGateway, Message: err.Error()}
	}
	var env envelope
	decErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, Message: errorMessage(env.Error, raw)}
	}
	if decErr != nil {
		return "", fmt.Errorf("completion response: %w", decErr)
	}
	if len(env.Content) == 0 {
		return "", errors.New("completion response has no content")
	}
	return env.Content[0].Text, nil
}

// errorMessage reads {"error":"..."} or {"error":{"message":"..."}}.
func errorMessage(e json.RawMessage, raw []byte) string {
	var s string
	if json.Unmarshal(e, &s) == nil && s != "" {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(e, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	if len(raw) > 1024 {
		raw = raw[:1024]
	}
	if len(raw) == 0 {
		return "Unknown error"
	}
	return string(raw)
}
