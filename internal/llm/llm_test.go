package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messageJSON = `{"id":"msg_01","type":"message","role":"assistant","model":"claude-3-5-sonnet-20241022",` +
	`"content":[{"type":"text","text":"{\"executiveSummary\":\"ok\"}"}],"stop_reason":"end_turn",` +
	`"stop_sequence":null,"usage":{"input_tokens":10,"output_tokens":5}}`

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestProxyRelaysEnvelope(t *testing.T) {
	var got struct {
		Model       string   `json:"model"`
		MaxTokens   int      `json:"max_tokens"`
		Temperature *float64 `json:"temperature"`
		Messages    []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(messageJSON))
	}))
	defer srv.Close()

	p := NewProxy(ProxyConfig{APIKey: "test-key", Model: "claude-3-5-sonnet-20241022", MaxTokens: 8192, BaseURL: srv.URL}, quiet())
	temp := 0.3
	raw, err := p.Forward(context.Background(), CompletionRequest{Prompt: "hello", Temperature: &temp, MaxTokens: 50000})
	require.NoError(t, err)
	assert.JSONEq(t, messageJSON, string(raw))
	assert.Equal(t, "claude-3-5-sonnet-20241022", got.Model)
	assert.Equal(t, 8192, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.Equal(t, 0.3, *got.Temperature)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestProxyWithoutKey(t *testing.T) {
	p := NewProxy(ProxyConfig{Model: "m"}, quiet())
	_, err := p.Forward(context.Background(), CompletionRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, "Anthropic API key not configured", err.Error())
}

func TestProxyMapsProviderErrorsWithoutRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer srv.Close()

	p := NewProxy(ProxyConfig{APIKey: "k", Model: "m", BaseURL: srv.URL}, quiet())
	_, err := p.Forward(context.Background(), CompletionRequest{Prompt: "x"})
	se, ok := AsStatus(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, 529, se.Code)
	assert.Equal(t, "API request failed: 529 - Overloaded", se.Message)
	assert.Equal(t, 1, calls)
}

func TestCompleteReturnsFirstText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req CompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "prompt", req.Prompt)
		require.NotNil(t, req.Temperature)
		assert.Equal(t, 0.7, *req.Temperature)
		assert.Equal(t, 8192, req.MaxTokens)
		w.Write([]byte(messageJSON))
	}))
	defer srv.Close()

	cc := NewCompletionClient(&http.Client{Timeout: time.Second}, srv.URL)
	text, err := cc.Complete(context.Background(), "prompt", 0.7, 8192)
	require.NoError(t, err)
	assert.Equal(t, `{"executiveSummary":"ok"}`, text)
}

func TestCompleteErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		code   int
		msg    string
	}{
		{"proxy error", 529, `{"error":"API request failed: 529 - Overloaded"}`, 529, "API request failed: 529 - Overloaded"},
		{"provider shape", 400, `{"error":{"message":"bad prompt"}}`, 400, "bad prompt"},
		{"empty body", 503, ``, 503, "Unknown error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewCompletionClient(srv.Client(), srv.URL).Complete(context.Background(), "p", 0.5, 10)
			se, ok := AsStatus(err)
			require.True(t, ok)
			assert.Equal(t, tc.code, se.Code)
			assert.Equal(t, tc.msg, se.Message)
		})
	}
}

func TestCompleteWithoutContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	_, err := NewCompletionClient(srv.Client(), srv.URL).Complete(context.Background(), "p", 0.5, 10)
	require.Error(t, err)
	_, isStatus := AsStatus(err)
	assert.False(t, isStatus)
}

func TestCompleteTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewCompletionClient(&http.Client{Timeout: time.Second}, url).Complete(context.Background(), "p", 0.5, 10)
	se, ok := AsStatus(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, se.Code)
}
