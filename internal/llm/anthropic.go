package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type ProxyConfig struct {
	APIKey    string
	Model     string
	MaxTokens int // ceiling
	BaseURL   string
}

// Proxy forwards completion requests to the Anthropic Messages API and
// relays the provider envelope untouched.
type Proxy struct {
	client  anthropic.Client
	model   string
	ceiling int64
	enabled bool
	log     *slog.Logger
}

func NewProxy(cfg ProxyConfig, log *slog.Logger) *Proxy {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	ceiling := int64(cfg.MaxTokens)
	if ceiling <= 0 {
		ceiling = 8192
	}
	return &Proxy{
		client:  anthropic.NewClient(opts...),
		model:   cfg.Model,
		ceiling: ceiling,
		enabled: strings.TrimSpace(cfg.APIKey) != "",
		log:     log,
	}
}

// Forward sends one user message. Provider errors carry the upstream status,
// transport errors 500.
func (p *Proxy) Forward(ctx context.Context, req CompletionRequest) (json.RawMessage, error) {
	if !p.enabled {
		p.log.Error("missing Anthropic API key")
		return nil, ErrNotConfigured
	}
	maxTokens := p.ceiling
	if req.MaxTokens > 0 && int64(req.MaxTokens) < maxTokens {
		maxTokens = int64(req.MaxTokens)
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			se := &StatusError{
				Code:    apiErr.StatusCode,
				Message: fmt.Sprintf("API request failed: %d - %s", apiErr.StatusCode, providerMessage(apiErr.RawJSON())),
			}
			p.log.Warn("anthropic request failed", slog.Int("status", se.Code))
			return nil, se
		}
		p.log.Error("anthropic request error", slog.String("err", err.Error()))
		return nil, &StatusError{Code: http.StatusInternalServerError, Message: "Internal server error: " + err.Error()}
	}
	p.log.Debug("anthropic response",
		slog.Int64("tokens_in", msg.Usage.InputTokens), slog.Int64("tokens_out", msg.Usage.OutputTokens))
	return json.RawMessage(msg.RawJSON()), nil
}

func providerMessage(raw string) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(raw), &body) == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return "Unknown error"
}
