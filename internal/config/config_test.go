package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var vars = []string{
	"PORT", "LOG_LEVEL", "HTTP_TIMEOUT_SECONDS", "CORS_ORIGIN", "ORDER_API_URL",
	"COMPLETION_URL", "COMPLETION_TIMEOUT_SECONDS", "COMPLETION_MAX_TOKENS",
	"ANTHROPIC_API_KEY", "NEXT_PUBLIC_ANTHROPIC_API_KEY", "ANTHROPIC_MODEL",
	"ANTHROPIC_MAX_TOKENS", "ANTHROPIC_BASE_URL", "SETTINGS_DB_PATH",
}

func clearEnv(t *testing.T) {
	for _, v := range vars {
		t.Setenv(v, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	c := FromEnv()
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, 15*time.Second, c.HTTPTimeout)
	assert.Equal(t, slog.LevelInfo, c.LogLevel)
	assert.Equal(t, "*", c.CORSOrigin)
	assert.Equal(t, "http://127.0.0.1:8080/api/analyze", c.CompletionURL)
	assert.Equal(t, 180*time.Second, c.CompletionTimeout)
	assert.Equal(t, 8192, c.CompletionMaxTokens)
	assert.Equal(t, "claude-3-5-sonnet-20241022", c.AnthropicModel)
	assert.Equal(t, 8192, c.AnthropicMaxTokens)
	assert.Equal(t, "data/settings.db", c.SettingsDBPath)
	assert.Empty(t, c.AnthropicAPIKey)
}

func TestOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "3")
	t.Setenv("COMPLETION_MAX_TOKENS", "not-a-number")
	t.Setenv("ANTHROPIC_MAX_TOKENS", "4096")
	t.Setenv("ORDER_API_URL", "https://orders.example.com/api/orders/{orderId}")

	c := FromEnv()
	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, slog.LevelDebug, c.LogLevel)
	assert.Equal(t, 3*time.Second, c.HTTPTimeout)
	assert.Equal(t, "http://127.0.0.1:9090/api/analyze", c.CompletionURL)
	assert.Equal(t, 8192, c.CompletionMaxTokens)
	assert.Equal(t, 4096, c.AnthropicMaxTokens)
	assert.Equal(t, "https://orders.example.com/api/orders/{orderId}", c.OrderURL)
}

func TestAPIKeyPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "server-key")
	assert.Equal(t, "server-key", FromEnv().AnthropicAPIKey)
	// the public variable wins when both are set
	t.Setenv("NEXT_PUBLIC_ANTHROPIC_API_KEY", "public-key")
	assert.Equal(t, "public-key", FromEnv().AnthropicAPIKey)
}
