package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	HTTPTimeout time.Duration
	LogLevel    slog.Level
	CORSOrigin  string

	// OrderURL is the order lookup template; "{orderId}" is replaced.
	OrderURL string

	CompletionURL       string
	CompletionTimeout   time.Duration
	CompletionMaxTokens int

	AnthropicAPIKey    string
	AnthropicModel     string
	AnthropicMaxTokens int
	AnthropicBaseURL   string

	SettingsDBPath string
}

// Load reads a .env file when present, then the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	lvl := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		lvl = slog.LevelDebug
	}
	port := envOr("PORT", "8080")
	return Config{
		Port:        port,
		HTTPTimeout: seconds("HTTP_TIMEOUT_SECONDS", 15*time.Second),
		LogLevel:    lvl,
		CORSOrigin:  envOr("CORS_ORIGIN", "*"),

		OrderURL: os.Getenv("ORDER_API_URL"),

		CompletionURL:       envOr("COMPLETION_URL", "http://127.0.0.1:"+port+"/api/analyze"),
		CompletionTimeout:   seconds("COMPLETION_TIMEOUT_SECONDS", 180*time.Second),
		CompletionMaxTokens: intOr("COMPLETION_MAX_TOKENS", 8192),

		AnthropicAPIKey:    envOr("NEXT_PUBLIC_ANTHROPIC_API_KEY", os.Getenv("ANTHROPIC_API_KEY")),
		AnthropicModel:     envOr("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
		AnthropicMaxTokens: intOr("ANTHROPIC_MAX_TOKENS", 8192),
		AnthropicBaseURL:   os.Getenv("ANTHROPIC_BASE_URL"),

		SettingsDBPath: envOr("SETTINGS_DB_PATH", "data/settings.db"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func seconds(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func intOr(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil && v > 0 {
		return v
	}
	return def
}
