package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AngelCh415/campaign-analyzer/internal/analysis"
	"github.com/AngelCh415/campaign-analyzer/internal/catalog"
	"github.com/AngelCh415/campaign-analyzer/internal/config"
	"github.com/AngelCh415/campaign-analyzer/internal/httpx"
	"github.com/AngelCh415/campaign-analyzer/internal/ingest"
	"github.com/AngelCh415/campaign-analyzer/internal/llm"
	"github.com/AngelCh415/campaign-analyzer/internal/metrics"
	"github.com/AngelCh415/campaign-analyzer/internal/store"
	"github.com/AngelCh415/campaign-analyzer/internal/telemetry"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	cat, err := catalog.Default()
	if err != nil {
		logger.Error("catalog", slog.String("err", err.Error()))
		os.Exit(1)
	}
	settings, err := store.OpenSettings(cfg.SettingsDBPath)
	if err != nil {
		logger.Error("settings store", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer settings.Close()

	st := store.NewMemoryStore()
	tel := telemetry.New()
	loader := ingest.NewLoader(ingest.NewHTTPClient(cfg.HTTPTimeout), cfg.OrderURL, cat.Tables, logger)
	completer := llm.NewCompletionClient(ingest.NewHTTPClient(cfg.CompletionTimeout), cfg.CompletionURL)
	proxy := llm.NewProxy(llm.ProxyConfig{
		APIKey:    cfg.AnthropicAPIKey,
		Model:     cfg.AnthropicModel,
		MaxTokens: cfg.AnthropicMaxTokens,
		BaseURL:   cfg.AnthropicBaseURL,
	}, logger)
	if cfg.AnthropicAPIKey == "" {
		logger.Warn("ANTHROPIC_API_KEY not set; /api/analyze will fail")
	}

	r := httpx.NewRouter(httpx.Deps{
		Log:        logger,
		Store:      st,
		Settings:   settings,
		Catalog:    cat,
		Loader:     loader,
		Metrics:    metrics.NewService(st),
		Analysis:   analysis.NewService(st, settings, cat, completer, tel, logger, cfg.CompletionMaxTokens),
		Proxy:      proxy,
		Telemetry:  tel,
		CORSOrigin: cfg.CORSOrigin,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	logger.Info("starting server", slog.String("port", cfg.Port), slog.String("model", cfg.AnthropicModel))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
