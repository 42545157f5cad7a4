package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AngelCh415/campaign-analyzer/internal/analysis"
	"github.com/AngelCh415/campaign-analyzer/internal/catalog"
	"github.com/AngelCh415/campaign-analyzer/internal/ingest"
	"github.com/AngelCh415/campaign-analyzer/internal/llm"
	"github.com/AngelCh415/campaign-analyzer/internal/metrics"
	"github.com/AngelCh415/campaign-analyzer/internal/store"
	"github.com/AngelCh415/campaign-analyzer/internal/telemetry"
	"github.com/AngelCh415/campaign-analyzer/internal/utils"
)

// Forwarder is the upstream behind POST /api/analyze.
type Forwarder interface {
	Forward(ctx context.Context, req llm.CompletionRequest) (json.RawMessage, error)
}

type Deps struct {
	Log        *slog.Logger
	Store      *store.MemoryStore
	Settings   *store.SettingsStore
	Catalog    *catalog.Catalog
	Loader     *ingest.Loader
	Metrics    *metrics.Service
	Analysis   *analysis.Service
	Proxy      Forwarder
	Telemetry  *telemetry.Metrics
	CORSOrigin string
}

type api struct{ Deps }

func NewRouter(d Deps) http.Handler {
	a := &api{d}
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Recover(d.Log))
	mux.Use(utils.Logger(d.Log))
	mux.Use(utils.Instrument(d.Telemetry))
	mux.Use(utils.CORS(d.CORSOrigin))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", a.ready)
	mux.Method(http.MethodGet, "/metrics", d.Telemetry.Handler())

	mux.Route("/api", func(r chi.Router) {
		r.Post("/analyze", a.proxy)

		r.Post("/campaign/order", a.loadOrder)
		r.Post("/campaign", a.uploadCampaign)
		r.Get("/campaign", a.campaign)
		r.Post("/company", a.uploadCompany)
		r.Get("/tactics", a.tactics)

		r.Get("/tables", a.tables)
		r.Post("/tables/bulk", a.bulkUpload)
		r.Put("/tables/{tactic}/{table}", a.putTable)

		r.Post("/report/analyze", a.analyze)
		r.Get("/report", a.report)
		r.Get("/report/text", a.reportText)
		r.Get("/report/prompt", a.reportPrompt)

		r.Delete("/session", a.reset)

		r.Get("/settings/campaign-modifiers", a.getCampaignModifiers)
		r.Put("/settings/campaign-modifiers", a.putCampaignModifiers)
		r.Patch("/settings/campaign-modifiers", a.patchCampaignModifiers)
		r.Get("/settings/ai-modifiers", a.getAIModifiers)
		r.Put("/settings/ai-modifiers", a.putAIModifiers)
	})

	return mux
}

func (a *api) ready(w http.ResponseWriter, r *http.Request) {
	if err := a.Settings.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "settings store unavailable")
		return
	}
	w.WriteHeader(200)
	w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, v any) { writeJSONStatus(w, http.StatusOK, v) }

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSONStatus(w, code, map[string]string{"error": msg})
}
