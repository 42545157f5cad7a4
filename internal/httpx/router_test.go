package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/campaign-analyzer/internal/analysis"
	"github.com/AngelCh415/campaign-analyzer/internal/catalog"
	"github.com/AngelCh415/campaign-analyzer/internal/ingest"
	"github.com/AngelCh415/campaign-analyzer/internal/llm"
	"github.com/AngelCh415/campaign-analyzer/internal/metrics"
	"github.com/AngelCh415/campaign-analyzer/internal/models"
	"github.com/AngelCh415/campaign-analyzer/internal/store"
	"github.com/AngelCh415/campaign-analyzer/internal/telemetry"
)

type fakeProxy struct {
	raw json.RawMessage
	err error
}

func (f *fakeProxy) Forward(context.Context, llm.CompletionRequest) (json.RawMessage, error) {
	return f.raw, f.err
}

type fakeCompleter struct {
	reply string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(context.Context, string, float64, int) (string, error) {
	f.calls++
	return f.reply, f.err
}

const reply = `{"executiveSummary":"Good","performanceAnalysis":"p","trendAnalysis":"t","recommendations":"r","visualizations":[]}`

type env struct {
	h     http.Handler
	st    *store.MemoryStore
	llm   *fakeCompleter
	proxy *fakeProxy
}

func newEnv(t *testing.T, orderURL string) *env {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	settings, err := store.OpenSettings(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = settings.Close() })

	st := store.NewMemoryStore()
	cat := catalog.MustDefault()
	tel := telemetry.New()
	cl := &fakeCompleter{reply: reply}
	px := &fakeProxy{}
	h := NewRouter(Deps{
		Log:        log,
		Store:      st,
		Settings:   settings,
		Catalog:    cat,
		Loader:     ingest.NewLoader(ingest.NewHTTPClient(time.Second), orderURL, cat.Tables, log),
		Metrics:    metrics.NewService(st),
		Analysis:   analysis.NewService(st, settings, cat, cl, tel, log, 8192),
		Proxy:      px,
		Telemetry:  tel,
		CORSOrigin: "*",
	})
	return &env{h: h, st: st, llm: cl, proxy: px}
}

func (e *env) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e := newEnv(t, "")
	assert.Equal(t, 200, e.do("GET", "/healthz", nil, "").Code)
	assert.Equal(t, 200, e.do("GET", "/readyz", nil, "").Code)
	rec := e.do("GET", "/metrics", nil, "")
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "report_http_request_duration_seconds")
}

func TestProxyEndpoint(t *testing.T) {
	e := newEnv(t, "")
	e.proxy.raw = json.RawMessage(`{"content":[{"type":"text","text":"hi"}]}`)
	rec := e.do("POST", "/api/analyze", strings.NewReader(`{"prompt":"x"}`), "application/json")
	require.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"content":[{"type":"text","text":"hi"}]}`, rec.Body.String())

	e.proxy.err = llm.ErrNotConfigured
	rec = e.do("POST", "/api/analyze", strings.NewReader(`{"prompt":"x"}`), "application/json")
	assert.Equal(t, 500, rec.Code)
	assert.JSONEq(t, `{"error":"Anthropic API key not configured"}`, rec.Body.String())

	e.proxy.err = &llm.StatusError{Code: 429, Message: "API request failed: 429 - rate limited"}
	rec = e.do("POST", "/api/analyze", strings.NewReader(`{"prompt":"x"}`), "application/json")
	assert.Equal(t, 429, rec.Code)
	assert.JSONEq(t, `{"error":"API request failed: 429 - rate limited"}`, rec.Body.String())

	rec = e.do("POST", "/api/analyze", strings.NewReader(`{"prompt":"  "}`), "application/json")
	assert.Equal(t, 400, rec.Code)
}

func TestCampaignUploadAndTactics(t *testing.T) {
	e := newEnv(t, "")
	assert.Equal(t, 404, e.do("GET", "/api/campaign", nil, "").Code)

	body := `{"lineItems":[{"product":"Meta","subProduct":["FB"]},{"product":"SEM","tacticTypeSpecial":"zzz"}]}`
	rec := e.do("POST", "/api/campaign", strings.NewReader(body), "application/json")
	require.Equal(t, 200, rec.Code, rec.Body.String())

	var got campaignResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.LineItems)
	require.Len(t, got.Tactics, 2)
	assert.Equal(t, "Meta", got.Tactics[0].Tactic)
	assert.Equal(t, "SEM", got.Tactics[1].Tactic)
	assert.True(t, got.Tactics[0].Mapped)
	assert.Equal(t, "Monthly Performance", got.Tactics[0].Tables[0])
	assert.Empty(t, got.Tactics[0].Uploaded)

	rec = e.do("GET", "/api/campaign", nil, "")
	require.Equal(t, 200, rec.Code)
	assert.JSONEq(t, body, rec.Body.String())

	rec = e.do("POST", "/api/campaign", strings.NewReader(`[1,2]`), "application/json")
	assert.Equal(t, 400, rec.Code)
}

func TestLoadOrderEndpoint(t *testing.T) {
	orders := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"lineItems":[{"product":"Hulu"}]}`))
	}))
	defer orders.Close()
	e := newEnv(t, orders.URL+"/orders/{orderId}")

	rec := e.do("POST", "/api/campaign/order", strings.NewReader(`{"url":"https://app/x/65a1b2c3d4e5f60718293a4b"}`), "application/json")
	require.Equal(t, 200, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"Hulu"}, e.st.Tactics())

	rec = e.do("POST", "/api/campaign/order", strings.NewReader(`{"url":"https://app/x/1"}`), "application/json")
	assert.Equal(t, 400, rec.Code)
}

func TestCompanyUpload(t *testing.T) {
	e := newEnv(t, "")
	rec := e.do("POST", "/api/company", strings.NewReader("Acme\nGeneration Costs: $4"), "text/plain")
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "Acme", e.st.Company())
}

func TestPutTableAndList(t *testing.T) {
	e := newEnv(t, "")
	csv := "Month,Impressions,Clicks\nJan,1000,10\n"
	rec := e.do("PUT", "/api/tables/Meta/Monthly%20Performance?file=m.csv", strings.NewReader(csv), "text/csv")
	require.Equal(t, 200, rec.Code, rec.Body.String())

	got, ok := e.st.Table("Meta", "Monthly Performance")
	require.True(t, ok)
	assert.Equal(t, "m.csv", got.FileName)

	rec = e.do("GET", "/api/tables", nil, "")
	require.Equal(t, 200, rec.Code)
	var body struct {
		Tables []tableSummary     `json:"tables"`
		KPIs   []models.TableKPIs `json:"kpis"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Tables, 1)
	require.Len(t, body.KPIs, 1)
	assert.Equal(t, 1.0, body.KPIs[0].CTR)

	rec = e.do("PUT", "/api/tables/Meta/DMA%20Performance", strings.NewReader(""), "text/csv")
	assert.Equal(t, 400, rec.Code)
}

func TestBulkUpload(t *testing.T) {
	e := newEnv(t, "")
	e.st.SetCampaign(models.Campaign{}, []string{"Meta"})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	files := map[string]string{
		"meta-dma-performance.csv": "DMA,Impressions\nBoston,10\n",
		"notes.txt":                "hello",
		"meta-nothing.csv":         "A\n1\n",
	}
	for _, name := range []string{"meta-dma-performance.csv", "notes.txt", "meta-nothing.csv"} {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		fw.Write([]byte(files[name]))
	}
	require.NoError(t, mw.Close())

	rec := e.do("POST", "/api/tables/bulk", &buf, mw.FormDataContentType())
	require.Equal(t, 200, rec.Code, rec.Body.String())
	var sum struct {
		Processed, Errors, Skipped int
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 1, sum.Errors)
	assert.Equal(t, 1, sum.Skipped)
	_, ok := e.st.Table("Meta", "DMA Performance")
	assert.True(t, ok)

	rec = e.do("GET", "/api/tactics", nil, "")
	assert.Contains(t, rec.Body.String(), `"DMA Performance"`)
}

func TestAnalyzeFlow(t *testing.T) {
	e := newEnv(t, "")
	rec := e.do("POST", "/api/report/analyze", nil, "")
	assert.Equal(t, 400, rec.Code)

	e.st.SetCampaign(models.Campaign{Raw: []byte(`{}`)}, []string{"Meta"})
	e.st.SetCompany("Acme")
	assert.Equal(t, 404, e.do("GET", "/api/report", nil, "").Code)

	rec = e.do("POST", "/api/report/analyze?days=60", nil, "")
	require.Equal(t, 200, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"timeRange": "Last 60 days"`)

	rec = e.do("GET", "/api/report/text", nil, "")
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "CAMPAIGN PERFORMANCE ANALYSIS"))

	e.do("PUT", "/api/tables/Meta/DMA%20Performance", strings.NewReader("DMA\nBoston\n"), "text/csv")
	rec = e.do("POST", "/api/report/analyze", nil, "")
	require.Equal(t, 409, rec.Code)
	assert.Contains(t, rec.Body.String(), "Meta - DMA Performance")

	rec = e.do("POST", "/api/report/analyze?confirm=true", nil, "")
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, 2, e.llm.calls)

	e.llm.err = &llm.StatusError{Code: 529, Message: "API request failed: 529 - Overloaded"}
	rec = e.do("POST", "/api/report/analyze?confirm=true", nil, "")
	assert.Equal(t, 502, rec.Code)
	assert.Contains(t, rec.Body.String(), "Overloaded")

	assert.Equal(t, 400, e.do("POST", "/api/report/analyze?days=abc", nil, "").Code)

	rec = e.do("GET", "/api/report/prompt?days=90", nil, "")
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Last 90 days")
	rec = e.do("GET", "/api/report/prompt", nil, "")
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Last 30 days")
	rec = e.do("GET", "/api/report/prompt?days=abc", nil, "")
	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), "days must be an integer")

	assert.Equal(t, 204, e.do("DELETE", "/api/session", nil, "").Code)
	assert.Equal(t, 404, e.do("GET", "/api/report", nil, "").Code)
	assert.Empty(t, e.st.Tactics())
}

func TestCampaignModifierSettings(t *testing.T) {
	e := newEnv(t, "")
	rec := e.do("GET", "/api/settings/campaign-modifiers", nil, "")
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"saved": false`)
	assert.Contains(t, rec.Body.String(), "Targeted Display")

	patch := `{"tactic":"Meta","section":"geographicBaselines.regions","key":"West","metric":"cpc","value":"1.75abc"}`
	rec = e.do("PATCH", "/api/settings/campaign-modifiers", strings.NewReader(patch), "application/json")
	require.Equal(t, 200, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"cpc": 1.75`)

	rec = e.do("GET", "/api/settings/campaign-modifiers", nil, "")
	assert.Contains(t, rec.Body.String(), `"saved": true`)

	bad := `{"tactic":"Meta","section":"nope","key":"West","metric":"cpc","value":1}`
	assert.Equal(t, 400, e.do("PATCH", "/api/settings/campaign-modifiers", strings.NewReader(bad), "application/json").Code)

	rec = e.do("PUT", "/api/settings/campaign-modifiers", strings.NewReader(`{}`), "application/json")
	require.Equal(t, 200, rec.Code)
	rec = e.do("GET", "/api/settings/campaign-modifiers", nil, "")
	assert.NotContains(t, rec.Body.String(), "Targeted Display")
}

func TestAIModifierSettings(t *testing.T) {
	e := newEnv(t, "")
	rec := e.do("GET", "/api/settings/ai-modifiers", nil, "")
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tone": "constructive"`)

	rec = e.do("PUT", "/api/settings/ai-modifiers", strings.NewReader(`{"temperature":0.2,"tone":"Technical","showCharts":false}`), "application/json")
	require.Equal(t, 200, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"tone": "technical"`)
	assert.Contains(t, rec.Body.String(), `"showCharts": false`)

	rec = e.do("PUT", "/api/settings/ai-modifiers", strings.NewReader(`{"temperature":3}`), "application/json")
	assert.Equal(t, 400, rec.Code)
}
