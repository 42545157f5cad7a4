package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/AngelCh415/campaign-analyzer/internal/analysis"
	"github.com/AngelCh415/campaign-analyzer/internal/classify"
	"github.com/AngelCh415/campaign-analyzer/internal/csvtable"
	"github.com/AngelCh415/campaign-analyzer/internal/ingest"
	"github.com/AngelCh415/campaign-analyzer/internal/llm"
	"github.com/AngelCh415/campaign-analyzer/internal/models"
	"github.com/AngelCh415/campaign-analyzer/internal/modifiers"
)

const (
	maxJSONBody   = 8 << 20
	maxBulkMemory = 64 << 20
	readers       = 4
)

func (a *api) proxy(w http.ResponseWriter, r *http.Request) {
	var req llm.CompletionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	raw, err := a.Proxy.Forward(r.Context(), req)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if se, ok := llm.AsStatus(err); ok {
			a.Telemetry.UpstreamStatus(se.Code)
			writeError(w, se.Code, se.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error: "+err.Error())
		return
	}
	a.Telemetry.UpstreamStatus(http.StatusOK)
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

type campaignResponse struct {
	LineItems int                   `json:"lineItems"`
	Tactics   []models.TacticStatus `json:"tactics"`
}

func (a *api) loadOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, tactics, err := a.Loader.LoadOrder(r.Context(), body.URL)
	switch {
	case err == nil:
	case errors.Is(err, ingest.ErrNoOrderID):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ingest.ErrUpstream), errors.Is(err, ingest.ErrInvalidCampaign):
		writeError(w, http.StatusBadGateway, err.Error())
		return
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.Store.SetCampaign(c, tactics)
	writeJSON(w, campaignResponse{LineItems: len(c.LineItems), Tactics: a.statuses()})
}

func (a *api) uploadCampaign(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	c, tactics, err := ingest.LoadCampaign(raw, a.Catalog.Tables)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error parsing JSON file: "+err.Error())
		return
	}
	a.Store.SetCampaign(c, tactics)
	a.Log.Info("campaign uploaded", slog.Int("line_items", len(c.LineItems)), slog.Int("tactics", len(tactics)))
	writeJSON(w, campaignResponse{LineItems: len(c.LineItems), Tactics: a.statuses()})
}

// campaign echoes the loaded campaign document.
func (a *api) campaign(w http.ResponseWriter, r *http.Request) {
	c, ok := a.Store.Campaign()
	if !ok || len(c.Raw) == 0 {
		writeError(w, http.StatusNotFound, "no campaign loaded")
		return
	}
	writeJSON(w, c.Raw)
}

func (a *api) uploadCompany(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	text := ingest.CleanCompanyText(string(raw))
	a.Store.SetCompany(text)
	writeJSON(w, map[string]any{"companyInfo": text, "length": len(text)})
}

func (a *api) tactics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.statuses())
}

// statuses lists detected tactics with their mapping, expected tables and
// which of those tables have been uploaded.
func (a *api) statuses() []models.TacticStatus {
	out := []models.TacticStatus{}
	for _, t := range a.Store.Tactics() {
		st := models.TacticStatus{Tactic: t, Tables: a.Catalog.Tables.For(t), Uploaded: []string{}}
		if m, ok := a.Catalog.Categories.MapToProduct(t); ok {
			st.Mapped = true
			st.Product = m.Product
			st.SubProducts = m.SubProducts
		}
		for _, tbl := range st.Tables {
			if _, ok := a.Store.Table(t, tbl); ok {
				st.Uploaded = append(st.Uploaded, tbl)
			}
		}
		out = append(out, st)
	}
	return out
}

type tableSummary struct {
	Key      string   `json:"key"`
	Tactic   string   `json:"tactic"`
	Table    string   `json:"table"`
	FileName string   `json:"fileName"`
	Headers  []string `json:"headers"`
	Rows     int      `json:"rows"`
}

func (a *api) tables(w http.ResponseWriter, r *http.Request) {
	kpis, err := a.Metrics.TableRollups(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list := []tableSummary{}
	for _, t := range a.Store.Tables() {
		list = append(list, tableSummary{Key: t.Key(), Tactic: t.Tactic, Table: t.TableName, FileName: t.FileName, Headers: t.Headers, Rows: len(t.Rows)})
	}
	writeJSON(w, map[string]any{"tables": list, "kpis": kpis, "newFiles": a.Store.NewFiles()})
}

func (a *api) putTable(w http.ResponseWriter, r *http.Request) {
	tactic := strings.TrimSpace(chi.URLParam(r, "tactic"))
	table := strings.TrimSpace(chi.URLParam(r, "table"))
	if tactic == "" || table == "" {
		writeError(w, http.StatusBadRequest, "tactic and table are required")
		return
	}
	tbl, err := csvtable.ParseReader(http.MaxBytesReader(w, r.Body, classify.MaxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error parsing table file: "+err.Error())
		return
	}
	if len(tbl.Headers) == 0 {
		writeError(w, http.StatusBadRequest, "empty table")
		return
	}
	file := r.URL.Query().Get("file")
	if file == "" {
		file = tactic + " - " + table + ".csv"
	}
	pt := models.ParsedTable{FileName: file, TableName: table, Tactic: tactic, Headers: tbl.Headers, Rows: tbl.Rows}
	a.Store.Put(pt)
	writeJSON(w, map[string]any{
		"key":      pt.Key(),
		"headers":  pt.Headers,
		"rows":     len(pt.Rows),
		"newFiles": a.Store.NewFiles(),
	})
}

func (a *api) bulkUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxBulkMemory); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form expected: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()
	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File["files"]...)
	headers = append(headers, r.MultipartForm.File["files[]"]...)
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files")
		return
	}

	srcs := make([]classify.Source, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		srcs = append(srcs, classify.Source{
			Name: fh.Filename,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	uploads := classify.ReadUploads(r.Context(), srcs, readers)

	groups := classify.BuildGroups(a.Store.Tactics(), a.Catalog.Categories)
	sum := classify.New(groups, a.Catalog.Tables, a.Log).Run(uploads, a.Store)
	for _, o := range sum.Outcomes {
		if o.Assigned() {
			a.Telemetry.Classification("assigned")
		} else {
			a.Telemetry.Classification(string(o.Reason))
		}
	}
	writeJSON(w, sum)
}

// queryDays reads ?days=, defaulting to analysis.DefaultDays. Range checks
// are left to the analysis service.
func queryDays(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("days")
	if v == "" {
		return analysis.DefaultDays, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "days must be an integer")
		return 0, false
	}
	return n, true
}

func (a *api) analyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days, ok := queryDays(w, r)
	if !ok {
		return
	}
	confirm, _ := strconv.ParseBool(q.Get("confirm"))

	rep, err := a.Analysis.Run(r.Context(), analysis.Options{Days: days, Confirm: confirm, Objective: q.Get("objective")})
	if err != nil {
		a.analysisError(w, err)
		return
	}
	writeJSON(w, rep)
}

func (a *api) analysisError(w http.ResponseWriter, err error) {
	var ue *analysis.UnconfirmedError
	switch {
	case errors.As(err, &ue):
		writeJSONStatus(w, http.StatusConflict, map[string]any{"error": ue.Error(), "newFiles": ue.NewFiles})
	case errors.Is(err, analysis.ErrMissingInput), errors.Is(err, analysis.ErrBadDays):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		if se, ok := llm.AsStatus(err); ok {
			writeError(w, http.StatusBadGateway, "Error generating analysis: "+se.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, "Error generating analysis: "+err.Error())
	}
}

func (a *api) report(w http.ResponseWriter, r *http.Request) {
	res, at, ok := a.Store.Result()
	if !ok {
		writeError(w, http.StatusNotFound, "no analysis yet")
		return
	}
	writeJSON(w, map[string]any{"result": res, "generatedAt": at, "newFiles": a.Store.NewFiles()})
}

func (a *api) reportText(w http.ResponseWriter, r *http.Request) {
	res, _, ok := a.Store.Result()
	if !ok {
		writeError(w, http.StatusNotFound, "no analysis yet")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, res.Text())
}

func (a *api) reportPrompt(w http.ResponseWriter, r *http.Request) {
	days, ok := queryDays(w, r)
	if !ok {
		return
	}
	p, err := a.Analysis.Prompt(r.Context(), analysis.Options{Days: days, Objective: r.URL.Query().Get("objective")})
	if err != nil {
		a.analysisError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, p)
}

func (a *api) reset(w http.ResponseWriter, r *http.Request) {
	a.Store.Reset()
	a.Log.Info("session reset")
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) getCampaignModifiers(w http.ResponseWriter, r *http.Request) {
	t, saved, err := a.Settings.CampaignModifiers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"modifiers": t, "saved": saved})
}

func (a *api) putCampaignModifiers(w http.ResponseWriter, r *http.Request) {
	var t modifiers.Table
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid modifiers: "+err.Error())
		return
	}
	if t == nil {
		t = modifiers.Table{}
	}
	if err := a.Settings.SaveCampaignModifiers(r.Context(), t); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"modifiers": t, "saved": true})
}

// patchCampaignModifiers applies one cell edit to the saved (or default)
// table and saves the whole value back.
func (a *api) patchCampaignModifiers(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tactic  string          `json:"tactic"`
		Section string          `json:"section"`
		Key     string          `json:"key"`
		Metric  string          `json:"metric"`
		Value   json.RawMessage `json:"value"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, _, err := a.Settings.CampaignModifiers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	u := modifiers.Update{Tactic: body.Tactic, Section: body.Section, Key: body.Key, Metric: body.Metric, Value: rawValue(body.Value)}
	if err := t.Apply(u); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.Settings.SaveCampaignModifiers(r.Context(), t); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"modifiers": t, "saved": true})
}

// rawValue accepts "2.5" or 2.5.
func rawValue(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func (a *api) getAIModifiers(w http.ResponseWriter, r *http.Request) {
	ai, err := a.Settings.AIModifiers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, ai)
}

func (a *api) putAIModifiers(w http.ResponseWriter, r *http.Request) {
	ai := modifiers.DefaultAI()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&ai); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.Settings.SaveAIModifiers(r.Context(), ai); err != nil {
		if errors.Is(err, modifiers.ErrUnknownTone) || errors.Is(err, modifiers.ErrBadTemperature) || errors.Is(err, modifiers.ErrInstructionSize) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("save ai modifiers: %v", err))
		return
	}
	saved, err := a.Settings.AIModifiers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, saved)
}
