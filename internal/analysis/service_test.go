package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/campaign-analyzer/internal/catalog"
	"github.com/AngelCh415/campaign-analyzer/internal/models"
	"github.com/AngelCh415/campaign-analyzer/internal/modifiers"
	"github.com/AngelCh415/campaign-analyzer/internal/repair"
	"github.com/AngelCh415/campaign-analyzer/internal/store"
	"github.com/AngelCh415/campaign-analyzer/internal/telemetry"
)

type fakeCompleter struct {
	reply   string
	err     error
	prompts []string
	temps   []float64
}

func (f *fakeCompleter) Complete(_ context.Context, p string, temp float64, _ int) (string, error) {
	f.prompts = append(f.prompts, p)
	f.temps = append(f.temps, temp)
	return f.reply, f.err
}

type fakeSettings struct {
	bench modifiers.Table
	saved bool
	ai    modifiers.AIModifiers
}

func (f fakeSettings) CampaignModifiers(context.Context) (modifiers.Table, bool, error) {
	return f.bench, f.saved, nil
}
func (f fakeSettings) AIModifiers(context.Context) (modifiers.AIModifiers, error) { return f.ai, nil }

const goodReply = "```json\n" + `{"executiveSummary":"Strong month","performanceAnalysis":"p","trendAnalysis":"t",` +
	`"recommendations":"r","visualizations":[{"type":"bar","title":"Clicks","data":{"labels":["Jan"],"values":[3]}}]}` + "\n```"

func setup(t *testing.T, llm *fakeCompleter, settings fakeSettings) (*Service, *store.MemoryStore, *telemetry.Metrics) {
	t.Helper()
	st := store.NewMemoryStore()
	tel := telemetry.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(st, settings, catalog.MustDefault(), llm, tel, log, 8192)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, st, tel
}

func loadSession(st *store.MemoryStore) {
	st.SetCampaign(models.Campaign{Raw: []byte(`{"lineItems":[{"product":"Meta"}]}`)}, []string{"Meta"})
	st.SetCompany("Acme Plumbing")
	st.Put(models.ParsedTable{
		FileName: "meta-monthly-performance.csv", TableName: "Monthly Performance", Tactic: "Meta",
		Headers: []string{"Month", "Impressions", "Clicks"},
		Rows:    []map[string]any{{"Month": "Jan", "Impressions": "1000", "Clicks": "20"}},
	})
}

func TestRunRequiresCampaignAndCompany(t *testing.T) {
	llm := &fakeCompleter{reply: goodReply}
	svc, st, _ := setup(t, llm, fakeSettings{ai: modifiers.DefaultAI()})

	_, err := svc.Run(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrMissingInput)

	st.SetCampaign(models.Campaign{Raw: []byte(`{}`)}, nil)
	st.SetCompany("   ")
	_, err = svc.Run(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrMissingInput)
	assert.Empty(t, llm.prompts)
}

func TestRunStoresRepairedResult(t *testing.T) {
	llm := &fakeCompleter{reply: goodReply}
	svc, st, tel := setup(t, llm, fakeSettings{ai: modifiers.AIModifiers{Temperature: 0.4, Tone: modifiers.ToneTechnical, ShowCharts: true}})
	loadSession(st)

	rep, err := svc.Run(context.Background(), Options{Days: 60, Objective: "More calls"})
	require.NoError(t, err)
	assert.Equal(t, repair.StageDirect, rep.Stage)
	assert.Equal(t, "Last 60 days", rep.TimeRange)
	assert.Equal(t, "Strong month", rep.Result.ExecutiveSummary)
	require.Len(t, rep.Result.Visualizations, 1)
	assert.Equal(t, models.ChartBar, rep.Result.Visualizations[0].Type)

	stored, at, ok := st.Result()
	require.True(t, ok)
	assert.Equal(t, rep.Result, stored)
	assert.Equal(t, 2026, at.Year())

	require.Len(t, llm.prompts, 1)
	p := llm.prompts[0]
	assert.Contains(t, p, "Acme Plumbing")
	assert.Contains(t, p, "Last 60 days")
	assert.Contains(t, p, "More calls")
	assert.Contains(t, p, "Monthly Performance")
	assert.NotContains(t, p, "BENCHMARK MODIFIERS")
	assert.Equal(t, []float64{0.4}, llm.temps)
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.Completions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.RepairStages.WithLabelValues("direct")))
}

func TestRunIncludesSavedBenchmarks(t *testing.T) {
	llm := &fakeCompleter{reply: goodReply}
	svc, st, _ := setup(t, llm, fakeSettings{bench: modifiers.Default(), saved: true, ai: modifiers.DefaultAI()})
	loadSession(st)

	_, err := svc.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Contains(t, llm.prompts[0], "BENCHMARK MODIFIERS")
	assert.Contains(t, llm.prompts[0], "Last 30 days")
}

func TestRunConfirmationGate(t *testing.T) {
	llm := &fakeCompleter{reply: goodReply}
	svc, st, _ := setup(t, llm, fakeSettings{ai: modifiers.DefaultAI()})
	loadSession(st)

	_, err := svc.Run(context.Background(), Options{})
	require.NoError(t, err)

	st.Put(models.ParsedTable{TableName: "DMA Performance", Tactic: "Meta", Headers: []string{"DMA"}})
	_, err = svc.Run(context.Background(), Options{})
	var ue *UnconfirmedError
	require.ErrorAs(t, err, &ue)
	assert.ErrorIs(t, err, ErrReanalyzeUnconfirmed)
	assert.Equal(t, []string{"Meta - DMA Performance"}, ue.NewFiles)
	assert.Len(t, llm.prompts, 1)

	_, err = svc.Run(context.Background(), Options{Confirm: true})
	require.NoError(t, err)
	assert.Empty(t, st.NewFiles())
	assert.Len(t, llm.prompts, 2)
}

func TestRunCompletionFailureKeepsPreviousResult(t *testing.T) {
	llm := &fakeCompleter{reply: goodReply}
	svc, st, tel := setup(t, llm, fakeSettings{ai: modifiers.DefaultAI()})
	loadSession(st)
	_, err := svc.Run(context.Background(), Options{})
	require.NoError(t, err)

	llm.err = errors.New("boom")
	_, err = svc.Run(context.Background(), Options{Confirm: true})
	require.Error(t, err)
	r, _, ok := st.Result()
	require.True(t, ok)
	assert.Equal(t, "Strong month", r.ExecutiveSummary)
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.Completions.WithLabelValues("error")))
}

func TestRunFallsBackOnGibberish(t *testing.T) {
	llm := &fakeCompleter{reply: "I could not produce JSON today."}
	svc, st, tel := setup(t, llm, fakeSettings{ai: modifiers.DefaultAI()})
	loadSession(st)

	rep, err := svc.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, repair.StageFallback, rep.Stage)
	assert.NotEmpty(t, rep.Result.ExecutiveSummary)
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.RepairStages.WithLabelValues("fallback")))
}

func TestRunDropsChartsWhenDisabled(t *testing.T) {
	llm := &fakeCompleter{reply: goodReply}
	svc, st, _ := setup(t, llm, fakeSettings{ai: modifiers.AIModifiers{Temperature: 0.7, Tone: modifiers.ToneConstructive}})
	loadSession(st)

	rep, err := svc.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.NotNil(t, rep.Result.Visualizations)
	assert.Empty(t, rep.Result.Visualizations)
}

func TestRunRejectsBadDays(t *testing.T) {
	svc, st, _ := setup(t, &fakeCompleter{}, fakeSettings{ai: modifiers.DefaultAI()})
	loadSession(st)
	_, err := svc.Run(context.Background(), Options{Days: 400})
	assert.ErrorIs(t, err, ErrBadDays)
}

func TestPromptPreviewIgnoresGate(t *testing.T) {
	llm := &fakeCompleter{reply: goodReply}
	svc, st, _ := setup(t, llm, fakeSettings{ai: modifiers.DefaultAI()})
	loadSession(st)
	_, err := svc.Run(context.Background(), Options{})
	require.NoError(t, err)

	p, err := svc.Prompt(context.Background(), Options{Days: 90})
	require.NoError(t, err)
	assert.True(t, strings.Contains(p, "Last 90 days"))
	assert.Len(t, llm.prompts, 1)
}
