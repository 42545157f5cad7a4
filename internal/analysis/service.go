// Package analysis runs one report generation: gather the session, build the
// prompt, call the model and repair whatever comes back.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/AngelCh415/campaign-analyzer/internal/catalog"
	"github.com/AngelCh415/campaign-analyzer/internal/metrics"
	"github.com/AngelCh415/campaign-analyzer/internal/models"
	"github.com/AngelCh415/campaign-analyzer/internal/modifiers"
	"github.com/AngelCh415/campaign-analyzer/internal/prompt"
	"github.com/AngelCh415/campaign-analyzer/internal/repair"
	"github.com/AngelCh415/campaign-analyzer/internal/store"
	"github.com/AngelCh415/campaign-analyzer/internal/telemetry"
)

const DefaultDays = 30

var (
	ErrMissingInput         = errors.New("campaign JSON and company information are required")
	ErrReanalyzeUnconfirmed = errors.New("analysis exists; confirm to re-analyze")
	ErrBadDays              = errors.New("days must be between 1 and 365")
)

// UnconfirmedError carries the slots uploaded since the last analysis.
type UnconfirmedError struct{ NewFiles []string }

func (e *UnconfirmedError) Error() string { return ErrReanalyzeUnconfirmed.Error() }
func (e *UnconfirmedError) Unwrap() error { return ErrReanalyzeUnconfirmed }

type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

type Settings interface {
	CampaignModifiers(ctx context.Context) (modifiers.Table, bool, error)
	AIModifiers(ctx context.Context) (modifiers.AIModifiers, error)
}

type Options struct {
	Days      int
	Confirm   bool
	Objective string
}

type Report struct {
	Result      models.AnalysisResult `json:"result"`
	Stage       repair.Stage          `json:"stage"`
	TimeRange   string                `json:"timeRange"`
	GeneratedAt time.Time             `json:"generatedAt"`
}

type Service struct {
	st        *store.MemoryStore
	settings  Settings
	cat       *catalog.Catalog
	llm       Completer
	tel       *telemetry.Metrics
	log       *slog.Logger
	maxTokens int
	now       func() time.Time
}

func NewService(st *store.MemoryStore, settings Settings, cat *catalog.Catalog, llm Completer,
	tel *telemetry.Metrics, log *slog.Logger, maxTokens int) *Service {
	return &Service{st: st, settings: settings, cat: cat, llm: llm, tel: tel, log: log, maxTokens: maxTokens, now: time.Now}
}

// Run generates a report. With an existing result it refuses unless
// opts.Confirm is set; confirming clears the new-files list first. A failed
// completion leaves the previous result in place.
func (s *Service) Run(ctx context.Context, opts Options) (Report, error) {
	snap := s.st.Snapshot()
	if snap.HasResult && !opts.Confirm {
		return Report{}, &UnconfirmedError{NewFiles: snap.NewFiles}
	}
	in, err := s.input(ctx, snap, opts)
	if err != nil {
		return Report{}, err
	}
	if snap.HasResult {
		s.st.ClearNewFiles()
	}

	text := prompt.Build(in)
	start := time.Now()
	raw, err := s.llm.Complete(ctx, text, in.AI.Temperature, s.maxTokens)
	s.tel.Completion(err == nil)
	if err != nil {
		s.log.Error("completion failed", slog.String("err", err.Error()), slog.Duration("latency", time.Since(start)))
		return Report{}, fmt.Errorf("completion: %w", err)
	}

	res := repair.Analysis(raw)
	s.tel.Repair(string(res.Stage))
	if res.Stage != repair.StageDirect {
		s.log.Warn("model response repaired", slog.String("stage", string(res.Stage)), slog.Int("bytes", len(raw)))
	}
	if !in.AI.ShowCharts {
		res.Analysis.Visualizations = []models.Visualization{}
	}

	at := s.now()
	s.st.SetResult(res.Analysis, at)
	s.log.Info("analysis complete",
		slog.String("stage", string(res.Stage)),
		slog.Int("tables", len(in.Tables)),
		slog.Int("tactics", len(in.Tactics)),
		slog.Int("prompt_bytes", len(text)),
		slog.Duration("latency", time.Since(start)))
	return Report{Result: res.Analysis, Stage: res.Stage, TimeRange: prompt.TimeRangeLabel(in.Days), GeneratedAt: at}, nil
}

// Prompt renders the prompt Run would send, without the confirmation gate.
func (s *Service) Prompt(ctx context.Context, opts Options) (string, error) {
	in, err := s.input(ctx, s.st.Snapshot(), opts)
	if err != nil {
		return "", err
	}
	return prompt.Build(in), nil
}

func (s *Service) input(ctx context.Context, snap store.Snapshot, opts Options) (prompt.Input, error) {
	if snap.Campaign == nil || strings.TrimSpace(snap.Company) == "" {
		return prompt.Input{}, ErrMissingInput
	}
	days := opts.Days
	if days == 0 {
		days = DefaultDays
	}
	if days < 0 || days > 365 {
		return prompt.Input{}, ErrBadDays
	}

	bench, saved, err := s.settings.CampaignModifiers(ctx)
	if err != nil {
		return prompt.Input{}, fmt.Errorf("campaign modifiers: %w", err)
	}
	if !saved {
		bench = nil
	}
	ai, err := s.settings.AIModifiers(ctx)
	if err != nil {
		return prompt.Input{}, fmt.Errorf("ai modifiers: %w", err)
	}

	return prompt.Input{
		CompanyInfo: snap.Company,
		Campaign:    snap.Campaign.Raw,
		Tables:      snap.Tables,
		KPIs:        rollups(snap.Tables),
		Tactics:     prompt.DescribeTactics(snap.Tactics, s.cat.Categories),
		Days:        days,
		Objective:   strings.TrimSpace(opts.Objective),
		Modifiers:   bench,
		AI:          ai,
	}, nil
}

// orden determinista
func rollups(tables map[string]models.ParsedTable) []models.TableKPIs {
	keys := make([]string, 0, len(tables))
	for k := range tables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]models.TableKPIs, 0, len(keys))
	for _, k := range keys {
		out = append(out, metrics.Rollup(tables[k]))
	}
	return out
}
