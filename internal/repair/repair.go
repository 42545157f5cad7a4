// Package repair turns the raw text of a model completion into an
// AnalysisResult. It never fails: text that cannot be recovered yields a
// fixed fallback report.
package repair

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/AngelCh415/campaign-analyzer/internal/models"
)

// Stage records which step of the ladder produced the result.
type Stage string

const (
	StageDirect    Stage = "direct"
	StageExtracted Stage = "extracted"
	StageSanitized Stage = "sanitized"
	StageFallback  Stage = "fallback"
)

type Result struct {
	Analysis models.AnalysisResult
	Stage    Stage
}

// Palette is applied to charts that come back without colors.
var Palette = []string{"#cf0e0f", "#ff4444", "#ff6666", "#ff8888", "#ffaaaa"}

var (
	fenceJSON = regexp.MustCompile("```json\\n?")
	fenceBare = regexp.MustCompile("```\\n?")
	// tab, LF and CR are kept
	controlChars = regexp.MustCompile(`[\x{0000}-\x{0008}\x{000B}\x{000C}\x{000E}-\x{001F}\x{007F}-\x{009F}]`)
)

// Analysis runs the recovery ladder: fence stripping, outer-brace
// extraction, control character removal, then the fallback report.
func Analysis(raw string) Result {
	text := StripFences(raw)
	if a, ok := decode(text); ok {
		return Result{Analysis: a, Stage: StageDirect}
	}
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Result{Analysis: Fallback(), Stage: StageFallback}
	}
	inner := text[start : end+1]
	if a, ok := decode(inner); ok {
		return Result{Analysis: a, Stage: StageExtracted}
	}
	if a, ok := decode(Sanitize(inner)); ok {
		return Result{Analysis: a, Stage: StageSanitized}
	}
	return Result{Analysis: Fallback(), Stage: StageFallback}
}

// StripFences removes markdown code fences and surrounding whitespace.
func StripFences(s string) string {
	s = fenceJSON.ReplaceAllString(s, "")
	s = fenceBare.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Sanitize drops C0 and C1 control characters other than tab, LF and CR.
func Sanitize(s string) string { return controlChars.ReplaceAllString(s, "") }

// Fallback is the report returned when the completion cannot be parsed.
func Fallback() models.AnalysisResult {
	return models.AnalysisResult{
		ExecutiveSummary:    "The analysis could not be generated because the model returned a response that was not valid JSON. Please run the analysis again.",
		PerformanceAnalysis: "Performance analysis is unavailable for this run. Re-run the analysis to generate it.",
		TrendAnalysis:       "Trend analysis is unavailable for this run. Re-run the analysis to generate it.",
		Recommendations:     "No recommendations were produced. Retry the analysis; if the problem persists, reduce the number of uploaded tables and try again.",
		Visualizations:      []models.Visualization{},
	}
}

type wireResult struct {
	ExecutiveSummary    narrative       `json:"executiveSummary"`
	PerformanceAnalysis narrative       `json:"performanceAnalysis"`
	TrendAnalysis       narrative       `json:"trendAnalysis"`
	Recommendations     narrative       `json:"recommendations"`
	Visualizations      json.RawMessage `json:"visualizations"`
}

// narrative is a section body. It accepts whatever the model sent: a list
// of paragraphs is joined with newlines, other scalars are stringified and
// objects keep their JSON text.
type narrative string

func (n *narrative) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = narrative(text(v))
	return nil
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []any:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			parts = append(parts, text(p))
		}
		return strings.Join(parts, "\n")
	default:
		return label(x)
	}
}

type wireViz struct {
	Type  narrative       `json:"type"`
	Title narrative       `json:"title"`
	Data  json.RawMessage `json:"data"`
}

type wireData struct {
	Labels json.RawMessage `json:"labels"`
	Values json.RawMessage `json:"values"`
	Colors json.RawMessage `json:"colors"`
}

// decode only fails on text that is not a JSON object. Fields of an
// unexpected shape are coerced or left empty.
func decode(s string) (models.AnalysisResult, bool) {
	if !strings.HasPrefix(s, "{") {
		return models.AnalysisResult{}, false
	}
	var w wireResult
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return models.AnalysisResult{}, false
	}
	charts := list(w.Visualizations)
	out := models.AnalysisResult{
		ExecutiveSummary:    string(w.ExecutiveSummary),
		PerformanceAnalysis: string(w.PerformanceAnalysis),
		TrendAnalysis:       string(w.TrendAnalysis),
		Recommendations:     string(w.Recommendations),
		Visualizations:      make([]models.Visualization, 0, len(charts)),
	}
	for _, raw := range charts {
		if v, ok := visualization(raw); ok {
			out.Visualizations = append(out.Visualizations, v)
		}
	}
	return out, true
}

// list decodes a JSON array; anything else is an empty list.
func list(raw json.RawMessage) []json.RawMessage {
	var out []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &out) != nil {
		return nil
	}
	return out
}

func anyList(raw json.RawMessage) []any {
	var out []any
	if len(raw) == 0 || json.Unmarshal(raw, &out) != nil {
		return nil
	}
	return out
}

// visualization normalizes one chart; charts that are not objects or have
// an unknown type are dropped.
func visualization(raw json.RawMessage) (models.Visualization, bool) {
	var w wireViz
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.Visualization{}, false
	}
	t, ok := models.ParseChartType(string(w.Type))
	if !ok {
		return models.Visualization{}, false
	}
	var d wireData
	if len(w.Data) > 0 {
		_ = json.Unmarshal(w.Data, &d)
	}
	labels, values := anyList(d.Labels), anyList(d.Values)
	n := min(len(labels), len(values))
	v := models.Visualization{
		Type:  t,
		Title: string(w.Title),
		Data: models.ChartData{
			Labels: make([]string, n),
			Values: make([]float64, n),
			Colors: colors(d.Colors),
		},
	}
	for i := 0; i < n; i++ {
		v.Data.Labels[i] = label(labels[i])
		v.Data.Values[i] = number(values[i])
	}
	return v, true
}

// colors keeps the string entries of a color list. A single color string is
// a one-entry list; anything else gets the palette.
func colors(raw json.RawMessage) []string {
	var out []string
	var one string
	if len(raw) > 0 && json.Unmarshal(raw, &one) == nil && one != "" {
		out = []string{one}
	} else {
		for _, c := range anyList(raw) {
			if s, ok := c.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 {
		return append([]string(nil), Palette...)
	}
	return out
}

func label(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

func number(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		x = strings.NewReplacer(",", "", "$", "", "%", "").Replace(strings.TrimSpace(x))
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
