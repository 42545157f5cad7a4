package models

import (
	"encoding/json"
	"strings"
)

// ParsedTable is one uploaded performance table bound to a (tactic, table) slot.
type ParsedTable struct {
	FileName  string           `json:"fileName"`
	TableName string           `json:"tableName"`
	Tactic    string           `json:"tactic"`
	Headers   []string         `json:"headers"`
	Rows      []map[string]any `json:"rows"`
}

// SlotKey is the store key of a table slot, "<tactic>_<table>" as in the report payload.
func SlotKey(tactic, table string) string { return tactic + "_" + table }

// Key returns the slot key of the table.
func (p ParsedTable) Key() string { return SlotKey(p.Tactic, p.TableName) }

// Campaign is the order-management JSON. Only lineItems is read by tactic
// detection; the raw document is kept verbatim for the prompt.
type Campaign struct {
	Raw       json.RawMessage `json:"-"`
	LineItems []LineItem      `json:"lineItems"`
}

// LineItem fields hold either a string or an array of strings.
type LineItem struct {
	Product           StringList `json:"product"`
	SubProduct        StringList `json:"subProduct"`
	TacticTypeSpecial StringList `json:"tacticTypeSpecial"`
}

// StringList decodes a JSON string, an array of strings, or anything else
// (ignored). Non-string array members are skipped.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*l = StringList{one}
		return nil
	}
	var many []any
	if err := json.Unmarshal(b, &many); err == nil {
		out := make(StringList, 0, len(many))
		for _, v := range many {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		*l = out
		return nil
	}
	*l = nil
	return nil
}

// ChartType is the visualization kind rendered by the UI.
type ChartType string

const (
	ChartBar  ChartType = "bar"
	ChartLine ChartType = "line"
	ChartPie  ChartType = "pie"
	ChartArea ChartType = "area"
)

// ParseChartType accepts "bar" as well as the "bar_chart" spelling the model uses.
func ParseChartType(s string) (ChartType, bool) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "_chart")
	switch ChartType(s) {
	case ChartBar, ChartLine, ChartPie, ChartArea:
		return ChartType(s), true
	}
	return "", false
}

type ChartData struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Colors []string  `json:"colors"`
}

type Visualization struct {
	Type  ChartType `json:"type"`
	Title string    `json:"title"`
	Data  ChartData `json:"data"`
}

// AnalysisResult is the structured report produced by one model call.
type AnalysisResult struct {
	ExecutiveSummary    string          `json:"executiveSummary"`
	PerformanceAnalysis string          `json:"performanceAnalysis"`
	TrendAnalysis       string          `json:"trendAnalysis"`
	Recommendations     string          `json:"recommendations"`
	Visualizations      []Visualization `json:"visualizations"`
}

// Text renders the plain-text export of the report.
func (r AnalysisResult) Text() string {
	var b strings.Builder
	b.WriteString("CAMPAIGN PERFORMANCE ANALYSIS\n=============================\n\n")
	section := func(title, underline, body string) {
		b.WriteString(title + "\n" + underline + "\n" + body + "\n\n")
	}
	section("EXECUTIVE SUMMARY", "-----------------", r.ExecutiveSummary)
	section("PERFORMANCE ANALYSIS", "-------------------", r.PerformanceAnalysis)
	section("TREND ANALYSIS", "--------------", r.TrendAnalysis)
	section("OPTIMIZATION RECOMMENDATIONS", "---------------------------", r.Recommendations)
	return strings.TrimSpace(b.String())
}

// TacticStatus describes one detected tactic for the upload screen.
type TacticStatus struct {
	Tactic      string   `json:"tactic"`
	Product     string   `json:"product,omitempty"`
	SubProducts []string `json:"subProducts,omitempty"`
	Mapped      bool     `json:"mapped"`
	Tables      []string `json:"tables"`
	Uploaded    []string `json:"uploaded"`
}

// TableKPIs is the rollup of one parsed table (see internal/metrics).
type TableKPIs struct {
	Tactic      string  `json:"tactic"`
	Table       string  `json:"table"`
	Rows        int     `json:"rows"`
	Impressions float64 `json:"impressions"`
	Clicks      float64 `json:"clicks"`
	Spend       float64 `json:"spend"`
	Conversions float64 `json:"conversions"`
	CTR         float64 `json:"ctr"`
	CPC         float64 `json:"cpc"`
	CPM         float64 `json:"cpm"`
	CVR         float64 `json:"cvr"`
	HasVolume   bool    `json:"hasVolume"`
}
