// Package prompt assembles the single user message sent to the model.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AngelCh415/campaign-analyzer/internal/catalog"
	"github.com/AngelCh415/campaign-analyzer/internal/models"
	"github.com/AngelCh415/campaign-analyzer/internal/modifiers"
)

// Tactic is a detected tactic with whatever the taxonomy knows about it.
type Tactic struct {
	Name        string
	Mapped      bool
	Product     string
	Category    string
	Platforms   []string
	SubProducts []catalog.SubProduct
}

// DescribeTactics resolves each detected tactic against the taxonomy.
func DescribeTactics(tactics []string, cats *catalog.Categories) []Tactic {
	out := make([]Tactic, 0, len(tactics))
	for _, name := range tactics {
		t := Tactic{Name: name}
		if m, ok := cats.MapToProduct(name); ok {
			t.Mapped = true
			t.Product = m.Product
			if info, ok := cats.Tactic(name); ok {
				t.Category = info.Category
				t.Platforms = info.Platforms
				t.SubProducts = info.SubProducts
			} else {
				for _, code := range m.SubProducts {
					t.SubProducts = append(t.SubProducts, catalog.SubProduct{Code: code})
				}
			}
		}
		out = append(out, t)
	}
	return out
}

type Input struct {
	CompanyInfo string
	Campaign    json.RawMessage
	// Tables is keyed by slot key, "<tactic>_<table>".
	Tables    map[string]models.ParsedTable
	KPIs      []models.TableKPIs
	Tactics   []Tactic
	Days      int
	Objective string
	// Modifiers is nil when the user has no benchmark settings.
	Modifiers modifiers.Table
	AI        modifiers.AIModifiers
}

const chartSchema = `    {
      "type": "bar_chart|line_chart|pie_chart|area_chart",
      "title": "string",
      "data": {
        "labels": ["string"],
        "values": [number],
        "colors": ["#cf0e0f", "#ff4444", "#ff6666", "#ff8888", "#ffaaaa"]
      }
    }
`

// Build renders the prompt. Output is deterministic for a given input.
func Build(in Input) string {
	bench := len(in.Modifiers) > 0
	opt := func(s string) string {
		if bench {
			return s
		}
		return ""
	}
	tone := string(in.AI.Tone)
	if tone == "" {
		tone = string(modifiers.ToneConstructive)
	}

	var b strings.Builder
	b.WriteString(guidelines(in.Days, tone, in.Objective, in.AI.AdditionalInstructions))
	b.WriteString("\n\nAs a digital marketing analyst, analyze this campaign performance data and provide a comprehensive report.\n\n")

	b.WriteString("COMPANY INFORMATION:\n")
	b.WriteString(in.CompanyInfo)
	b.WriteString("\n\nCAMPAIGN DATA:\n")
	b.WriteString(indentRaw(in.Campaign))
	b.WriteString("\n\nPERFORMANCE TABLE DATA:\n")
	b.WriteString(indentValue(tableData(in.Tables)))
	if len(in.KPIs) > 0 {
		b.WriteString("\n\nCOMPUTED TABLE TOTALS:\n")
		for _, k := range in.KPIs {
			if !k.HasVolume {
				continue
			}
			fmt.Fprintf(&b, "- %s / %s: %d rows, impressions %.0f, clicks %.0f, spend $%.2f, conversions %.0f, CTR %.2f%%, CPC $%.2f, CPM $%.2f, CVR %.2f%%\n",
				k.Tactic, k.Table, k.Rows, k.Impressions, k.Clicks, k.Spend, k.Conversions, k.CTR, k.CPC, k.CPM, k.CVR)
		}
	}
	if len(in.Tactics) > 0 {
		b.WriteString("\n\nDETECTED TACTICS:\n")
		for _, t := range in.Tactics {
			writeTactic(&b, t)
		}
	}

	fmt.Fprintf(&b, "\nTIME RANGE: %s\n", TimeRangeLabel(in.Days))
	if bench {
		b.WriteString("\n\nBENCHMARK MODIFIERS:\nUse these custom benchmarks when analyzing performance and making recommendations:\n")
		b.WriteString(indentValue(in.Modifiers))
		b.WriteString("\n\nWhen analyzing performance data, compare against these benchmarks rather than generic industry standards.\n")
		b.WriteString("Highlight when performance is above or below these customized benchmarks and provide insights based on these specific thresholds.\n")
	}

	fmt.Fprintf(&b, "\nBased on the uploaded performance tables%s, provide detailed analysis including:\n\n", opt(" and custom benchmark modifiers"))
	b.WriteString("1. EXECUTIVE SUMMARY\n")
	b.WriteString("   - Overall campaign performance overview with key metrics\n")
	b.WriteString("   - Budget utilization and efficiency summary\n")
	b.WriteString("   - Major achievements and challenges identified\n")
	if bench {
		b.WriteString("   - Performance comparison against custom benchmarks\n")
	}
	b.WriteString("\n2. PERFORMANCE ANALYSIS BY TACTIC\n")
	b.WriteString("   - Detailed breakdown for each tactic with uploaded data\n")
	fmt.Fprintf(&b, "   - CTR, conversion rates, and engagement metrics analysis%s\n", opt(" compared to your custom benchmarks"))
	b.WriteString("   - Geographic performance insights (city/zip level where available)\n")
	b.WriteString("   - Device performance breakdown\n")
	b.WriteString("   - Creative performance comparisons where applicable\n")
	if bench {
		b.WriteString("   - Seasonal and monthly performance patterns analysis using your modifiers\n")
	}
	b.WriteString("\n3. TREND ANALYSIS\n")
	b.WriteString("   - Performance trends over the specified time period\n")
	fmt.Fprintf(&b, "   - Seasonal patterns or anomalies identified%s\n", opt(" based on your custom seasonal modifiers"))
	b.WriteString("   - Cross-tactic performance comparisons\n")
	b.WriteString("   - Geographic hotspots and underperforming areas\n")
	b.WriteString("\n4. OPTIMIZATION RECOMMENDATIONS\n")
	fmt.Fprintf(&b, "   Focus on actionable insights based on the data%s:\n", opt(" and custom benchmarks"))
	b.WriteString("   - Geographic targeting adjustments (expand successful areas, investigate underperforming regions)\n")
	b.WriteString("   - Demographic targeting refinements based on performance data\n")
	fmt.Fprintf(&b, "   - Creative messaging optimization based on performance variations%s\n", opt(" and creative indicator benchmarks"))
	b.WriteString("   - Audience segmentation opportunities\n")
	b.WriteString("   - Tracking and measurement improvements\n")
	b.WriteString("   - Content strategy adjustments based on engagement patterns\n\n")
	b.WriteString("   DO NOT include technical bidding strategies, budget allocation suggestions, or platform-specific optimizations.\n")

	if in.AI.ShowCharts {
		b.WriteString("\n5. DATA VISUALIZATIONS\n")
		b.WriteString("   Create 4-6 charts showing key insights from the uploaded tables:\n")
		fmt.Fprintf(&b, "   - Performance comparisons between tactics%s\n", opt(" with benchmark lines"))
		b.WriteString("   - Geographic performance heatmaps\n")
		b.WriteString("   - Device performance breakdowns\n")
		b.WriteString("   - Creative performance rankings\n")
		b.WriteString("   - Trend analysis over time\n")
	}

	b.WriteString("\nFormat your response as JSON with this structure:\n{\n")
	b.WriteString("  \"executiveSummary\": \"string\",\n")
	b.WriteString("  \"performanceAnalysis\": \"string\",\n")
	b.WriteString("  \"trendAnalysis\": \"string\",\n")
	b.WriteString("  \"recommendations\": \"string\",\n")
	if in.AI.ShowCharts {
		b.WriteString("  \"visualizations\": [\n" + chartSchema + "  ]\n}\n\n")
		b.WriteString("Use the red color palette throughout. ")
	} else {
		b.WriteString("  \"visualizations\": []\n}\n\n")
		b.WriteString("Do not produce any charts: the visualizations array must be empty. ")
	}
	b.WriteString("Focus on insights that lead to actionable improvements in targeting, messaging, and measurement.")
	b.WriteString(opt(" Leverage the custom benchmark modifiers to provide more precise and relevant recommendations."))
	b.WriteString("\nRespond with the JSON object only.")
	return b.String()
}

func writeTactic(b *strings.Builder, t Tactic) {
	if !t.Mapped {
		fmt.Fprintf(b, "- %s (no product mapping)\n", t.Name)
		return
	}
	fmt.Fprintf(b, "- %s: product %s", t.Name, t.Product)
	if t.Category != "" {
		fmt.Fprintf(b, ", category %s", t.Category)
	}
	if len(t.Platforms) > 0 {
		fmt.Fprintf(b, ", platforms %s", strings.Join(t.Platforms, ", "))
	}
	b.WriteString("\n")
	for _, sp := range t.SubProducts {
		fmt.Fprintf(b, "  - %s", sp.Code)
		if sp.Medium != "" {
			fmt.Fprintf(b, " (%s)", sp.Medium)
		}
		if len(sp.KPIs) > 0 {
			fmt.Fprintf(b, " KPIs: %s", strings.Join(sp.KPIs, ", "))
		}
		if sp.DataValue != "" {
			fmt.Fprintf(b, "; primary value: %s", sp.DataValue)
		}
		b.WriteString("\n")
	}
}

type tableEntry struct {
	FileName string           `json:"fileName"`
	Headers  []string         `json:"headers"`
	Data     []map[string]any `json:"data"`
}

func tableData(tables map[string]models.ParsedTable) map[string]tableEntry {
	out := make(map[string]tableEntry, len(tables))
	for k, t := range tables {
		out[k] = tableEntry{FileName: t.FileName, Headers: t.Headers, Data: t.Rows}
	}
	return out
}

func indentRaw(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func indentValue(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimRight(buf.String(), "\n")
}
