package metrics

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/AngelCh415/campaign-analyzer/internal/models"
	"github.com/AngelCh415/campaign-analyzer/internal/store"
)

type Service struct{ st *store.MemoryStore }

func NewService(st *store.MemoryStore) *Service { return &Service{st: st} }
func norm(s string) string                      { return strings.ToLower(strings.TrimSpace(s)) }

func csvSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range strings.Split(s, ",") {
		p = norm(p)
		if p != "" {
			out[p] = struct{}{}
		}
	}
	return out
}

// TableRollups returns the KPI rollup of every stored table, optionally
// filtered by ?tactic=a,b and paginated with limit/offset.
func (s *Service) TableRollups(v url.Values) ([]models.TableKPIs, error) {
	tSet := csvSet(v.Get("tactic"))
	limit := atoiDef(v.Get("limit"), 100)
	offset := atoiDef(v.Get("offset"), 0)

	var rows []models.TableKPIs
	for _, t := range s.st.Tables() {
		if len(tSet) > 0 {
			if _, ok := tSet[norm(t.Tactic)]; !ok {
				continue
			}
		}
		rows = append(rows, Rollup(t))
	}
	limit, offset = clampLimitOffset(limit, offset, len(rows))
	return paginate(rows, limit, offset), nil
}

var (
	impressionCols = []string{"impressions", "impr", "impr.", "total impressions"}
	clickCols      = []string{"clicks", "link clicks", "total clicks"}
	spendCols      = []string{"spend", "cost", "amount spent", "media cost", "total cost", "total spend", "amount spent (usd)", "spend ($)", "cost ($)"}
	conversionCols = []string{"conversions", "total conversions", "conv.", "results", "leads"}
)

// Rollup sums the volume columns of t and derives rate metrics. Summary
// rows whose first cell is "Total" are skipped so exports that include a
// footer are not counted twice.
func Rollup(t models.ParsedTable) models.TableKPIs {
	k := models.TableKPIs{Tactic: t.Tactic, Table: t.TableName}
	impr := findCol(t.Headers, impressionCols)
	clk := findCol(t.Headers, clickCols)
	spend := findCol(t.Headers, spendCols)
	conv := findCol(t.Headers, conversionCols)

	for _, r := range t.Rows {
		if len(t.Headers) > 0 && isTotalRow(r[t.Headers[0]]) {
			continue
		}
		k.Rows++
		k.Impressions += maxf(num(r, impr))
		k.Clicks += maxf(num(r, clk))
		k.Spend += maxf(num(r, spend))
		k.Conversions += maxf(num(r, conv))
	}
	k.HasVolume = k.Impressions > 0 || k.Clicks > 0 || k.Spend > 0
	// métricas derivadas
	k.CTR = round2(safeDivF(k.Clicks, k.Impressions) * 100)
	k.CPC = round2(safeDivF(k.Spend, k.Clicks))
	k.CPM = round2(safeDivF(k.Spend, k.Impressions) * 1000)
	k.CVR = round2(safeDivF(k.Conversions, k.Clicks) * 100)
	k.Spend = round2(k.Spend)
	return k
}

func findCol(headers []string, names []string) string {
	for _, h := range headers {
		n := norm(h)
		for _, c := range names {
			if n == c {
				return h
			}
		}
	}
	return ""
}

func isTotalRow(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	s = norm(s)
	return s == "total" || s == "totals" || s == "grand total"
}

var numCleaner = strings.NewReplacer("$", "", "%", "", ",", "", " ", "")

func num(r map[string]any, col string) float64 {
	if col == "" {
		return 0
	}
	switch v := r[col].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(numCleaner.Replace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	}
	return 0
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	} // tope sano
	if offset > n {
		offset = n
	}
	return limit, offset
}
func safeDivF(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
func maxf(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
func round2(f float64) float64 { return float64(int64(f*100+0.5)) / 100 }
