// Package classify routes bulk-uploaded CSV files to (tactic, table) slots
// by matching their file names against the detected products and the
// expected tables of each product.
package classify

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/dustin/go-humanize"

	"github.com/AngelCh415/campaign-analyzer/internal/catalog"
	"github.com/AngelCh415/campaign-analyzer/internal/csvtable"
	"github.com/AngelCh415/campaign-analyzer/internal/models"
)

// Reason explains why a file was not stored.
type Reason string

const (
	ReasonNotCSV     Reason = "not_csv"
	ReasonNoProduct  Reason = "no_product"
	ReasonNoTable    Reason = "no_table"
	ReasonEmpty      Reason = "empty"
	ReasonReadFailed Reason = "read_failed"
)

// Group is one resolved product and the detected tactics that map to it,
// in detection order.
type Group struct {
	Product string   `json:"product"`
	Tactics []string `json:"tactics"`
}

// BuildGroups groups detected tactics by product. Tactics without a mapping
// form a group named after themselves. Group order is first appearance.
func BuildGroups(tactics []string, cats *catalog.Categories) []Group {
	var out []Group
	idx := map[string]int{}
	for _, t := range tactics {
		product := t
		if m, ok := cats.MapToProduct(t); ok {
			product = m.Product
		}
		i, ok := idx[product]
		if !ok {
			i = len(out)
			idx[product] = i
			out = append(out, Group{Product: product})
		}
		out[i].Tactics = append(out[i].Tactics, t)
	}
	return out
}

// Outcome is the routing decision for one file.
type Outcome struct {
	File    string `json:"file"`
	Size    int64  `json:"size"`
	Product string `json:"product,omitempty"`
	Tactic  string `json:"tactic,omitempty"`
	Table   string `json:"table,omitempty"`
	Reason  Reason `json:"reason,omitempty"`
	Hint    string `json:"hint,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (o Outcome) Assigned() bool { return o.Reason == "" }

// Summary tallies one bulk run. Skipped counts non-CSV files.
type Summary struct {
	Processed int       `json:"processed"`
	Errors    int       `json:"errors"`
	Skipped   int       `json:"skipped"`
	Outcomes  []Outcome `json:"outcomes"`
}

// TableSink receives parsed tables; a Put for an existing slot replaces it.
type TableSink interface {
	Put(models.ParsedTable)
}

type Classifier struct {
	groups []Group
	tables *catalog.Tables
	log    *slog.Logger
}

func New(groups []Group, tables *catalog.Tables, log *slog.Logger) *Classifier {
	if log == nil {
		log = slog.Default()
	}
	return &Classifier{groups: groups, tables: tables, log: log}
}

var dupCounter = regexp.MustCompile(`\s*\(\d+\)(\.csv)$`)

// NormalizeFilename lower-cases name and removes the "report-" prefix and a
// " (N)" duplicate counter before the .csv extension.
func NormalizeFilename(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.TrimPrefix(s, "report-")
	return dupCounter.ReplaceAllString(s, "$1")
}

// Classify resolves the slot for one file name. The first product group
// (in group order) and then the first table (in catalog order) that match
// win; a miss carries the reason and, for unmatched tables, the closest
// table name as a hint.
func (c *Classifier) Classify(filename string) Outcome {
	out := Outcome{File: filename}
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		out.Reason = ReasonNotCSV
		return out
	}
	name := NormalizeFilename(filename)

	g, ok := c.matchProduct(name)
	if !ok {
		out.Reason = ReasonNoProduct
		return out
	}
	tactic := g.Tactics[0]
	candidates := c.tables.For(tactic)
	table, ok := matchTable(name, candidates)
	if !ok {
		out.Reason = ReasonNoTable
		out.Hint = closest(name, g.Product, candidates)
		return out
	}
	out.Product = g.Product
	out.Tactic = tactic
	out.Table = table
	return out
}

func (c *Classifier) matchProduct(name string) (Group, bool) {
	for _, g := range c.groups {
		if len(g.Tactics) == 0 {
			continue
		}
		if key := compactKey(g.Product); key != "" && strings.Contains(name, key) {
			return g, true
		}
		if h := hyphenate(g.Product); h != "" && strings.Contains(name, h) {
			return g, true
		}
	}
	return Group{}, false
}

func matchTable(name string, candidates []string) (string, bool) {
	for _, t := range candidates {
		if strings.Contains(name, hyphenate(t)) {
			return t, true
		}
	}
	for _, t := range candidates {
		words := strings.Fields(strings.ToLower(t))
		if len(words) == 0 {
			continue
		}
		all := true
		for _, w := range words {
			if !strings.Contains(name, w) {
				all = false
				break
			}
		}
		if all {
			return t, true
		}
	}
	return "", false
}

// closest picks the candidate whose hyphenated name is nearest to what is
// left of the file name once the product and extension are removed.
func closest(name, product string, candidates []string) string {
	rest := strings.TrimSuffix(name, ".csv")
	rest = strings.Replace(rest, hyphenate(product), "", 1)
	if key := compactKey(product); key != "" {
		rest = strings.Replace(rest, key, "", 1)
	}
	rest = strings.Trim(rest, "-_ ")
	best, bestDist := "", -1
	for _, t := range candidates {
		d := levenshtein.ComputeDistance(rest, hyphenate(t))
		if bestDist < 0 || d < bestDist {
			best, bestDist = t, d
		}
	}
	return best
}

func compactKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func hyphenate(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

// Run classifies, parses and stores each upload in order. A file that
// cannot be routed or parsed is tallied and the batch continues.
func (c *Classifier) Run(uploads []Upload, sink TableSink) Summary {
	sum := Summary{Outcomes: make([]Outcome, 0, len(uploads))}
	for _, u := range uploads {
		o := c.runOne(u, sink)
		switch {
		case o.Assigned():
			sum.Processed++
		case o.Reason == ReasonNotCSV:
			sum.Skipped++
		default:
			sum.Errors++
			c.log.Warn("bulk upload unassigned",
				slog.String("file", o.File),
				slog.String("reason", string(o.Reason)),
				slog.String("hint", o.Hint),
				slog.String("size", humanize.Bytes(uint64(o.Size))))
		}
		sum.Outcomes = append(sum.Outcomes, o)
	}
	c.log.Info("bulk upload complete",
		slog.Int("processed", sum.Processed),
		slog.Int("errors", sum.Errors),
		slog.Int("skipped", sum.Skipped))
	return sum
}

func (c *Classifier) runOne(u Upload, sink TableSink) Outcome {
	if u.Err != nil {
		return Outcome{File: u.Name, Reason: ReasonReadFailed, Error: u.Err.Error()}
	}
	o := c.Classify(u.Name)
	o.Size = int64(len(u.Data))
	if !o.Assigned() {
		return o
	}
	tbl := csvtable.Parse(string(u.Data))
	if len(tbl.Headers) == 0 {
		return Outcome{File: u.Name, Size: o.Size, Product: o.Product, Reason: ReasonEmpty}
	}
	sink.Put(models.ParsedTable{
		FileName:  u.Name,
		TableName: o.Table,
		Tactic:    o.Tactic,
		Headers:   tbl.Headers,
		Rows:      tbl.Rows,
	})
	return o
}
