// Package modifiers holds the user-edited benchmark baselines injected into
// the analysis prompt, as a typed tree: tactic -> section -> key -> metrics.
package modifiers

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnknownSection = errors.New("unknown modifier section")
	ErrUnknownQuarter = errors.New("unknown quarter")
	ErrUnknownRegion  = errors.New("unknown region")
	ErrUnknownMonth   = errors.New("unknown month")
	ErrUnknownMetric  = errors.New("unknown metric")
	ErrNoTactic       = errors.New("tactic required")
)

type Quarter string

const (
	Q1 Quarter = "Q1 (Winter)"
	Q2 Quarter = "Q2 (Spring)"
	Q3 Quarter = "Q3 (Summer)"
	Q4 Quarter = "Q4 (Fall/Holiday)"
)

var Quarters = []Quarter{Q1, Q2, Q3, Q4}

type Region string

const (
	Northeast Region = "Northeast"
	Southeast Region = "Southeast"
	Midwest   Region = "Midwest"
	Southwest Region = "Southwest"
	West      Region = "West"
)

var Regions = []Region{Northeast, Southeast, Midwest, Southwest, West}

// Metrics is one benchmark cell. Unset metrics are omitted from the prompt.
type Metrics struct {
	CTR      *float64 `json:"ctr,omitempty"`
	CPM      *float64 `json:"cpm,omitempty"`
	CPC      *float64 `json:"cpc,omitempty"`
	CPV      *float64 `json:"cpv,omitempty"`
	ViewRate *float64 `json:"viewRate,omitempty"`
	CVR      *float64 `json:"cvr,omitempty"`
}

type PerformancePatterns struct {
	Seasonal map[Quarter]Metrics `json:"seasonal,omitempty"`
	Monthly  map[string]Metrics  `json:"monthly,omitempty"`
}

type GeographicBaselines struct {
	Regions map[Region]Metrics `json:"regions,omitempty"`
}

type TacticModifiers struct {
	Patterns   PerformancePatterns `json:"performancePatterns"`
	Geographic GeographicBaselines `json:"geographicBaselines"`
}

// Table is the whole benchmark document, keyed by tactic.
type Table map[string]TacticModifiers

// Section names accepted by Update.
const (
	SectionSeasonal = "performancePatterns.seasonal"
	SectionMonthly  = "performancePatterns.monthly"
	SectionRegions  = "geographicBaselines.regions"
)

// Update is one edited cell, as sent by the settings screen.
type Update struct {
	Tactic  string `json:"tactic"`
	Section string `json:"section"`
	Key     string `json:"key"`
	Metric  string `json:"metric"`
	Value   string `json:"value"`
}

// Apply dispatches u to the typed setter for its section. Section may be
// given as "performancePatterns.seasonal" or just "seasonal".
func (t Table) Apply(u Update) error {
	v := ParseValue(u.Value)
	switch strings.TrimSpace(u.Section) {
	case SectionSeasonal, "seasonal":
		return t.SetSeasonal(u.Tactic, Quarter(u.Key), u.Metric, v)
	case SectionMonthly, "monthly":
		return t.SetMonthly(u.Tactic, u.Key, u.Metric, v)
	case SectionRegions, "regions":
		return t.SetRegional(u.Tactic, Region(u.Key), u.Metric, v)
	}
	return fmt.Errorf("%w: %q", ErrUnknownSection, u.Section)
}

// SetSeasonal sets one metric of a quarter cell, creating the tactic and
// cell as needed. Other metrics of the cell are kept.
func (t Table) SetSeasonal(tactic string, q Quarter, metric string, v float64) error {
	if !validQuarter(q) {
		return fmt.Errorf("%w: %q", ErrUnknownQuarter, q)
	}
	tm, err := t.tactic(tactic)
	if err != nil {
		return err
	}
	if tm.Patterns.Seasonal == nil {
		tm.Patterns.Seasonal = map[Quarter]Metrics{}
	}
	m := tm.Patterns.Seasonal[q]
	if err := m.Set(metric, v); err != nil {
		return err
	}
	tm.Patterns.Seasonal[q] = m
	t[strings.TrimSpace(tactic)] = tm
	return nil
}

// SetMonthly sets one metric of a month cell. Month is an English month
// name, full or abbreviated; it is stored under the full name.
func (t Table) SetMonthly(tactic, month string, metric string, v float64) error {
	name, ok := monthName(month)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMonth, month)
	}
	tm, err := t.tactic(tactic)
	if err != nil {
		return err
	}
	if tm.Patterns.Monthly == nil {
		tm.Patterns.Monthly = map[string]Metrics{}
	}
	m := tm.Patterns.Monthly[name]
	if err := m.Set(metric, v); err != nil {
		return err
	}
	tm.Patterns.Monthly[name] = m
	t[strings.TrimSpace(tactic)] = tm
	return nil
}

// SetRegional sets one metric of a region cell.
func (t Table) SetRegional(tactic string, r Region, metric string, v float64) error {
	if !validRegion(r) {
		return fmt.Errorf("%w: %q", ErrUnknownRegion, r)
	}
	tm, err := t.tactic(tactic)
	if err != nil {
		return err
	}
	if tm.Geographic.Regions == nil {
		tm.Geographic.Regions = map[Region]Metrics{}
	}
	m := tm.Geographic.Regions[r]
	if err := m.Set(metric, v); err != nil {
		return err
	}
	tm.Geographic.Regions[r] = m
	t[strings.TrimSpace(tactic)] = tm
	return nil
}

func (t Table) tactic(name string) (TacticModifiers, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return TacticModifiers{}, ErrNoTactic
	}
	return t[name], nil
}

// Set assigns one named metric.
func (m *Metrics) Set(metric string, v float64) error {
	p := &v
	switch metric {
	case "ctr":
		m.CTR = p
	case "cpm":
		m.CPM = p
	case "cpc":
		m.CPC = p
	case "cpv":
		m.CPV = p
	case "viewRate":
		m.ViewRate = p
	case "cvr":
		m.CVR = p
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	return nil
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseValue reads the leading number of a form value ("1.5%" is 1.5).
// A value with no leading number is 0.
func ParseValue(s string) float64 {
	f, err := strconv.ParseFloat(leadingNumber.FindString(strings.TrimSpace(s)), 64)
	if err != nil || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// clone returns a deep copy of t.
func (t Table) clone() Table {
	out := make(Table, len(t))
	for k, tm := range t {
		c := TacticModifiers{}
		if tm.Patterns.Seasonal != nil {
			c.Patterns.Seasonal = make(map[Quarter]Metrics, len(tm.Patterns.Seasonal))
			for q, m := range tm.Patterns.Seasonal {
				c.Patterns.Seasonal[q] = m.clone()
			}
		}
		if tm.Patterns.Monthly != nil {
			c.Patterns.Monthly = make(map[string]Metrics, len(tm.Patterns.Monthly))
			for mo, m := range tm.Patterns.Monthly {
				c.Patterns.Monthly[mo] = m.clone()
			}
		}
		if tm.Geographic.Regions != nil {
			c.Geographic.Regions = make(map[Region]Metrics, len(tm.Geographic.Regions))
			for r, m := range tm.Geographic.Regions {
				c.Geographic.Regions[r] = m.clone()
			}
		}
		out[k] = c
	}
	return out
}

func (m Metrics) clone() Metrics {
	cp := func(p *float64) *float64 {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	return Metrics{CTR: cp(m.CTR), CPM: cp(m.CPM), CPC: cp(m.CPC), CPV: cp(m.CPV), ViewRate: cp(m.ViewRate), CVR: cp(m.CVR)}
}

func validQuarter(q Quarter) bool {
	for _, k := range Quarters {
		if k == q {
			return true
		}
	}
	return false
}

func validRegion(r Region) bool {
	for _, k := range Regions {
		if k == r {
			return true
		}
	}
	return false
}

func monthName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(s, m.String()) || strings.EqualFold(s, m.String()[:3]) {
			return m.String(), true
		}
	}
	return "", false
}
