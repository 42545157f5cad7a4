package catalog

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FallbackTables is returned for tactics the catalog does not know.
var FallbackTables = []string{"Monthly Performance", "Campaign Performance", "Creative Performance"}

type tableEntry struct {
	tactic string
	tables []string
}

// Tables maps a canonical tactic to its ordered list of expected report tables.
type Tables struct {
	entries []tableEntry
	byName  map[string]int
}

// ParseTables decodes a YAML mapping of tactic -> list of table names.
func ParseTables(data []byte) (*Tables, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	pairs, err := mappingPairs(&doc)
	if err != nil {
		return nil, err
	}
	t := &Tables{byName: make(map[string]int, len(pairs))}
	for _, p := range pairs {
		name := p[0].Value
		var list []string
		if err := p[1].Decode(&list); err != nil {
			return nil, fmt.Errorf("tactic %q: %w", name, err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("tactic %q: no tables", name)
		}
		if _, dup := t.byName[name]; dup {
			return nil, fmt.Errorf("tactic %q declared twice", name)
		}
		t.byName[name] = len(t.entries)
		t.entries = append(t.entries, tableEntry{tactic: name, tables: list})
	}
	if len(t.entries) == 0 {
		return nil, errors.New("no tactics")
	}
	return t, nil
}

// For returns the expected tables for tactic. It never returns an empty list:
// exact key, then case-insensitive key, then partial name overlap in either
// direction, then FallbackTables. An empty tactic is contained in every key,
// so it resolves to the first declared entry.
func (t *Tables) For(tactic string) []string {
	if i, ok := t.byName[tactic]; ok {
		return clone(t.entries[i].tables)
	}
	lower := strings.ToLower(tactic)
	for _, e := range t.entries {
		if strings.ToLower(e.tactic) == lower {
			return clone(e.tables)
		}
	}
	for _, e := range t.entries {
		k := strings.ToLower(e.tactic)
		if strings.Contains(k, lower) || strings.Contains(lower, k) {
			return clone(e.tables)
		}
	}
	return clone(FallbackTables)
}

// Has reports whether tactic is a catalog key (exact or case-insensitive).
func (t *Tables) Has(tactic string) bool {
	if _, ok := t.byName[tactic]; ok {
		return true
	}
	for _, e := range t.entries {
		if strings.EqualFold(e.tactic, tactic) {
			return true
		}
	}
	return false
}

// Tactics lists catalog keys in declaration order.
func (t *Tables) Tactics() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.tactic
	}
	return out
}

func clone(s []string) []string { return append([]string(nil), s...) }
