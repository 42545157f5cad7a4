package catalog

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type SubProduct struct {
	Code      string
	Medium    string   `yaml:"medium"`
	KPIs      []string `yaml:"kpis"`
	DataValue string   `yaml:"dataValue"`
}

// TacticInfo is one taxonomy entry. SubProducts keep declaration order.
type TacticInfo struct {
	Name        string
	Platforms   []string
	Category    string
	Product     string
	SubProducts []SubProduct
}

type platform struct {
	name    string
	aliases []string
}

// Categories is the tactic taxonomy.
type Categories struct {
	platforms []platform
	tactics   []TacticInfo
	byName    map[string]int
}

// Mapping is the product resolution of a tactic label.
type Mapping struct {
	Product     string   `json:"product"`
	SubProducts []string `json:"subProducts"`
}

type rawTactic struct {
	Platform []string  `yaml:"platform"`
	Category string    `yaml:"category"`
	Product  string    `yaml:"product"`
	Subs     yaml.Node `yaml:"subProducts"`
}

// ParseCategories decodes the taxonomy document. Every tactic must name
// exactly one product.
func ParseCategories(data []byte) (*Categories, error) {
	var doc struct {
		Platforms yaml.Node `yaml:"platforms"`
		Tactics   yaml.Node `yaml:"tactics"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	c := &Categories{byName: map[string]int{}}

	if doc.Platforms.Kind != 0 {
		pairs, err := mappingPairs(&doc.Platforms)
		if err != nil {
			return nil, fmt.Errorf("platforms: %w", err)
		}
		for _, p := range pairs {
			var aliases []string
			if err := p[1].Decode(&aliases); err != nil {
				return nil, fmt.Errorf("platform %q: %w", p[0].Value, err)
			}
			c.platforms = append(c.platforms, platform{name: p[0].Value, aliases: aliases})
		}
	}

	if doc.Tactics.Kind == 0 {
		return nil, errors.New("no tactics")
	}
	pairs, err := mappingPairs(&doc.Tactics)
	if err != nil {
		return nil, fmt.Errorf("tactics: %w", err)
	}
	for _, p := range pairs {
		name := p[0].Value
		var rt rawTactic
		if err := p[1].Decode(&rt); err != nil {
			return nil, fmt.Errorf("tactic %q: %w", name, err)
		}
		if strings.TrimSpace(rt.Product) == "" {
			return nil, fmt.Errorf("tactic %q: missing product", name)
		}
		if _, dup := c.byName[name]; dup {
			return nil, fmt.Errorf("tactic %q declared twice", name)
		}
		info := TacticInfo{Name: name, Platforms: rt.Platform, Category: rt.Category, Product: rt.Product}
		if rt.Subs.Kind != 0 {
			subs, err := mappingPairs(&rt.Subs)
			if err != nil {
				return nil, fmt.Errorf("tactic %q sub-products: %w", name, err)
			}
			for _, s := range subs {
				var sp SubProduct
				if err := s[1].Decode(&sp); err != nil {
					return nil, fmt.Errorf("tactic %q sub-product %q: %w", name, s[0].Value, err)
				}
				sp.Code = s[0].Value
				info.SubProducts = append(info.SubProducts, sp)
			}
		}
		c.byName[name] = len(c.tactics)
		c.tactics = append(c.tactics, info)
	}
	return c, nil
}

// Normalize applies the fixed label substitutions used before any lookup:
// YouTube labels pass through untouched, AAT and RTG expand to their full names.
func Normalize(label string) string {
	switch {
	case strings.Contains(strings.ToLower(label), "youtube"):
		return label
	case strings.EqualFold(label, "AAT"):
		return "Advanced Audience Targeting"
	case strings.EqualFold(label, "RTG"):
		return "Retargeting"
	}
	return label
}

// MapToProduct resolves a canonical label to its product. A false result is
// an ordinary outcome: many campaign labels have no taxonomy entry.
func (c *Categories) MapToProduct(label string) (Mapping, bool) {
	if i, ok := c.byName[label]; ok {
		return c.tactics[i].mapping(), true
	}
	lower := strings.ToLower(label)
	for _, t := range c.tactics {
		k := strings.ToLower(t.Name)
		if strings.Contains(k, lower) || strings.Contains(lower, k) {
			return t.mapping(), true
		}
	}
	for _, p := range c.platforms {
		if !p.matches(lower) {
			continue
		}
		for _, t := range c.tactics {
			for _, tp := range t.Platforms {
				if strings.EqualFold(tp, p.name) {
					return t.mapping(), true
				}
			}
		}
	}
	return Mapping{}, false
}

// Products lists distinct products in first-declared order.
func (c *Categories) Products() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range c.tactics {
		if !seen[t.Product] {
			seen[t.Product] = true
			out = append(out, t.Product)
		}
	}
	return out
}

// Tactic returns the taxonomy entry for an exact tactic name.
func (c *Categories) Tactic(name string) (TacticInfo, bool) {
	i, ok := c.byName[name]
	if !ok {
		return TacticInfo{}, false
	}
	return c.tactics[i], true
}

func (t TacticInfo) mapping() Mapping {
	subs := make([]string, 0, len(t.SubProducts))
	for _, s := range t.SubProducts {
		subs = append(subs, s.Code)
	}
	return Mapping{Product: t.Product, SubProducts: subs}
}

func (p platform) matches(lower string) bool {
	if strings.ToLower(p.name) == lower {
		return true
	}
	for _, a := range p.aliases {
		if strings.ToLower(a) == lower {
			return true
		}
	}
	return false
}
