package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/AngelCh415/campaign-analyzer/internal/catalog"
	"github.com/AngelCh415/campaign-analyzer/internal/models"
)

var ErrInvalidCampaign = errors.New("campaign must be a JSON object")

// Loader fetches campaign documents and derives the detected tactics.
type Loader struct {
	c        HTTPClient
	orderURL string
	tables   *catalog.Tables
	log      *slog.Logger
}

func NewLoader(c HTTPClient, orderURL string, tables *catalog.Tables, log *slog.Logger) *Loader {
	return &Loader{c: c, orderURL: orderURL, tables: tables, log: log}
}

// LoadOrder resolves the order id in pageURL, fetches the order and parses it.
func (l *Loader) LoadOrder(ctx context.Context, pageURL string) (models.Campaign, []string, error) {
	id, err := ExtractOrderID(pageURL)
	if err != nil {
		return models.Campaign{}, nil, err
	}
	u, err := OrderURL(l.orderURL, id)
	if err != nil {
		return models.Campaign{}, nil, err
	}
	var raw json.RawMessage
	if err := getJSON(ctx, l.c, u, &raw); err != nil {
		l.log.Error("order fetch failed", slog.String("order_id", id), slog.String("err", err.Error()))
		return models.Campaign{}, nil, err
	}
	c, tactics, err := LoadCampaign(raw, l.tables)
	if err != nil {
		return models.Campaign{}, nil, err
	}
	l.log.Info("order loaded", slog.String("order_id", id),
		slog.Int("line_items", len(c.LineItems)), slog.Int("tactics", len(tactics)))
	return c, tactics, nil
}

// LoadCampaign parses a campaign document. Only a JSON object is accepted.
func LoadCampaign(raw []byte, tables *catalog.Tables) (models.Campaign, []string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return models.Campaign{}, nil, ErrInvalidCampaign
	}
	var c models.Campaign
	if err := json.Unmarshal(raw, &c); err != nil {
		return models.Campaign{}, nil, fmt.Errorf("%w: %v", ErrInvalidCampaign, err)
	}
	c.Raw = append(json.RawMessage(nil), raw...)
	return c, DetectTactics(c, tables), nil
}

// DetectTactics collects product, subProduct and tacticTypeSpecial labels of
// every line item, normalized, without blanks or repeats. Labels with no
// entry in tables (as written or normalized) are dropped.
func DetectTactics(c models.Campaign, tables *catalog.Tables) []string {
	seen := map[string]struct{}{}
	out := []string{}
	add := func(labels models.StringList) {
		for _, l := range labels {
			l = strings.TrimSpace(l)
			t := catalog.Normalize(l)
			if t == "" || !(tables.Has(t) || tables.Has(l)) {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	for _, li := range c.LineItems {
		add(li.Product)
		add(li.SubProduct)
		add(li.TacticTypeSpecial)
	}
	return out
}

var generationCosts = regexp.MustCompile(`(?is)Generation Costs:.*$`)

// CleanCompanyText drops the trailing "Generation Costs:" block.
func CleanCompanyText(s string) string {
	return strings.TrimSpace(generationCosts.ReplaceAllString(s, ""))
}
