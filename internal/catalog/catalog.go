// Package catalog holds the static tactic reference data: the product
// taxonomy (platforms, tactics, sub-products) and the expected report tables
// per tactic. Both are decoded once from embedded YAML and never mutated.
//
// Every lookup that can match more than one entry walks the entries in the
// order they are declared in the YAML documents and returns the first hit.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed data/tactic_categories.yaml
var categoriesYAML []byte

//go:embed data/tactic_tables.yaml
var tablesYAML []byte

// Catalog bundles both reference datasets.
type Catalog struct {
	Categories *Categories
	Tables     *Tables
}

// Default decodes the embedded datasets.
func Default() (*Catalog, error) {
	cats, err := ParseCategories(categoriesYAML)
	if err != nil {
		return nil, fmt.Errorf("tactic categories: %w", err)
	}
	tbls, err := ParseTables(tablesYAML)
	if err != nil {
		return nil, fmt.Errorf("tactic tables: %w", err)
	}
	return &Catalog{Categories: cats, Tables: tbls}, nil
}

// MustDefault is Default for process start-up and tests.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// mappingPairs returns the key/value nodes of a YAML mapping in document order.
func mappingPairs(n *yaml.Node) ([][2]*yaml.Node, error) {
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil, errors.New("empty document")
		}
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected mapping", n.Line)
	}
	out := make([][2]*yaml.Node, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, [2]*yaml.Node{n.Content[i], n.Content[i+1]})
	}
	return out, nil
}
