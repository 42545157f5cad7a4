// Package csvtable turns exported report CSV text into headers and rows.
//
// The splitter is deliberately naive: fields are split on every comma and
// double quotes are removed, so quoted fields containing commas are not
// supported. Report exports do not quote embedded commas except inside
// thousands-grouped numbers.
package csvtable

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Table is the parsed shape of one CSV file. Rows map header -> value.
type Table struct {
	Headers []string
	Rows    []map[string]any
}

var thousands = regexp.MustCompile(`^\d{1,3}(,\d{3})*$`)

// Parse never fails: text without at least one data line yields an empty table.
func Parse(text string) Table {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return Table{Headers: []string{}, Rows: []map[string]any{}}
	}

	headers := splitFields(lines[0])
	rows := make([]map[string]any, 0, len(lines)-1)
	for _, line := range lines[1:] {
		values := splitFields(line)
		row := make(map[string]any, len(headers))
		for i, h := range headers {
			// duplicate headers: later column overwrites earlier
			if i < len(values) {
				row[h] = values[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return Table{Headers: headers, Rows: rows}
}

// ParseReader reads r fully and parses it.
func ParseReader(r io.Reader) (Table, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("read csv: %w", err)
	}
	return Parse(string(b)), nil
}

func splitFields(line string) []string {
	parts := strings.Split(line, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = NormalizeField(p)
	}
	return out
}

// NormalizeField trims, drops double quotes and removes thousands separators
// from plain grouped integers ("12,345" -> "12345"). Decimals and text pass through.
func NormalizeField(v string) string {
	v = strings.ReplaceAll(strings.TrimSpace(v), `"`, "")
	if thousands.MatchString(v) {
		v = strings.ReplaceAll(v, ",", "")
	}
	return v
}
