package ingest

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrNoOrderID      = errors.New("no order id in url")
	ErrOrderURLNotSet = errors.New("order endpoint not configured")
	orderIDRe         = regexp.MustCompile(`(?i)[0-9a-f]{24}`)
)

const orderPlaceholder = "{orderId}"

// ExtractOrderID returns the first 24-hex-character run of s, lowercased.
func ExtractOrderID(s string) (string, error) {
	id := orderIDRe.FindString(s)
	if id == "" {
		return "", ErrNoOrderID
	}
	return strings.ToLower(id), nil
}

// OrderURL fills the lookup template. A template without the placeholder
// gets the id appended as the last path segment.
func OrderURL(template, id string) (string, error) {
	template = strings.TrimSpace(template)
	if template == "" {
		return "", ErrOrderURLNotSet
	}
	if strings.Contains(template, orderPlaceholder) {
		return strings.ReplaceAll(template, orderPlaceholder, id), nil
	}
	return strings.TrimRight(template, "/") + "/" + id, nil
}
