package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// StrictPolicy strips all markup. Everything the backend hands us that ends
// up inside an HTML fragment (employee names, error strings, reset links
// shown as text) goes through it.
var StrictPolicy *bluemonday.Policy

func init() {
	StrictPolicy = bluemonday.StrictPolicy()
}

// SanitizeText removes any markup from backend-originated free text.
func SanitizeText(s string) string {
	return strings.TrimSpace(StrictPolicy.Sanitize(s))
}
