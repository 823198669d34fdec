// Package locate finds chunk text fragments inside page-marker-tagged
// document text and resolves the page and hierarchical section they
// appear in. All comparisons happen over whitespace-normalized text;
// a position reported by this package is always an offset into the
// normalized document text, never the raw extraction.
package locate

import (
	"regexp"
	"strings"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

// Normalize collapses every run of whitespace (spaces, tabs, newlines)
// into a single space and trims the ends. Idempotent, and applied
// identically to fragments and document text before any comparison.
func Normalize(text string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
}
