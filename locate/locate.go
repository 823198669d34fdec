package locate

import (
	"log/slog"
	"strings"

	"github.com/secrag/filingcite/sections"
)

// Context window sizes (characters each side of the matched span).
// Exact matches get a generous window for full-paragraph citation
// context; prefix-fallback matches get a narrower one since the match
// itself is already degraded.
const (
	exactContext  = 1000
	prefixContext = 500
)

// Match is the result of locating a fragment in a document.
type Match struct {
	// Found reports whether any span was located.
	Found bool `json:"found"`

	// Exact is true for a verbatim substring match, false when the
	// prefix fallback was used.
	Exact bool `json:"exact"`

	// MatchedWords is the word count of the matched prefix. Set only
	// when Exact is false.
	MatchedWords int `json:"matched_words,omitempty"`

	// Position is the start offset of the matched span in the
	// normalized document text.
	Position int `json:"position"`

	// PageNumber is the page the matched span starts on.
	PageNumber int `json:"page_number"`

	// Section is the hierarchy pair active at PageNumber. Nil when no
	// section table was supplied.
	Section *sections.Pair `json:"-"`

	// Before, Matched and After are the context window around the span.
	Before  string `json:"before,omitempty"`
	Matched string `json:"matched,omitempty"`
	After   string `json:"after,omitempty"`
}

// Document is the normalized, page-marker-tagged text of one source
// document. Built once per enrichment run and shared read-only across
// all chunk lookups.
type Document struct {
	text string
}

// NewDocument normalizes raw page-tagged text into a searchable Document.
func NewDocument(raw string) *Document {
	return &Document{text: Normalize(raw)}
}

// Text returns the normalized document text.
func (d *Document) Text() string { return d.text }

// PageAt returns the page number at an offset of the normalized text.
func (d *Document) PageAt(offset int) int {
	return PageForOffset(d.text, offset)
}

// Locate finds the fragment in the document. The fragment is normalized
// before searching. An exact substring match is tried first; when that
// fails (extraction artifacts, OCR noise, chunks straddling page
// boundaries), successively shorter word prefixes of the fragment are
// tried, longest first, down to a single word. Extraction artifacts
// corrupt fragment tails more often than heads, so shrinking from the
// end keeps the most citation context while still pinning the page.
//
// A nil or empty section table skips hierarchy resolution; the page is
// resolved either way. A fragment absent at every prefix length returns
// Found=false — a normal outcome, not an error.
func (d *Document) Locate(fragment string, table *sections.Table) Match {
	frag := Normalize(fragment)
	if frag == "" {
		return Match{}
	}

	if pos := strings.Index(d.text, frag); pos >= 0 {
		m := d.resolve(pos, len(frag), exactContext, table)
		m.Exact = true
		return m
	}

	words := strings.Fields(frag)
	for n := len(words) - 1; n >= 1; n-- {
		prefix := strings.Join(words[:n], " ")
		pos := strings.Index(d.text, prefix)
		if pos < 0 {
			continue
		}
		slog.Debug("locate: prefix fallback matched",
			"words", n, "of", len(words), "position", pos)
		m := d.resolve(pos, len(prefix), prefixContext, table)
		m.MatchedWords = n
		return m
	}

	return Match{}
}

// resolve builds a found Match for the span [pos, pos+length): page via
// the marker index, section via the table when present, and a context
// window clamped to the document bounds.
func (d *Document) resolve(pos, length, window int, table *sections.Table) Match {
	end := pos + length
	page := PageForOffset(d.text, pos)

	m := Match{
		Found:      true,
		Position:   pos,
		PageNumber: page,
	}
	if table.Len() > 0 {
		m.Section = table.ForPage(page)
	}

	ctxStart := max(0, pos-window)
	ctxEnd := min(len(d.text), end+window)
	m.Before = d.text[ctxStart:pos]
	m.Matched = d.text[pos:end]
	m.After = d.text[end:ctxEnd]
	return m
}
