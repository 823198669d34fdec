// Package sections holds the hierarchy table for one source document and
// answers "which section is active at page P" queries. Tables are produced
// by an offline extraction step, loaded read-only for the lifetime of an
// enrichment run.
package sections

import (
	"fmt"
	"log/slog"
	"strings"
)

// Record is one entry in a document's hierarchy table.
type Record struct {
	Name        string `json:"section_name"`
	Title       string `json:"section_title"`
	StartPage   int    `json:"start_page_number"`
	Subsection  bool   `json:"is_subsection"`
	Description string `json:"description,omitempty"`
}

// Pair is the resolved hierarchy at a page: the most recently started
// main section and subsection. Either side may be nil — a subsection can
// be active without an identifiable main section and vice versa.
type Pair struct {
	Main *Record
	Sub  *Record
}

// Table is the ordered set of section records for one document.
// Read-only after construction.
type Table struct {
	records []Record
}

// NewTable builds a table from records in load order. The source data is
// expected to hold at most one main section and one subsection starting
// on any given page; duplicates are kept (the last encountered wins in
// ForPage's max scan) but logged.
func NewTable(records []Record) *Table {
	type pageKey struct {
		page int
		sub  bool
	}
	seen := make(map[pageKey]string, len(records))
	for _, r := range records {
		key := pageKey{r.StartPage, r.Subsection}
		if prev, ok := seen[key]; ok {
			slog.Warn("sections: duplicate start page",
				"page", r.StartPage, "subsection", r.Subsection,
				"kept", r.Name, "shadowed", prev)
		}
		seen[key] = r.Name
	}
	return &Table{records: records}
}

// Len returns the number of records in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// ForPage returns the main section and subsection active at the given
// page: from the records starting at or before the page, the one with
// the highest start page of each kind. When the page precedes every
// known section, the first loaded record stands in as the active entry
// of its kind — an approximation for cover/TOC pages. Returns nil for an
// empty table.
func (t *Table) ForPage(page int) *Pair {
	if t.Len() == 0 {
		return nil
	}

	var main, sub *Record
	for i := range t.records {
		r := &t.records[i]
		if r.StartPage > page {
			continue
		}
		if r.Subsection {
			if sub == nil || r.StartPage >= sub.StartPage {
				sub = r
			}
		} else {
			if main == nil || r.StartPage >= main.StartPage {
				main = r
			}
		}
	}

	if main == nil && sub == nil {
		slog.Debug("sections: page precedes all sections, using first record",
			"page", page, "first", t.records[0].Name)
		first := &t.records[0]
		if first.Subsection {
			return &Pair{Sub: first}
		}
		return &Pair{Main: first}
	}
	return &Pair{Main: main, Sub: sub}
}

// Format renders the pair as a hierarchical display string: sides joined
// by " > ", each side "name (title)" when they differ, just the name
// otherwise. An empty pair renders as "Unknown".
func (p *Pair) Format() string {
	if p == nil {
		return "Unknown"
	}
	var parts []string
	for _, r := range []*Record{p.Main, p.Sub} {
		if r == nil {
			continue
		}
		if r.Name != r.Title && r.Title != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", r.Name, r.Title))
		} else {
			parts = append(parts, r.Name)
		}
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, " > ")
}
