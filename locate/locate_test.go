package locate

import (
	"strings"
	"testing"

	"github.com/secrag/filingcite/sections"
)

const filingText = "--- PAGE 1 ---\nIntro text.\n--- PAGE 2 ---\nRevenue grew 10% due to demand."

func TestLocateExact(t *testing.T) {
	doc := NewDocument(filingText)

	m := doc.Locate("Revenue grew 10% due to demand.", nil)
	if !m.Found {
		t.Fatal("expected fragment to be found")
	}
	if !m.Exact {
		t.Error("expected exact match")
	}
	if m.MatchedWords != 0 {
		t.Errorf("matched words should be unset for exact match, got %d", m.MatchedWords)
	}
	if m.PageNumber != 2 {
		t.Errorf("page: got %d, want 2", m.PageNumber)
	}
	if want := strings.Index(doc.Text(), "Revenue"); m.Position != want {
		t.Errorf("position: got %d, want %d", m.Position, want)
	}
	if m.Matched != "Revenue grew 10% due to demand." {
		t.Errorf("matched span: got %q", m.Matched)
	}
}

func TestLocateExactFirstOccurrence(t *testing.T) {
	doc := NewDocument("--- PAGE 1 ---\nthe same phrase here\n--- PAGE 2 ---\nthe same phrase here")

	m := doc.Locate("the same phrase here", nil)
	if !m.Found || !m.Exact {
		t.Fatal("expected exact match")
	}
	if want := strings.Index(doc.Text(), "the same phrase"); m.Position != want {
		t.Errorf("expected first occurrence at %d, got %d", want, m.Position)
	}
	if m.PageNumber != 1 {
		t.Errorf("expected page 1 for first occurrence, got %d", m.PageNumber)
	}
}

func TestLocatePrefixFallback(t *testing.T) {
	doc := NewDocument(filingText)

	// Trailing corruption drops only the last word.
	m := doc.Locate("Revenue grew 10% due to demand!!", nil)
	if !m.Found {
		t.Fatal("expected fallback match")
	}
	if m.Exact {
		t.Error("expected non-exact match")
	}
	if m.MatchedWords != 5 {
		t.Errorf("matched words: got %d, want 5", m.MatchedWords)
	}
	if m.PageNumber != 2 {
		t.Errorf("page: got %d, want 2", m.PageNumber)
	}
	if m.Matched != "Revenue grew 10% due to" {
		t.Errorf("matched span: got %q", m.Matched)
	}
}

func TestLocatePrefixFallbackSingleWord(t *testing.T) {
	doc := NewDocument("--- PAGE 1 ---\nRevenue statements follow.")

	m := doc.Locate("Revenue from nonexistent gibberish words", nil)
	if !m.Found {
		t.Fatal("expected single-word prefix to match")
	}
	if m.MatchedWords != 1 {
		t.Errorf("matched words: got %d, want 1", m.MatchedWords)
	}
}

func TestLocateNotFound(t *testing.T) {
	doc := NewDocument(filingText)

	m := doc.Locate("zebra quantum xylophone", nil)
	if m.Found {
		t.Errorf("expected not found, got match at %d", m.Position)
	}
}

func TestLocateEmptyFragment(t *testing.T) {
	doc := NewDocument(filingText)
	if m := doc.Locate("", nil); m.Found {
		t.Error("empty fragment should not match")
	}
	if m := doc.Locate("  \n ", nil); m.Found {
		t.Error("whitespace fragment should not match")
	}
}

func TestLocateNormalizesFragment(t *testing.T) {
	doc := NewDocument(filingText)

	m := doc.Locate("Revenue\n  grew\t10% due to demand.", nil)
	if !m.Found || !m.Exact {
		t.Error("whitespace differences should not prevent an exact match")
	}
}

func TestLocateContextWindows(t *testing.T) {
	// Build a document long enough that both windows clamp inside it.
	filler := strings.Repeat("lorem ipsum filler words ", 100)
	doc := NewDocument("--- PAGE 1 ---\n" + filler + " UNIQUE TARGET PHRASE " + filler)

	m := doc.Locate("UNIQUE TARGET PHRASE", nil)
	if !m.Found || !m.Exact {
		t.Fatal("expected exact match")
	}
	if len(m.Before) != exactContext {
		t.Errorf("before window: got %d chars, want %d", len(m.Before), exactContext)
	}
	if len(m.After) != exactContext {
		t.Errorf("after window: got %d chars, want %d", len(m.After), exactContext)
	}

	// Fallback matches get the narrower window.
	m = doc.Locate("UNIQUE TARGET PHRASE corrupted-tail-token", nil)
	if !m.Found || m.Exact {
		t.Fatal("expected fallback match")
	}
	if len(m.Before) != prefixContext {
		t.Errorf("fallback before window: got %d chars, want %d", len(m.Before), prefixContext)
	}
	if len(m.After) != prefixContext {
		t.Errorf("fallback after window: got %d chars, want %d", len(m.After), prefixContext)
	}
}

func TestLocateContextClampedAtBounds(t *testing.T) {
	doc := NewDocument("--- PAGE 1 ---\nshort document")

	m := doc.Locate("short document", nil)
	if !m.Found {
		t.Fatal("expected match")
	}
	if m.Before != "--- PAGE 1 --- " {
		t.Errorf("before: got %q", m.Before)
	}
	if m.After != "" {
		t.Errorf("after: got %q", m.After)
	}
}

func TestLocateWithSections(t *testing.T) {
	table := sections.NewTable([]sections.Record{
		{Name: "Part I", Title: "Part I", StartPage: 1},
		{Name: "Item 1", Title: "Business", StartPage: 1, Subsection: true},
		{Name: "Part II", Title: "Part II", StartPage: 2},
		{Name: "Item 7", Title: "MD&A", StartPage: 2, Subsection: true},
	})

	doc := NewDocument(filingText)
	m := doc.Locate("Revenue grew 10% due to demand.", table)
	if !m.Found {
		t.Fatal("expected match")
	}
	if m.Section == nil {
		t.Fatal("expected section resolution with a table supplied")
	}
	if got := m.Section.Format(); got != "Part II > Item 7 (MD&A)" {
		t.Errorf("section: got %q", got)
	}

	// No table: page resolved, section skipped.
	m = doc.Locate("Revenue grew 10% due to demand.", nil)
	if m.Section != nil {
		t.Error("expected nil section without a table")
	}
	if m.PageNumber != 2 {
		t.Errorf("page resolution should still happen, got %d", m.PageNumber)
	}
}

func TestLocatePositionIsNormalizedOffset(t *testing.T) {
	// Raw text with heavy whitespace; position must index the
	// normalized text, not the raw input.
	raw := "--- PAGE 1 ---\n\n\n   alpha    beta\n\n gamma"
	doc := NewDocument(raw)

	m := doc.Locate("gamma", nil)
	if !m.Found {
		t.Fatal("expected match")
	}
	if doc.Text()[m.Position:m.Position+5] != "gamma" {
		t.Errorf("position %d does not index the normalized text", m.Position)
	}
}
