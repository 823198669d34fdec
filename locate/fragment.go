package locate

import "regexp"

// tagRE matches embedded markup tags left in chunk text by the document
// parsing pipeline (table and structure markup survives chunking).
var tagRE = regexp.MustCompile(`<[^>]+>`)

// SelectFragment extracts the search fragment from a chunk's raw text:
// the text is split on markup tags, each piece is normalized, and the
// longest piece wins. Markup-adjacent pieces tend to be short table
// labels; the longest plain span is the most likely to appear verbatim
// in the source PDF's text layer. Markup-free text comes back whole,
// normalized.
func SelectFragment(raw string) string {
	var longest string
	for _, piece := range tagRE.Split(raw, -1) {
		cleaned := Normalize(piece)
		if len(cleaned) > len(longest) {
			longest = cleaned
		}
	}
	return longest
}
