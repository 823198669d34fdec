package locate

import (
	"fmt"
	"regexp"
	"strconv"
)

// pageMarkerRE matches the page-boundary markers interleaved into
// document text by the text provider. Ordinals are 1-based and strictly
// increasing through a document.
var pageMarkerRE = regexp.MustCompile(`--- PAGE (\d+) ---`)

// PageMarker renders the boundary marker emitted before page n's content.
func PageMarker(n int) string {
	return fmt.Sprintf("--- PAGE %d ---", n)
}

// PageForOffset returns the page the given offset of the normalized
// document text falls on: the ordinal of the last marker preceding the
// offset, or 1 when no marker precedes it (content before the first
// marker belongs to page 1). Offsets outside the text are clamped.
//
// This is a linear scan over the prefix — invoked once per located
// fragment, not per character, so O(offset) is acceptable.
func PageForOffset(text string, offset int) int {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}

	matches := pageMarkerRE.FindAllStringSubmatch(text[:offset], -1)
	if len(matches) == 0 {
		return 1
	}
	n, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
