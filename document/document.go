// Package document supplies the page-marker-interleaved full text of a
// source filing. The PDF-backed provider rebuilds the text from the file
// on every load; wrap it in a Cache when repeated loads within a process
// should be cheap.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"

	"github.com/secrag/filingcite/locate"
)

// Provider loads the raw page-tagged text for a source document.
type Provider interface {
	LoadText(ctx context.Context, sourceFile string) (string, error)
}

// Interleave joins per-page text into a single blob with a page-boundary
// marker before each page's content. Markers are emitted for every page,
// including pages with no extractable text, so ordinals stay 1-based and
// strictly increasing.
func Interleave(pages []string) string {
	var b strings.Builder
	for i, page := range pages {
		b.WriteByte('\n')
		b.WriteString(locate.PageMarker(i + 1))
		b.WriteByte('\n')
		b.WriteString(page)
	}
	return b.String()
}

// PDFProvider extracts page text from PDF files in a directory.
type PDFProvider struct {
	Dir string
}

// NewPDFProvider returns a provider rooted at the given directory.
func NewPDFProvider(dir string) *PDFProvider {
	return &PDFProvider{Dir: dir}
}

// LoadText extracts the text layer of every page and returns the
// page-marker-interleaved blob. Pages that fail text extraction
// contribute an empty body but still get their marker.
func (p *PDFProvider) LoadText(ctx context.Context, sourceFile string) (string, error) {
	path := filepath.Join(p.Dir, filepath.Base(sourceFile))

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	pages := make([]string, totalPages)

	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Warn("document: page text extraction failed",
				"file", sourceFile, "page", i, "error", err)
			continue
		}
		pages[i-1] = text
	}

	slog.Debug("document: text loaded", "file", sourceFile, "pages", totalPages)
	return Interleave(pages), nil
}

// Cache memoizes loads by source file name. Safe for concurrent use.
type Cache struct {
	inner Provider

	mu    sync.Mutex
	texts map[string]string
}

// NewCache wraps a provider with per-file memoization.
func NewCache(inner Provider) *Cache {
	return &Cache{inner: inner, texts: make(map[string]string)}
}

// LoadText returns the cached text for the file, loading it on first use.
func (c *Cache) LoadText(ctx context.Context, sourceFile string) (string, error) {
	c.mu.Lock()
	if text, ok := c.texts[sourceFile]; ok {
		c.mu.Unlock()
		return text, nil
	}
	c.mu.Unlock()

	text, err := c.inner.LoadText(ctx, sourceFile)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.texts[sourceFile] = text
	c.mu.Unlock()
	return text, nil
}
