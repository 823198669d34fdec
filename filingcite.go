// Package filingcite enriches previously indexed 10-K filing chunks with
// citation metadata: the page a chunk's text appears on in the source PDF
// and the hierarchical document section (part/item) containing that page.
package filingcite

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/secrag/filingcite/document"
	"github.com/secrag/filingcite/locate"
	"github.com/secrag/filingcite/sections"
	"github.com/secrag/filingcite/store"
)

// Chunk is an indexed chunk as seen by the enrichment run.
type Chunk struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Enriched bool   `json:"enriched"`
}

// ChunkUpdate is the citation metadata written back to a chunk. Fields
// with zero values are absent — they are never written, so absence in
// the store always means "not enriched", never a placeholder.
type ChunkUpdate struct {
	PageNumber          int    `json:"page_number,omitempty"`
	HierarchicalSection string `json:"hierarchical_section,omitempty"`
	MainSectionName     string `json:"main_section_name,omitempty"`
	MainSectionTitle    string `json:"main_section_title,omitempty"`
	SubsectionName      string `json:"subsection_name,omitempty"`
	SubsectionTitle     string `json:"subsection_title,omitempty"`
}

// IsZero reports whether the update carries no fields.
func (u ChunkUpdate) IsZero() bool { return u == ChunkUpdate{} }

// ChunkSource provides the chunks indexed for a source file.
type ChunkSource interface {
	FetchChunks(ctx context.Context, sourceFile string) ([]Chunk, error)
}

// MetadataWriter applies a citation update to one chunk. Each chunk's
// update must be atomic: all fields land together or none do.
type MetadataWriter interface {
	ApplyUpdate(ctx context.Context, chunkID string, update ChunkUpdate) error
}

// SectionLoader loads the hierarchy table for a source file. An empty
// table is a valid "no hierarchy available" result.
type SectionLoader interface {
	LoadSections(sourceFile string) (*sections.Table, error)
}

// TextProvider loads the page-marker-interleaved raw text of a source
// document. Implementations may memoize; the enricher requests the text
// once per run either way.
type TextProvider interface {
	LoadText(ctx context.Context, sourceFile string) (string, error)
}

// Enricher coordinates enrichment runs over a chunk index.
type Enricher struct {
	chunks    ChunkSource
	writer    MetadataWriter
	texts     TextProvider
	hierarchy SectionLoader
	batchSize int

	index *store.Store // set by Open, nil when wired from interfaces
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithBatchSize sets the batch size used for progress reporting and
// failure isolation during exhaustive runs.
func WithBatchSize(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// New wires an Enricher from its collaborators.
func New(chunks ChunkSource, writer MetadataWriter, texts TextProvider, hierarchy SectionLoader, opts ...Option) *Enricher {
	e := &Enricher{
		chunks:    chunks,
		writer:    writer,
		texts:     texts,
		hierarchy: hierarchy,
		batchSize: 45,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Open builds an Enricher over the local SQLite chunk index, PDF
// documents directory, and section table directory from the config.
func Open(cfg Config) (*Enricher, error) {
	dim := cfg.EmbeddingDim
	if dim == 0 {
		dim = 768
	}

	s, err := store.New(cfg.resolveDBPath(), dim)
	if err != nil {
		return nil, fmt.Errorf("opening chunk index: %w", err)
	}

	docs := document.NewCache(document.NewPDFProvider(cfg.DocumentsDir))
	secs := &sections.DirLoader{Dir: cfg.SectionsDir}

	idx := chunkIndex{s}
	e := New(idx, idx, docs, secs, WithBatchSize(cfg.BatchSize))
	e.index = s
	return e, nil
}

// Store returns the underlying chunk index when the Enricher was built
// with Open; nil otherwise.
func (e *Enricher) Store() *store.Store { return e.index }

// Close releases the underlying chunk index, if any.
func (e *Enricher) Close() error {
	if e.index != nil {
		return e.index.Close()
	}
	return nil
}

// RunOption configures a single enrichment run.
type RunOption func(*runOptions)

type runOptions struct {
	count  int
	all    bool
	dryRun bool
	force  bool
}

// WithCount processes n randomly selected candidate chunks.
func WithCount(n int) RunOption {
	return func(o *runOptions) { o.count = n }
}

// WithAll processes every candidate chunk, in batches.
func WithAll() RunOption {
	return func(o *runOptions) { o.all = true }
}

// WithDryRun reports what would be written without mutating the store.
// Selection and matching behave exactly as in a live run.
func WithDryRun() RunOption {
	return func(o *runOptions) { o.dryRun = true }
}

// WithForce includes already-enriched chunks as candidates.
func WithForce() RunOption {
	return func(o *runOptions) { o.force = true }
}

// ChunkReport is the per-chunk outcome of an enrichment run.
type ChunkReport struct {
	ChunkID      string      `json:"chunk_id"`
	OK           bool        `json:"ok"`
	Reason       string      `json:"reason,omitempty"`
	Exact        bool        `json:"exact,omitempty"`
	MatchedWords int         `json:"matched_words,omitempty"`
	PageNumber   int         `json:"page_number,omitempty"`
	Section      string      `json:"section,omitempty"`
	Update       ChunkUpdate `json:"update,omitzero"`
}

// RunSummary is the outcome of one enrichment run over a source file.
type RunSummary struct {
	SourceFile string        `json:"source_file"`
	DryRun     bool          `json:"dry_run"`
	Total      int           `json:"total"`
	Candidates int           `json:"candidates"`
	Processed  int           `json:"processed"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Reports    []ChunkReport `json:"reports"`
	Elapsed    time.Duration `json:"elapsed"`
}

// SuccessRate returns the percentage of processed chunks that were enriched.
func (s *RunSummary) SuccessRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Processed) * 100
}

// EnrichCompany runs enrichment for a company's filing.
func (e *Enricher) EnrichCompany(ctx context.Context, company string, opts ...RunOption) (*RunSummary, error) {
	sourceFile, err := SourceForCompany(company)
	if err != nil {
		return nil, err
	}
	return e.EnrichSource(ctx, sourceFile, opts...)
}

// EnrichSource runs enrichment for one source file. Per-chunk failures
// are recorded in the summary and never abort the run; only resource
// acquisition failures (chunk fetch, document text, section table) do.
func (e *Enricher) EnrichSource(ctx context.Context, sourceFile string, opts ...RunOption) (*RunSummary, error) {
	options := runOptions{count: 1}
	for _, o := range opts {
		o(&options)
	}

	start := time.Now()
	summary := &RunSummary{SourceFile: sourceFile, DryRun: options.dryRun}

	chunks, err := e.chunks.FetchChunks(ctx, sourceFile)
	if err != nil {
		return nil, fmt.Errorf("fetching chunks for %s: %w", sourceFile, err)
	}
	summary.Total = len(chunks)

	// Skip already-enriched chunks unless forced, so re-runs are
	// idempotent and only pick up what previous runs missed.
	candidates := chunks
	if !options.force {
		candidates = nil
		for _, c := range chunks {
			if !c.Enriched {
				candidates = append(candidates, c)
			}
		}
	}
	summary.Candidates = len(candidates)

	slog.Info("enrich: candidates selected",
		"source", sourceFile, "total", summary.Total,
		"candidates", summary.Candidates, "dry_run", options.dryRun)

	if len(candidates) == 0 {
		summary.Elapsed = time.Since(start)
		return summary, nil
	}

	selected := candidates
	if !options.all {
		selected = sampleChunks(candidates, options.count)
	}

	// The document text and section table are loaded once per run and
	// shared read-only across every chunk lookup.
	raw, err := e.texts.LoadText(ctx, sourceFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	doc := locate.NewDocument(raw)

	table, err := e.hierarchy.LoadSections(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if table.Len() == 0 {
		slog.Info("enrich: no section table, page resolution only", "source", sourceFile)
	}

	batchSize := e.batchSize
	totalBatches := (len(selected) + batchSize - 1) / batchSize

	for b := 0; b < totalBatches; b++ {
		lo := b * batchSize
		hi := min(lo+batchSize, len(selected))
		batch := selected[lo:hi]

		if totalBatches > 1 {
			slog.Info("enrich: batch start",
				"source", sourceFile, "batch", b+1, "of", totalBatches,
				"chunks", len(batch))
		}

		batchOK := 0
		for _, chunk := range batch {
			if err := ctx.Err(); err != nil {
				summary.Elapsed = time.Since(start)
				return summary, err
			}

			report := e.processChunk(ctx, chunk, doc, table, options.dryRun)
			summary.Reports = append(summary.Reports, report)
			summary.Processed++
			if report.OK {
				summary.Succeeded++
				batchOK++
			} else {
				summary.Failed++
				slog.Warn("enrich: chunk failed",
					"chunk", chunk.ID, "reason", report.Reason)
			}
		}

		if totalBatches > 1 {
			slog.Info("enrich: batch done",
				"source", sourceFile, "batch", b+1,
				"succeeded", batchOK, "of", len(batch))
		}
	}

	summary.Elapsed = time.Since(start)
	slog.Info("enrich: run complete",
		"source", sourceFile, "processed", summary.Processed,
		"succeeded", summary.Succeeded, "failed", summary.Failed,
		"rate", fmt.Sprintf("%.1f%%", summary.SuccessRate()),
		"dry_run", options.dryRun,
		"elapsed", summary.Elapsed.Round(time.Millisecond))
	return summary, nil
}

// processChunk runs the per-chunk pipeline: select the search fragment,
// locate it, compose the metadata update, and apply it (unless dry-run).
func (e *Enricher) processChunk(ctx context.Context, chunk Chunk, doc *locate.Document, table *sections.Table, dryRun bool) ChunkReport {
	report := ChunkReport{ChunkID: chunk.ID}

	if chunk.Text == "" {
		report.Reason = ErrMissingText.Error()
		return report
	}

	fragment := locate.SelectFragment(chunk.Text)
	if fragment == "" {
		report.Reason = ErrEmptyFragment.Error()
		return report
	}

	m := doc.Locate(fragment, table)
	if !m.Found {
		report.Reason = ErrNotLocated.Error()
		return report
	}

	report.Exact = m.Exact
	report.MatchedWords = m.MatchedWords
	report.PageNumber = m.PageNumber
	if m.Section != nil {
		report.Section = m.Section.Format()
	}

	update := updateFromMatch(m)
	if update.IsZero() {
		report.Reason = ErrNothingToUpdate.Error()
		return report
	}
	report.Update = update

	slog.Debug("enrich: fragment located",
		"chunk", chunk.ID, "exact", m.Exact,
		"matched_words", m.MatchedWords,
		"page", m.PageNumber, "section", report.Section)

	if !dryRun {
		if err := e.writer.ApplyUpdate(ctx, chunk.ID, update); err != nil {
			report.Reason = fmt.Sprintf("write failed: %v", err)
			return report
		}
	}

	report.OK = true
	return report
}

// updateFromMatch composes the metadata update from a found match,
// skipping every field that has no resolved value.
func updateFromMatch(m locate.Match) ChunkUpdate {
	var u ChunkUpdate
	if m.PageNumber > 0 {
		u.PageNumber = m.PageNumber
	}
	if m.Section != nil {
		u.HierarchicalSection = m.Section.Format()
		if m.Section.Main != nil {
			u.MainSectionName = m.Section.Main.Name
			u.MainSectionTitle = m.Section.Main.Title
		}
		if m.Section.Sub != nil {
			u.SubsectionName = m.Section.Sub.Name
			u.SubsectionTitle = m.Section.Sub.Title
		}
	}
	return u
}

// sampleChunks returns up to n chunks sampled without replacement.
func sampleChunks(chunks []Chunk, n int) []Chunk {
	if n >= len(chunks) {
		return chunks
	}
	if n <= 0 {
		return nil
	}
	idx := rand.Perm(len(chunks))
	selected := make([]Chunk, n)
	for i := 0; i < n; i++ {
		selected[i] = chunks[idx[i]]
	}
	return selected
}
