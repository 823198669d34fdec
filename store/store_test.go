//go:build cgo

package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath, 4) // dim=4 for test vectors
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleChunks(source string, n int) []Record {
	chunks := make([]Record, n)
	for i := range chunks {
		chunks[i] = Record{
			ID:         fmt.Sprintf("%s-chunk-%d", source, i),
			SourceFile: source,
			Content:    fmt.Sprintf("chunk %d body text from %s", i, source),
		}
	}
	return chunks
}

func seedChunks(t *testing.T, s *Store, source string, n int) []Record {
	t.Helper()
	chunks := sampleChunks(source, n)
	if err := s.InsertChunks(context.Background(), chunks); err != nil {
		t.Fatalf("seeding chunks: %v", err)
	}
	return chunks
}

// ---------------------------------------------------------------------------
// Schema / construction
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	s := newTestStore(t)
	if s.EmbeddingDim() != 4 {
		t.Fatalf("expected embedding dim 4, got %d", s.EmbeddingDim())
	}
	if s.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "dir", "test.db")
	s, err := New(dbPath, 4)
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

// ---------------------------------------------------------------------------
// Chunk CRUD
// ---------------------------------------------------------------------------

func TestInsertAndFetchChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedChunks(t, s, "nvidia_10k.pdf", 3)
	seedChunks(t, s, "amd_10k.pdf", 2)

	got, err := s.FetchChunks(ctx, "nvidia_10k.pdf")
	if err != nil {
		t.Fatalf("FetchChunks() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	// Insertion order is preserved.
	for i, r := range got {
		want := fmt.Sprintf("nvidia_10k.pdf-chunk-%d", i)
		if r.ID != want {
			t.Errorf("chunk %d: got ID %s, want %s", i, r.ID, want)
		}
		if r.Enriched() {
			t.Errorf("chunk %s: expected unenriched on insert", r.ID)
		}
	}
}

func TestGetChunk(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedChunks(t, s, "intel_10k.pdf", 2)

	r, err := s.GetChunk(ctx, "intel_10k.pdf-chunk-1")
	if err != nil {
		t.Fatalf("GetChunk() error: %v", err)
	}
	if r.SourceFile != "intel_10k.pdf" {
		t.Errorf("got source %s", r.SourceFile)
	}

	if _, err := s.GetChunk(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedChunks(t, s, "nvidia_10k.pdf", 1)
	id := "nvidia_10k.pdf-chunk-0"

	update := MetadataUpdate{
		PageNumber:          42,
		HierarchicalSection: "Part II > Item 7 (MD&A)",
		MainSectionName:     "Part II",
		MainSectionTitle:    "Part II",
		SubsectionName:      "Item 7",
		SubsectionTitle:     "MD&A",
	}
	if err := s.ApplyUpdate(ctx, id, update); err != nil {
		t.Fatalf("ApplyUpdate() error: %v", err)
	}

	r, err := s.GetChunk(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Enriched() {
		t.Error("expected chunk to read as enriched")
	}
	if r.PageNumber != 42 {
		t.Errorf("page = %d, want 42", r.PageNumber)
	}
	if r.HierarchicalSection != "Part II > Item 7 (MD&A)" {
		t.Errorf("hierarchical section = %q", r.HierarchicalSection)
	}
	if r.SubsectionTitle != "MD&A" {
		t.Errorf("subsection title = %q", r.SubsectionTitle)
	}
}

func TestApplyUpdateKeepsFTSInSync(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chunks := []Record{
		{ID: "c1", SourceFile: "nvidia_10k.pdf", Content: "Data center revenue grew on accelerator demand."},
	}
	if err := s.InsertChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}

	// Metadata writes fire the chunks UPDATE trigger; the FTS index must
	// survive it and still serve the chunk's content.
	if err := s.ApplyUpdate(ctx, "c1", MetadataUpdate{PageNumber: 9}); err != nil {
		t.Fatalf("ApplyUpdate() error: %v", err)
	}

	results, err := s.FTSSearch(ctx, "revenue", 10)
	if err != nil {
		t.Fatalf("FTSSearch() after update: %v", err)
	}
	if len(results) != 1 || results[0].ID != "c1" {
		t.Fatalf("results after update: %+v", results)
	}
	if results[0].PageNumber != 9 {
		t.Errorf("page = %d, want 9", results[0].PageNumber)
	}
}

func TestApplyUpdatePartialFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedChunks(t, s, "nvidia_10k.pdf", 1)
	id := "nvidia_10k.pdf-chunk-0"

	if err := s.ApplyUpdate(ctx, id, MetadataUpdate{PageNumber: 7}); err != nil {
		t.Fatalf("ApplyUpdate() error: %v", err)
	}
	r, err := s.GetChunk(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if r.PageNumber != 7 {
		t.Errorf("page = %d, want 7", r.PageNumber)
	}
	if r.MainSectionName != "" {
		t.Errorf("unset field written: main section = %q", r.MainSectionName)
	}
}

func TestApplyUpdateErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedChunks(t, s, "nvidia_10k.pdf", 1)

	if err := s.ApplyUpdate(ctx, "nvidia_10k.pdf-chunk-0", MetadataUpdate{}); err == nil {
		t.Error("expected error for empty update")
	}
	err := s.ApplyUpdate(ctx, "ghost", MetadataUpdate{PageNumber: 1})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown chunk, got %v", err)
	}
}

func TestListChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedChunks(t, s, "nvidia_10k.pdf", 4)
	seedChunks(t, s, "amd_10k.pdf", 2)
	if err := s.ApplyUpdate(ctx, "nvidia_10k.pdf-chunk-0", MetadataUpdate{PageNumber: 3}); err != nil {
		t.Fatal(err)
	}

	enriched := true
	unenriched := false
	tests := []struct {
		name string
		opts ListOptions
		want int
	}{
		{"all", ListOptions{}, 6},
		{"by source", ListOptions{SourceFile: "nvidia_10k.pdf"}, 4},
		{"enriched only", ListOptions{Enriched: &enriched}, 1},
		{"unenriched only", ListOptions{Enriched: &unenriched}, 5},
		{"unenriched for source", ListOptions{SourceFile: "nvidia_10k.pdf", Enriched: &unenriched}, 3},
		{"limit", ListOptions{Limit: 2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListChunks(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListChunks() error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d chunks, want %d", len(got), tt.want)
			}
		})
	}
}

func TestSampleChunk(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedChunks(t, s, "nvidia_10k.pdf", 3)

	r, err := s.SampleChunk(ctx, "nvidia_10k.pdf")
	if err != nil {
		t.Fatalf("SampleChunk() error: %v", err)
	}
	if r.SourceFile != "nvidia_10k.pdf" {
		t.Errorf("sample from wrong source: %s", r.SourceFile)
	}

	if _, err := s.SampleChunk(ctx, "empty_source.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty source, got %v", err)
	}
}

func TestClearSource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedChunks(t, s, "nvidia_10k.pdf", 3)
	seedChunks(t, s, "amd_10k.pdf", 2)

	n, err := s.ClearSource(ctx, "nvidia_10k.pdf")
	if err != nil {
		t.Fatalf("ClearSource() error: %v", err)
	}
	if n != 3 {
		t.Errorf("cleared %d chunks, want 3", n)
	}
	left, err := s.ListChunks(ctx, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 2 {
		t.Errorf("%d chunks left, want 2", len(left))
	}
}

func TestClearAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedChunks(t, s, "nvidia_10k.pdf", 2)
	seedChunks(t, s, "amd_10k.pdf", 2)

	n, err := s.ClearAll(ctx)
	if err != nil {
		t.Fatalf("ClearAll() error: %v", err)
	}
	if n != 4 {
		t.Errorf("cleared %d chunks, want 4", n)
	}
}

func TestEnrichmentStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedChunks(t, s, "amd_10k.pdf", 2)
	seedChunks(t, s, "nvidia_10k.pdf", 4)
	for _, id := range []string{"nvidia_10k.pdf-chunk-0", "nvidia_10k.pdf-chunk-2"} {
		if err := s.ApplyUpdate(ctx, id, MetadataUpdate{PageNumber: 5}); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := s.EnrichmentStats(ctx)
	if err != nil {
		t.Fatalf("EnrichmentStats() error: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(stats))
	}
	// Ordered by source file.
	amd, nvidia := stats[0], stats[1]
	if amd.SourceFile != "amd_10k.pdf" || amd.Total != 2 || amd.Enriched != 0 {
		t.Errorf("amd stats: %+v", amd)
	}
	if nvidia.Total != 4 || nvidia.Enriched != 2 || nvidia.NotEnriched() != 2 {
		t.Errorf("nvidia stats: %+v", nvidia)
	}
	if nvidia.Rate() != 50 {
		t.Errorf("nvidia rate = %v, want 50", nvidia.Rate())
	}
}

// ---------------------------------------------------------------------------
// Embeddings and search
// ---------------------------------------------------------------------------

func TestInsertEmbeddingAndVectorSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedChunks(t, s, "nvidia_10k.pdf", 3)

	vectors := map[string][]float32{
		"nvidia_10k.pdf-chunk-0": {1, 0, 0, 0},
		"nvidia_10k.pdf-chunk-1": {0, 1, 0, 0},
		"nvidia_10k.pdf-chunk-2": {0.9, 0.1, 0, 0},
	}
	for id, v := range vectors {
		if err := s.InsertEmbedding(ctx, id, v); err != nil {
			t.Fatalf("InsertEmbedding(%s): %v", id, err)
		}
	}

	results, err := s.VectorSearch(ctx, []float32{1, 0, 0, 0}, 2, "")
	if err != nil {
		t.Fatalf("VectorSearch() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "nvidia_10k.pdf-chunk-0" {
		t.Errorf("nearest = %s, want chunk-0", results[0].ID)
	}
	if results[0].Score < results[1].Score {
		t.Error("results not ordered by score")
	}
}

func TestInsertEmbeddingUnknownChunk(t *testing.T) {
	s := newTestStore(t)
	err := s.InsertEmbedding(context.Background(), "ghost", []float32{1, 0, 0, 0})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFTSSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chunks := []Record{
		{ID: "c1", SourceFile: "nvidia_10k.pdf", Content: "Data center revenue grew on accelerator demand."},
		{ID: "c2", SourceFile: "nvidia_10k.pdf", Content: "Gaming segment declined year over year."},
	}
	if err := s.InsertChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}

	results, err := s.FTSSearch(ctx, "revenue", 10)
	if err != nil {
		t.Fatalf("FTSSearch() error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != "c1" {
		t.Errorf("got %s, want c1", results[0].ID)
	}
	if results[0].Score <= 0 {
		t.Errorf("expected positive score, got %v", results[0].Score)
	}
}
