// Package store is the SQLite-backed chunk index: previously split and
// embedded document chunks, their vector embeddings (sqlite-vec), a
// full-text index (FTS5), and the citation metadata columns the
// enrichment run writes back.
//
// The schema creates an FTS5 virtual table, so binaries (and tests)
// must be built with the sqlite_fts5 tag:
//
//	go build -tags sqlite_fts5 ./...
//
// Without it New fails with "no such module: fts5".
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// ErrNotFound is returned when a chunk ID does not exist.
var ErrNotFound = errors.New("store: chunk not found")

// Record is a row in the chunks table. A zero PageNumber means the chunk
// has not been enriched yet (the column is NULL in the database).
type Record struct {
	ID                  string `json:"id"`
	SourceFile          string `json:"source_file"`
	Content             string `json:"content"`
	PageNumber          int    `json:"page_number,omitempty"`
	HierarchicalSection string `json:"hierarchical_section,omitempty"`
	MainSectionName     string `json:"main_section_name,omitempty"`
	MainSectionTitle    string `json:"main_section_title,omitempty"`
	SubsectionName      string `json:"subsection_name,omitempty"`
	SubsectionTitle     string `json:"subsection_title,omitempty"`
	CreatedAt           string `json:"created_at,omitempty"`
}

// Enriched reports whether citation metadata has been written for the chunk.
func (r Record) Enriched() bool { return r.PageNumber > 0 }

// MetadataUpdate is the fixed-shape set of citation fields an enrichment
// run may write. Zero-valued fields are absent and left untouched; no
// field is ever written with a placeholder that would read as a resolved
// value.
type MetadataUpdate struct {
	PageNumber          int    `json:"page_number,omitempty"`
	HierarchicalSection string `json:"hierarchical_section,omitempty"`
	MainSectionName     string `json:"main_section_name,omitempty"`
	MainSectionTitle    string `json:"main_section_title,omitempty"`
	SubsectionName      string `json:"subsection_name,omitempty"`
	SubsectionTitle     string `json:"subsection_title,omitempty"`
}

// IsZero reports whether the update carries no fields at all.
func (u MetadataUpdate) IsZero() bool {
	return u == MetadataUpdate{}
}

// SourceStats summarizes enrichment progress for one source file.
type SourceStats struct {
	SourceFile string `json:"source_file"`
	Total      int    `json:"total"`
	Enriched   int    `json:"enriched"`
}

// NotEnriched returns the number of chunks still lacking citation metadata.
func (s SourceStats) NotEnriched() int { return s.Total - s.Enriched }

// Rate returns the enrichment rate as a percentage.
func (s SourceStats) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Enriched) / float64(s.Total) * 100
}

// ListOptions filters ListChunks.
type ListOptions struct {
	SourceFile string // restrict to one source file
	Enriched   *bool  // nil = all, true = enriched only, false = unenriched only
	Limit      int    // 0 = no limit
}

// SearchResult holds a chunk with its retrieval score.
type SearchResult struct {
	Record
	Score float64 `json:"score"`
}

// Store wraps the SQLite database holding the chunk index.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including the sqlite-vec and FTS5 virtual tables.
func New(dbPath string, embeddingDim int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db, embeddingDim: embeddingDim}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

const recordColumns = `id, source_file, content,
	page_number, hierarchical_section,
	main_section_name, main_section_title,
	subsection_name, subsection_title, created_at`

// --- Chunk operations ---

// InsertChunks inserts chunk records in a single transaction. Citation
// columns are written only when set; NULL otherwise.
func (s *Store) InsertChunks(ctx context.Context, records []Record) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, source_file, content,
				page_number, hierarchical_section,
				main_section_name, main_section_title,
				subsection_name, subsection_title)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			_, err := stmt.ExecContext(ctx,
				r.ID, r.SourceFile, r.Content,
				nullInt(r.PageNumber), nullString(r.HierarchicalSection),
				nullString(r.MainSectionName), nullString(r.MainSectionTitle),
				nullString(r.SubsectionName), nullString(r.SubsectionTitle))
			if err != nil {
				return fmt.Errorf("inserting chunk %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

// FetchChunks returns all chunks for a source file in insertion order.
func (s *Store) FetchChunks(ctx context.Context, sourceFile string) ([]Record, error) {
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+`
		FROM chunks WHERE source_file = ? ORDER BY rowid
	`, sourceFile)
}

// GetChunk returns a single chunk by ID.
func (s *Store) GetChunk(ctx context.Context, id string) (*Record, error) {
	records, err := s.queryRecords(ctx, `
		SELECT `+recordColumns+`
		FROM chunks WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

// ListChunks returns chunks matching the given filters, newest first.
func (s *Store) ListChunks(ctx context.Context, opts ListOptions) ([]Record, error) {
	var where []string
	var args []any

	if opts.SourceFile != "" {
		where = append(where, "source_file = ?")
		args = append(args, opts.SourceFile)
	}
	if opts.Enriched != nil {
		if *opts.Enriched {
			where = append(where, "page_number IS NOT NULL")
		} else {
			where = append(where, "page_number IS NULL")
		}
	}

	q := `SELECT ` + recordColumns + ` FROM chunks`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY rowid DESC"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	return s.queryRecords(ctx, q, args...)
}

// SampleChunk returns one random chunk, optionally restricted to a
// source file. Returns ErrNotFound when the selection is empty.
func (s *Store) SampleChunk(ctx context.Context, sourceFile string) (*Record, error) {
	q := `SELECT ` + recordColumns + ` FROM chunks`
	var args []any
	if sourceFile != "" {
		q += " WHERE source_file = ?"
		args = append(args, sourceFile)
	}
	q += " ORDER BY RANDOM() LIMIT 1"

	records, err := s.queryRecords(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

// ApplyUpdate writes citation metadata for a chunk in a single UPDATE:
// all set fields land together or the chunk is untouched. An empty
// update or an unknown ID is an error.
func (s *Store) ApplyUpdate(ctx context.Context, chunkID string, update MetadataUpdate) error {
	if update.IsZero() {
		return fmt.Errorf("empty update for chunk %s", chunkID)
	}

	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if update.PageNumber > 0 {
		set("page_number", update.PageNumber)
	}
	if update.HierarchicalSection != "" {
		set("hierarchical_section", update.HierarchicalSection)
	}
	if update.MainSectionName != "" {
		set("main_section_name", update.MainSectionName)
	}
	if update.MainSectionTitle != "" {
		set("main_section_title", update.MainSectionTitle)
	}
	if update.SubsectionName != "" {
		set("subsection_name", update.SubsectionName)
	}
	if update.SubsectionTitle != "" {
		set("subsection_title", update.SubsectionTitle)
	}

	args = append(args, chunkID)
	res, err := s.db.ExecContext(ctx,
		"UPDATE chunks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("updating chunk %s: %w", chunkID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, chunkID)
	}
	return nil
}

// ClearSource deletes all chunks for a source file. Returns the count.
func (s *Store) ClearSource(ctx context.Context, sourceFile string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE source_file = ?", sourceFile)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearAll deletes every chunk. Returns the count.
func (s *Store) ClearAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM chunks")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// EnrichmentStats returns per-source enrichment progress.
func (s *Store) EnrichmentStats(ctx context.Context) ([]SourceStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_file, COUNT(*),
			SUM(CASE WHEN page_number IS NOT NULL THEN 1 ELSE 0 END)
		FROM chunks GROUP BY source_file ORDER BY source_file
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []SourceStats
	for rows.Next() {
		var st SourceStats
		if err := rows.Scan(&st.SourceFile, &st.Total, &st.Enriched); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// --- Embedding and search operations ---

// InsertEmbedding stores a vector embedding for a chunk.
func (s *Store) InsertEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	var rowid int64
	err := s.db.QueryRowContext(ctx,
		"SELECT rowid FROM chunks WHERE id = ?", chunkID).Scan(&rowid)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, chunkID)
	}
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_chunks (chunk_rowid, embedding) VALUES (?, ?)",
		rowid, serializeFloat32(embedding))
	return err
}

// VectorSearch performs a KNN search returning the top-k nearest chunks.
// A non-empty sourceFile restricts results to that source.
func (s *Store) VectorSearch(ctx context.Context, queryEmbedding []float32, k int, sourceFile string) ([]SearchResult, error) {
	q := `
		SELECT v.distance, ` + prefixColumns("c") + `
		FROM vec_chunks v
		JOIN chunks c ON c.rowid = v.chunk_rowid
		WHERE v.embedding MATCH ? AND k = ?`
	args := []any{serializeFloat32(queryEmbedding), k}
	if sourceFile != "" {
		q += " AND c.source_file = ?"
		args = append(args, sourceFile)
	}
	q += " ORDER BY v.distance"

	return s.querySearch(ctx, q, args, func(distance float64) float64 {
		// Convert distance to similarity score (1 - distance for cosine).
		return 1.0 - distance
	})
}

// FTSSearch performs a full-text search using FTS5 BM25 ranking.
func (s *Store) FTSSearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	q := `
		SELECT f.rank, ` + prefixColumns("c") + `
		FROM chunks_fts f
		JOIN chunks c ON c.rowid = f.rowid
		WHERE chunks_fts MATCH ?
		ORDER BY f.rank
		LIMIT ?`
	return s.querySearch(ctx, q, []any{query, limit}, func(rank float64) float64 {
		// FTS5 rank is negative (lower = better), convert to positive score.
		return -rank
	})
}

// --- helpers ---

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) querySearch(ctx context.Context, query string, args []any, score func(float64) float64) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var raw float64
		r, err := scanRecordAfter(rows, &raw)
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{Record: r, Score: score(raw)})
	}
	return results, rows.Err()
}

func scanRecord(rows *sql.Rows) (Record, error) {
	return scanRecordAfter(rows)
}

// scanRecordAfter scans optional leading columns into extra, then the
// standard record columns.
func scanRecordAfter(rows *sql.Rows, extra ...any) (Record, error) {
	var r Record
	var page sql.NullInt64
	var hier, mainName, mainTitle, subName, subTitle, created sql.NullString

	dest := append(extra,
		&r.ID, &r.SourceFile, &r.Content,
		&page, &hier, &mainName, &mainTitle, &subName, &subTitle, &created)
	if err := rows.Scan(dest...); err != nil {
		return Record{}, err
	}

	r.PageNumber = int(page.Int64)
	r.HierarchicalSection = hier.String
	r.MainSectionName = mainName.String
	r.MainSectionTitle = mainTitle.String
	r.SubsectionName = subName.String
	r.SubsectionTitle = subTitle.String
	r.CreatedAt = created.String
	return r, nil
}

func prefixColumns(alias string) string {
	cols := strings.Split(recordColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
