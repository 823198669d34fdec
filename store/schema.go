package store

import "fmt"

// schemaSQL returns the DDL for the chunk index. embeddingDim controls
// the vec0 virtual table dimension.
//
// Citation metadata lives in fixed-shape nullable columns rather than an
// open metadata map: the writable fields are statically enumerated, and
// a NULL page_number is the "not yet enriched" marker the candidate
// filter keys on.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- Indexed chunks with citation enrichment columns
CREATE TABLE IF NOT EXISTS chunks (
    id TEXT PRIMARY KEY,
    source_file TEXT NOT NULL,
    content TEXT NOT NULL,
    page_number INTEGER,
    hierarchical_section TEXT,
    main_section_name TEXT,
    main_section_title TEXT,
    subsection_name TEXT,
    subsection_title TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Vector embeddings via sqlite-vec, keyed by the chunks rowid
CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    chunk_rowid INTEGER PRIMARY KEY,
    embedding float[%d]
);

-- Full-text search via FTS5
CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
    content,
    content='chunks',
    content_rowid='rowid',
    tokenize='porter unicode61'
);

-- FTS triggers to keep the index in sync
CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
    INSERT INTO chunks_fts(rowid, content) VALUES (new.rowid, new.content);
END;
CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
    INSERT INTO chunks_fts(chunks_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
END;
CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
    INSERT INTO chunks_fts(chunks_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
    INSERT INTO chunks_fts(rowid, content) VALUES (new.rowid, new.content);
END;

-- Indexes
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_file);
CREATE INDEX IF NOT EXISTS idx_chunks_page ON chunks(source_file, page_number);
`, embeddingDim)
}
