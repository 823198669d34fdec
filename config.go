package filingcite

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the filingcite enricher.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.filingcite/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "filingcite".
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath is
	// not explicitly set. Options: "home" (default) uses ~/.filingcite/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// DocumentsDir is the directory holding the source 10-K PDF files.
	DocumentsDir string `json:"documents_dir" yaml:"documents_dir"`

	// SectionsDir is the directory holding <source>_sections.json
	// hierarchy tables produced by the offline section-extraction step.
	SectionsDir string `json:"sections_dir" yaml:"sections_dir"`

	// BatchSize is the number of chunks per batch when processing all
	// candidates. Batching is for progress reporting and failure
	// isolation only.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// EmbeddingDim is the vector dimension of the chunk index
	// (must match the embedding model used at ingestion time).
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`
}

// DefaultConfig returns a Config with the defaults used by the batch
// scripts: PDFs in documents_pending/, section tables in nosql/.
func DefaultConfig() Config {
	return Config{
		DBName:       "filingcite",
		StorageDir:   "home",
		DocumentsDir: "documents_pending",
		SectionsDir:  "nosql",
		BatchSize:    45,
		EmbeddingDim: 768,
	}
}

// LoadConfig reads a YAML config file and applies it over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "filingcite"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".filingcite", name+".db")
	}
}
