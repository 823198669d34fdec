package sections

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// tableFile is the on-disk shape of a section table: an object wrapping
// the record list, as written by the offline extraction step.
type tableFile struct {
	Sections []Record `json:"sections"`
}

// ParseJSON decodes a section table from its JSON representation.
func ParseJSON(data []byte) (*Table, error) {
	var f tableFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing section table: %w", err)
	}
	return NewTable(f.Sections), nil
}

// LoadFile reads and parses a section table file.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading section table: %w", err)
	}
	return ParseJSON(data)
}

// DirLoader resolves section tables from a directory of
// <source>_sections.json files. A missing file is a valid "no hierarchy
// available" result (empty table); an unreadable or malformed file is an
// error.
type DirLoader struct {
	Dir string
}

// FileFor returns the section table path for a source document,
// e.g. nvidia_10k.pdf -> <dir>/nvidia_10k_sections.json.
func (l *DirLoader) FileFor(sourceFile string) string {
	base := filepath.Base(sourceFile)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(l.Dir, base+"_sections.json")
}

// LoadSections loads the section table for a source document.
func (l *DirLoader) LoadSections(sourceFile string) (*Table, error) {
	path := l.FileFor(sourceFile)
	t, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("sections: no table for source", "source", sourceFile, "path", path)
		return NewTable(nil), nil
	}
	if err != nil {
		return nil, err
	}
	slog.Debug("sections: table loaded", "source", sourceFile, "records", t.Len())
	return t, nil
}
