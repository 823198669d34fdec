package filingcite

import "errors"

var (
	// ErrUnknownCompany is returned for company names outside the corpus.
	ErrUnknownCompany = errors.New("filingcite: unknown company")

	// ErrChunkNotFound is returned when a chunk ID does not exist in the store.
	ErrChunkNotFound = errors.New("filingcite: chunk not found")

	// ErrMissingText is reported for chunks that carry no text.
	ErrMissingText = errors.New("filingcite: chunk has no text")

	// ErrEmptyFragment is reported when no search fragment could be
	// extracted from a chunk's text.
	ErrEmptyFragment = errors.New("filingcite: no fragment extracted")

	// ErrNotLocated is reported when a fragment cannot be found in the
	// source document, even after prefix fallback.
	ErrNotLocated = errors.New("filingcite: fragment not located")

	// ErrNothingToUpdate is reported when a located fragment resolves to
	// no writable metadata fields.
	ErrNothingToUpdate = errors.New("filingcite: no metadata to update")

	// ErrSourceUnavailable is returned when the source document or its
	// section table cannot be read. Fatal for the whole run on that document.
	ErrSourceUnavailable = errors.New("filingcite: source document unavailable")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("filingcite: invalid configuration")
)
