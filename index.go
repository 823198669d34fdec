package filingcite

import (
	"context"
	"errors"
	"fmt"

	"github.com/secrag/filingcite/store"
)

// chunkIndex adapts the SQLite store to the ChunkSource and
// MetadataWriter collaborator interfaces.
type chunkIndex struct {
	s *store.Store
}

func (i chunkIndex) FetchChunks(ctx context.Context, sourceFile string) ([]Chunk, error) {
	records, err := i.s.FetchChunks(ctx, sourceFile)
	if err != nil {
		return nil, err
	}
	chunks := make([]Chunk, len(records))
	for j, r := range records {
		chunks[j] = Chunk{
			ID:       r.ID,
			Text:     r.Content,
			Enriched: r.Enriched(),
		}
	}
	return chunks, nil
}

func (i chunkIndex) ApplyUpdate(ctx context.Context, chunkID string, update ChunkUpdate) error {
	err := i.s.ApplyUpdate(ctx, chunkID, store.MetadataUpdate{
		PageNumber:          update.PageNumber,
		HierarchicalSection: update.HierarchicalSection,
		MainSectionName:     update.MainSectionName,
		MainSectionTitle:    update.MainSectionTitle,
		SubsectionName:      update.SubsectionName,
		SubsectionTitle:     update.SubsectionTitle,
	})
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrChunkNotFound, chunkID)
	}
	return err
}
