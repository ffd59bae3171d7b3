package pipeline

import (
	"context"
	"fmt"

	"github.com/ixberis/doxai-indexer/internal/models"
	"github.com/ixberis/doxai-indexer/internal/provider"
)

// IndexRange selects chunks by inclusive chunk_index bounds.
type IndexRange struct {
	Start int
	End   int
}

// ChunkSelector narrows the embed phase to a subset of the file's
// chunks. ChunkIDs wins over IndexRange; with neither set, all chunks
// of the file are selected.
type ChunkSelector struct {
	ChunkIDs   []string
	IndexRange *IndexRange
}

// EmbedResult is the outcome of the embed phase. TotalChunks always
// counts the file's full chunk population, regardless of selector.
type EmbedResult struct {
	TotalChunks int
	Embedded    int
	Skipped     int
}

// runEmbed computes vectors for the selected chunks that do not yet
// have an active embedding under the current model. The provider is
// called once for the whole batch; any failure aborts the phase with
// nothing persisted.
func (o *Orchestrator) runEmbed(ctx context.Context, fileID string, selector ChunkSelector) (*EmbedResult, error) {
	model := o.embedder.Model()
	dimension := o.embedder.Dimension()
	if err := provider.ValidateDimension(model, dimension); err != nil {
		return nil, err
	}

	all, err := o.chunks.ListChunksByFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no chunks to embed for file %s", fileID)
	}

	selected, err := selectChunks(all, selector)
	if err != nil {
		return nil, err
	}

	existing, err := o.embeddings.ListEmbeddedIndexes(ctx, fileID, model)
	if err != nil {
		return nil, fmt.Errorf("listing embedded indexes: %w", err)
	}
	done := make(map[int]bool, len(existing))
	for _, idx := range existing {
		done[idx] = true
	}

	var pending []models.Chunk
	for _, c := range selected {
		if !done[c.ChunkIndex] {
			pending = append(pending, c)
		}
	}

	result := &EmbedResult{TotalChunks: len(all)}
	if len(pending) == 0 {
		result.Skipped = result.TotalChunks
		return result, nil
	}

	texts := make([]string, len(pending))
	for i, c := range pending {
		texts[i] = c.Text
	}
	vectors, err := o.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %d chunks: %w", len(pending), err)
	}
	if len(vectors) != len(pending) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(pending))
	}

	inputs := make([]models.EmbeddingInput, len(pending))
	for i, c := range pending {
		if len(vectors[i]) != dimension {
			return nil, fmt.Errorf("chunk %d: vector dimension %d, want %d", c.ChunkIndex, len(vectors[i]), dimension)
		}
		inputs[i] = models.EmbeddingInput{
			FileID:     fileID,
			Chunk:      c.ID,
			ChunkIndex: c.ChunkIndex,
			Vector:     vectors[i],
			Model:      model,
			IsActive:   true,
		}
	}

	if _, err := o.embeddings.InsertEmbeddings(ctx, inputs); err != nil {
		return nil, fmt.Errorf("persisting embeddings: %w", err)
	}

	result.Embedded = len(inputs)
	result.Skipped = result.TotalChunks - result.Embedded
	return result, nil
}

// selectChunks resolves a selector against the file's chunk set.
func selectChunks(all []models.Chunk, selector ChunkSelector) ([]models.Chunk, error) {
	switch {
	case len(selector.ChunkIDs) > 0:
		want := make(map[string]bool, len(selector.ChunkIDs))
		for _, id := range selector.ChunkIDs {
			want[id] = true
		}
		var out []models.Chunk
		for _, c := range all {
			id, err := models.RecordIDString(c.ID)
			if err != nil {
				return nil, err
			}
			if want[id] {
				out = append(out, c)
			}
		}
		return out, nil

	case selector.IndexRange != nil:
		r := selector.IndexRange
		if r.Start > r.End {
			return nil, fmt.Errorf("invalid index range [%d, %d]", r.Start, r.End)
		}
		var out []models.Chunk
		for _, c := range all {
			if c.ChunkIndex >= r.Start && c.ChunkIndex <= r.End {
				out = append(out, c)
			}
		}
		return out, nil

	default:
		return all, nil
	}
}
