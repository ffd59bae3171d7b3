package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// IntegrateResult is the outcome of the integrate phase.
type IntegrateResult struct {
	Activated   int
	Deactivated int
	Ready       bool

	// IntegrityValid flags an exact active-embedding to chunk count
	// match. Diagnostic only; it never gates readiness.
	IntegrityValid bool
}

// runIntegrate verifies the vector index for a file. Embeddings from
// older models are deactivated so only the current generation serves
// queries.
func (o *Orchestrator) runIntegrate(ctx context.Context, fileID string) (*IntegrateResult, error) {
	deactivated, err := o.embeddings.DeactivateEmbeddings(ctx, fileID, o.embedder.Model())
	if err != nil {
		return nil, fmt.Errorf("deactivating stale embeddings: %w", err)
	}

	active, err := o.embeddings.CountEmbeddingsByFile(ctx, fileID, true)
	if err != nil {
		return nil, fmt.Errorf("counting active embeddings: %w", err)
	}
	chunkCount, err := o.chunks.CountChunksByFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}

	res := &IntegrateResult{
		Activated:      active,
		Deactivated:    deactivated,
		Ready:          active > 0,
		IntegrityValid: active > 0 && active == chunkCount,
	}

	if !res.IntegrityValid {
		slog.Warn("vector index integrity mismatch",
			"file_id", fileID, "active_embeddings", active, "chunks", chunkCount)
	}
	return res, nil
}
