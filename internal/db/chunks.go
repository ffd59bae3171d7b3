package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/ixberis/doxai-indexer/internal/models"
)

// ReplaceChunks atomically swaps a file's chunk set: all existing rows
// for the file are deleted and the new set inserted in one
// transaction. Re-running with the same input converges on the same
// rows, which keeps the chunk phase idempotent.
func (c *Client) ReplaceChunks(ctx context.Context, fileID string, inputs []models.ChunkInput) ([]models.Chunk, error) {
	chunks := make([]map[string]any, len(inputs))
	for i, in := range inputs {
		chunks[i] = map[string]any{
			"file_id":     in.FileID,
			"chunk_index": in.ChunkIndex,
			"text":        in.Text,
			"token_count": in.TokenCount,
			"page_start":  in.PageStart,
			"page_end":    in.PageEnd,
			"metadata":    in.Metadata,
		}
	}

	results, err := surrealdb.Query[[]models.Chunk](ctx, c.db, `
		BEGIN;
		DELETE chunk WHERE file_id = $file_id;
		INSERT INTO chunk $chunks;
		COMMIT;
	`, map[string]any{
		"file_id": fileID,
		"chunks":  chunks,
	})
	if err != nil {
		return nil, fmt.Errorf("replace chunks: %w", wrapQueryError(err))
	}

	// Statement 0 is the delete, statement 1 the insert.
	if results == nil || len(*results) < 2 {
		return nil, fmt.Errorf("replace chunks: unexpected result shape")
	}
	return (*results)[1].Result, nil
}

// ListChunksByFile returns a file's chunks ordered by chunk index.
func (c *Client) ListChunksByFile(ctx context.Context, fileID string) ([]models.Chunk, error) {
	results, err := surrealdb.Query[[]models.Chunk](ctx, c.db, `
		SELECT * FROM chunk WHERE file_id = $file_id ORDER BY chunk_index ASC
	`, map[string]any{"file_id": fileID})
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Chunk{}, nil
	}
	return (*results)[0].Result, nil
}

// GetChunksByIDs resolves specific chunk records, preserving index
// order. Unknown IDs are silently absent from the result.
func (c *Client) GetChunksByIDs(ctx context.Context, ids []string) ([]models.Chunk, error) {
	if len(ids) == 0 {
		return []models.Chunk{}, nil
	}

	recordIDs := make([]string, len(ids))
	for i, id := range ids {
		recordIDs[i] = "chunk:" + id
	}

	results, err := surrealdb.Query[[]models.Chunk](ctx, c.db, `
		SELECT * FROM chunk WHERE id IN $ids ORDER BY chunk_index ASC
	`, map[string]any{"ids": recordIDs})
	if err != nil {
		return nil, fmt.Errorf("get chunks by ids: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Chunk{}, nil
	}
	return (*results)[0].Result, nil
}

// CountChunksByFile returns the number of chunk rows for a file.
func (c *Client) CountChunksByFile(ctx context.Context, fileID string) (int, error) {
	results, err := surrealdb.Query[[]struct {
		Count int `json:"count"`
	}](ctx, c.db, `
		SELECT count() AS count FROM chunk WHERE file_id = $file_id GROUP ALL
	`, map[string]any{"file_id": fileID})
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}
