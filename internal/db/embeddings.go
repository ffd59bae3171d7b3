package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/ixberis/doxai-indexer/internal/models"
)

// InsertEmbeddings persists a batch of freshly computed vectors. The
// unique (file_id, chunk_index, model) index rejects rows that already
// exist; callers skip existing keys before inserting.
func (c *Client) InsertEmbeddings(ctx context.Context, inputs []models.EmbeddingInput) ([]models.Embedding, error) {
	if len(inputs) == 0 {
		return []models.Embedding{}, nil
	}

	rows := make([]map[string]any, len(inputs))
	for i, in := range inputs {
		rows[i] = map[string]any{
			"file_id":     in.FileID,
			"chunk":       in.Chunk,
			"chunk_index": in.ChunkIndex,
			"vector":      in.Vector,
			"model":       in.Model,
			"is_active":   in.IsActive,
		}
	}

	results, err := surrealdb.Query[[]models.Embedding](ctx, c.db, `
		INSERT INTO embedding $rows
	`, map[string]any{"rows": rows})
	if err != nil {
		return nil, fmt.Errorf("insert embeddings: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Embedding{}, nil
	}
	return (*results)[0].Result, nil
}

// ListEmbeddedIndexes returns the chunk indexes that already carry an
// active embedding for the given file and model. The embed phase uses
// this to skip work already done.
func (c *Client) ListEmbeddedIndexes(ctx context.Context, fileID, model string) ([]int, error) {
	results, err := surrealdb.Query[[]struct {
		ChunkIndex int `json:"chunk_index"`
	}](ctx, c.db, `
		SELECT chunk_index FROM embedding
		WHERE file_id = $file_id AND model = $model AND is_active = true
		ORDER BY chunk_index ASC
	`, map[string]any{
		"file_id": fileID,
		"model":   model,
	})
	if err != nil {
		return nil, fmt.Errorf("list embedded indexes: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []int{}, nil
	}

	rows := (*results)[0].Result
	indexes := make([]int, len(rows))
	for i, r := range rows {
		indexes[i] = r.ChunkIndex
	}
	return indexes, nil
}

// CountEmbeddingsByFile counts a file's embeddings. With onlyActive
// set, logically deleted rows are excluded.
func (c *Client) CountEmbeddingsByFile(ctx context.Context, fileID string, onlyActive bool) (int, error) {
	sql := `SELECT count() AS count FROM embedding WHERE file_id = $file_id GROUP ALL`
	if onlyActive {
		sql = `SELECT count() AS count FROM embedding WHERE file_id = $file_id AND is_active = true GROUP ALL`
	}

	results, err := surrealdb.Query[[]struct {
		Count int `json:"count"`
	}](ctx, c.db, sql, map[string]any{"file_id": fileID})
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}

// DeactivateEmbeddings logically deletes a file's embeddings for every
// model except keepModel. Rows stay in place with is_active=false;
// nothing is physically removed. Returns the number of rows flipped.
func (c *Client) DeactivateEmbeddings(ctx context.Context, fileID, keepModel string) (int, error) {
	results, err := surrealdb.Query[[]models.Embedding](ctx, c.db, `
		UPDATE embedding SET is_active = false
		WHERE file_id = $file_id AND model != $keep_model AND is_active = true
		RETURN AFTER
	`, map[string]any{
		"file_id":    fileID,
		"keep_model": keepModel,
	})
	if err != nil {
		return 0, fmt.Errorf("deactivate embeddings: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}
