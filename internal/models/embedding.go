package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Embedding is a vector computed for one chunk by one model. Rows are
// never physically deleted; is_active=false marks logical deletion.
// The tuple (file_id, chunk_index, model) is unique while active.
type Embedding struct {
	ID surrealmodels.RecordID `json:"id"`

	FileID     string                 `json:"file_id"`
	Chunk      surrealmodels.RecordID `json:"chunk"`
	ChunkIndex int                    `json:"chunk_index"`

	Vector []float32 `json:"vector"`
	Model  string    `json:"model"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// EmbeddingInput is the input structure for inserting embeddings.
type EmbeddingInput struct {
	FileID     string                 `json:"file_id"`
	Chunk      surrealmodels.RecordID `json:"chunk"`
	ChunkIndex int                    `json:"chunk_index"`
	Vector     []float32              `json:"vector"`
	Model      string                 `json:"model"`
	IsActive   bool                   `json:"is_active"`
}
