package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Chunk is one contiguous slice of a file's converted text. The set of
// chunks for a file is always replaced wholesale; chunk_index is dense
// starting at 0.
type Chunk struct {
	ID surrealmodels.RecordID `json:"id"`

	FileID     string `json:"file_id"`
	ChunkIndex int    `json:"chunk_index"`

	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`

	// Page span, when known from OCR output.
	PageStart *int `json:"page_start,omitempty"`
	PageEnd   *int `json:"page_end,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ChunkInput is the input structure for creating chunks.
type ChunkInput struct {
	FileID     string         `json:"file_id"`
	ChunkIndex int            `json:"chunk_index"`
	Text       string         `json:"text"`
	TokenCount int            `json:"token_count"`
	PageStart  *int           `json:"page_start,omitempty"`
	PageEnd    *int           `json:"page_end,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ChunkingParams defines the sliding-window chunker settings.
type ChunkingParams struct {
	// MaxTokens is the window size in whitespace tokens.
	MaxTokens int

	// Overlap is the number of tokens shared by adjacent windows.
	// Must be smaller than MaxTokens or the stride clamps to 1.
	Overlap int
}

// DefaultChunkingParams returns the default chunker settings.
func DefaultChunkingParams() ChunkingParams {
	return ChunkingParams{
		MaxTokens: 400,
		Overlap:   60,
	}
}
