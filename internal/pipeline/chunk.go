package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ixberis/doxai-indexer/internal/models"
)

// ChunkResult is the outcome of the chunk phase.
type ChunkResult struct {
	TotalChunks int
	ChunkIDs    []string
}

// runChunk splits the converted text into overlapping windows and
// replaces the file's chunk set wholesale. Chunking is never additive.
func (o *Orchestrator) runChunk(ctx context.Context, fileID, textURI string, params models.ChunkingParams) (*ChunkResult, error) {
	raw, err := o.store.Read(ctx, textURI)
	if err != nil {
		return nil, fmt.Errorf("reading converted text %s: %w", textURI, err)
	}

	inputs, err := splitIntoChunks(fileID, string(raw), params)
	if err != nil {
		return nil, err
	}

	chunks, err := o.chunks.ReplaceChunks(ctx, fileID, inputs)
	if err != nil {
		return nil, fmt.Errorf("replacing chunks: %w", err)
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = models.MustRecordIDString(c.ID)
	}
	return &ChunkResult{TotalChunks: len(chunks), ChunkIDs: ids}, nil
}

// splitIntoChunks tokenizes by whitespace and windows the token stream.
// Window size is MaxTokens; stride is max(1, MaxTokens-Overlap).
func splitIntoChunks(fileID, text string, params models.ChunkingParams) ([]models.ChunkInput, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no text to chunk for file %s", fileID)
	}

	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = models.DefaultChunkingParams().MaxTokens
	}
	stride := maxTokens - params.Overlap
	if stride < 1 {
		stride = 1
	}

	var inputs []models.ChunkInput
	for start, idx := 0, 0; start < len(tokens); start, idx = start+stride, idx+1 {
		end := start + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		window := tokens[start:end]
		inputs = append(inputs, models.ChunkInput{
			FileID:     fileID,
			ChunkIndex: idx,
			Text:       strings.Join(window, " "),
			TokenCount: len(window),
		})
		if end == len(tokens) {
			break
		}
	}
	return inputs, nil
}
