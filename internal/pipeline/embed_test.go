package pipeline

import (
	"context"
	"fmt"
	"testing"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/ixberis/doxai-indexer/internal/models"
)

func chunkFixture(n int) []models.Chunk {
	out := make([]models.Chunk, n)
	for i := range out {
		out[i] = models.Chunk{
			ID:         surrealmodels.NewRecordID("chunk", fmt.Sprintf("c-%d", i)),
			FileID:     "file-1",
			ChunkIndex: i,
			Text:       fmt.Sprintf("chunk %d", i),
		}
	}
	return out
}

func TestSelectChunksAll(t *testing.T) {
	all := chunkFixture(4)
	got, err := selectChunks(all, ChunkSelector{})
	if err != nil {
		t.Fatalf("selectChunks: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("selected %d, want all 4", len(got))
	}
}

func TestSelectChunksByID(t *testing.T) {
	all := chunkFixture(4)
	got, err := selectChunks(all, ChunkSelector{ChunkIDs: []string{"c-1", "c-3", "c-99"}})
	if err != nil {
		t.Fatalf("selectChunks: %v", err)
	}
	if len(got) != 2 || got[0].ChunkIndex != 1 || got[1].ChunkIndex != 3 {
		t.Fatalf("selected %+v, want chunks 1 and 3", got)
	}
}

func TestSelectChunksByRange(t *testing.T) {
	all := chunkFixture(10)
	got, err := selectChunks(all, ChunkSelector{IndexRange: &IndexRange{Start: 0, End: 4}})
	if err != nil {
		t.Fatalf("selectChunks: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("selected %d, want inclusive range of 5", len(got))
	}
}

func TestSelectChunksInvalidRange(t *testing.T) {
	if _, err := selectChunks(chunkFixture(3), ChunkSelector{IndexRange: &IndexRange{Start: 5, End: 1}}); err == nil {
		t.Fatal("inverted range must error")
	}
}

func TestRunEmbedSkipsExistingKeys(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.backend.ReplaceChunks(ctx, "file-1", []models.ChunkInput{
		{FileID: "file-1", ChunkIndex: 0, Text: "alpha"},
		{FileID: "file-1", ChunkIndex: 1, Text: "beta"},
		{FileID: "file-1", ChunkIndex: 2, Text: "gamma"},
	}); err != nil {
		t.Fatalf("seed chunks: %v", err)
	}

	first, err := h.orch.runEmbed(ctx, "file-1", ChunkSelector{})
	if err != nil {
		t.Fatalf("first runEmbed: %v", err)
	}
	if first.Embedded != 3 || first.Skipped != 0 {
		t.Fatalf("first: embedded/skipped = %d/%d, want 3/0", first.Embedded, first.Skipped)
	}

	second, err := h.orch.runEmbed(ctx, "file-1", ChunkSelector{})
	if err != nil {
		t.Fatalf("second runEmbed: %v", err)
	}
	if second.Embedded != 0 || second.Skipped != 3 {
		t.Fatalf("second: embedded/skipped = %d/%d, want 0/3", second.Embedded, second.Skipped)
	}
	if second.TotalChunks != 3 {
		t.Fatalf("total chunks = %d, want 3", second.TotalChunks)
	}
	if h.embedder.calls != 1 {
		t.Fatalf("provider called %d times, want 1", h.embedder.calls)
	}
}

func TestRunEmbedTotalIgnoresSelector(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	inputs := make([]models.ChunkInput, 10)
	for i := range inputs {
		inputs[i] = models.ChunkInput{FileID: "file-1", ChunkIndex: i, Text: fmt.Sprintf("t%d", i)}
	}
	if _, err := h.backend.ReplaceChunks(ctx, "file-1", inputs); err != nil {
		t.Fatalf("seed chunks: %v", err)
	}

	res, err := h.orch.runEmbed(ctx, "file-1", ChunkSelector{IndexRange: &IndexRange{Start: 0, End: 4}})
	if err != nil {
		t.Fatalf("runEmbed: %v", err)
	}
	if res.TotalChunks != 10 || res.Embedded != 5 || res.Skipped != 5 {
		t.Fatalf("total/embedded/skipped = %d/%d/%d, want 10/5/5", res.TotalChunks, res.Embedded, res.Skipped)
	}
}

func TestRunEmbedProviderFailurePersistsNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.embedder.fail = true

	if _, err := h.backend.ReplaceChunks(ctx, "file-1", []models.ChunkInput{
		{FileID: "file-1", ChunkIndex: 0, Text: "alpha"},
	}); err != nil {
		t.Fatalf("seed chunks: %v", err)
	}

	if _, err := h.orch.runEmbed(ctx, "file-1", ChunkSelector{}); err == nil {
		t.Fatal("provider failure must abort the phase")
	}
	if len(h.backend.embeddings) != 0 {
		t.Fatalf("aborted phase persisted %d embeddings", len(h.backend.embeddings))
	}
}

func TestRunEmbedNoChunks(t *testing.T) {
	h := newHarness(t)
	if _, err := h.orch.runEmbed(context.Background(), "file-1", ChunkSelector{}); err == nil {
		t.Fatal("embedding a chunkless file must error")
	}
}
