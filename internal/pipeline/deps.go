// Package pipeline executes document indexing jobs: convert, optional
// ocr, chunk, embed and integrate, in strict sequence, with durable
// state and an append-only event timeline per job.
package pipeline

import (
	"context"

	"github.com/ixberis/doxai-indexer/internal/models"
)

// JobStore persists job rows and their lifecycle transitions.
// *db.Client implements it.
type JobStore interface {
	CreateJob(ctx context.Context, projectID, fileID string, needsOCR bool) (*models.Job, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	UpdateJobPhase(ctx context.Context, id string, phase models.Phase) error
	MarkJobRunning(ctx context.Context, id string) error
	MarkJobCompleted(ctx context.Context, id string) error
	MarkJobFailed(ctx context.Context, id string) error
}

// EventLog appends to a job's audit timeline.
type EventLog interface {
	AppendJobEvent(ctx context.Context, jobID string, input models.JobEventInput) (*models.JobEvent, error)
}

// ChunkStore persists chunk rows. Replacement is all-or-nothing.
type ChunkStore interface {
	ReplaceChunks(ctx context.Context, fileID string, inputs []models.ChunkInput) ([]models.Chunk, error)
	ListChunksByFile(ctx context.Context, fileID string) ([]models.Chunk, error)
	CountChunksByFile(ctx context.Context, fileID string) (int, error)
}

// EmbeddingStore persists embedding rows and answers idempotency
// lookups on the (file, chunk_index, model) key.
type EmbeddingStore interface {
	InsertEmbeddings(ctx context.Context, inputs []models.EmbeddingInput) ([]models.Embedding, error)
	ListEmbeddedIndexes(ctx context.Context, fileID, model string) ([]int, error)
	CountEmbeddingsByFile(ctx context.Context, fileID string, onlyActive bool) (int, error)
	DeactivateEmbeddings(ctx context.Context, fileID, keepModel string) (int, error)
}

// CreditLedger is the reservation saga surface. *ledger.Service
// implements it.
type CreditLedger interface {
	CreateReservation(ctx context.Context, userID string, credits int, operationID string) (*models.Reservation, error)
	ConsumeReservation(ctx context.Context, operationID, ledgerOperationID string, credits int) (int, error)
	CancelReservation(ctx context.Context, operationID string) error
}
