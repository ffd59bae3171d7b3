package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/ixberis/doxai-indexer/internal/models"
)

// memoryBackend is a minimal in-memory job, event, chunk and embedding
// store for runner tests.
type memoryBackend struct {
	mu         sync.Mutex
	jobs       map[string]*models.Job
	chunks     map[string][]models.Chunk
	embeddings []models.Embedding
	nextJob    int
	nextChunk  int
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		jobs:   make(map[string]*models.Job),
		chunks: make(map[string][]models.Chunk),
	}
}

func (m *memoryBackend) CreateJob(_ context.Context, projectID, fileID string, needsOCR bool) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextJob++
	id := fmt.Sprintf("job-%d", m.nextJob)
	job := &models.Job{
		ID:           surrealmodels.NewRecordID("rag_job", id),
		ProjectID:    projectID,
		FileID:       fileID,
		Status:       models.JobStatusQueued,
		PhaseCurrent: models.PhaseConvert,
		NeedsOCR:     needsOCR,
		CreatedAt:    time.Now(),
	}
	m.jobs[id] = job
	cp := *job
	return &cp, nil
}

func (m *memoryBackend) GetJob(_ context.Context, id string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}
	cp := *job
	return &cp, nil
}

func (m *memoryBackend) UpdateJobPhase(_ context.Context, id string, phase models.Phase) error {
	return m.mutateJob(id, func(j *models.Job) {
		j.PhaseCurrent = phase
		j.ProgressPct = phase.ProgressPct()
	})
}

func (m *memoryBackend) MarkJobRunning(_ context.Context, id string) error {
	return m.mutateJob(id, func(j *models.Job) { j.Status = models.JobStatusRunning })
}

func (m *memoryBackend) MarkJobCompleted(_ context.Context, id string) error {
	return m.mutateJob(id, func(j *models.Job) {
		j.Status = models.JobStatusCompleted
		j.PhaseCurrent = models.PhaseReady
		j.ProgressPct = 100
	})
}

func (m *memoryBackend) MarkJobFailed(_ context.Context, id string) error {
	return m.mutateJob(id, func(j *models.Job) { j.Status = models.JobStatusFailed })
}

func (m *memoryBackend) mutateJob(id string, fn func(*models.Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	fn(job)
	return nil
}

func (m *memoryBackend) AppendJobEvent(_ context.Context, jobID string, input models.JobEventInput) (*models.JobEvent, error) {
	return &models.JobEvent{
		Job:       surrealmodels.NewRecordID("rag_job", jobID),
		EventType: input.EventType,
		CreatedAt: time.Now(),
	}, nil
}

func (m *memoryBackend) ReplaceChunks(_ context.Context, fileID string, inputs []models.ChunkInput) ([]models.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]models.Chunk, len(inputs))
	for i, in := range inputs {
		m.nextChunk++
		rows[i] = models.Chunk{
			ID:         surrealmodels.NewRecordID("chunk", fmt.Sprintf("c-%d", m.nextChunk)),
			FileID:     in.FileID,
			ChunkIndex: in.ChunkIndex,
			Text:       in.Text,
			TokenCount: in.TokenCount,
		}
	}
	m.chunks[fileID] = rows
	return append([]models.Chunk(nil), rows...), nil
}

func (m *memoryBackend) ListChunksByFile(_ context.Context, fileID string) ([]models.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Chunk(nil), m.chunks[fileID]...), nil
}

func (m *memoryBackend) CountChunksByFile(_ context.Context, fileID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks[fileID]), nil
}

func (m *memoryBackend) InsertEmbeddings(_ context.Context, inputs []models.EmbeddingInput) ([]models.Embedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]models.Embedding, len(inputs))
	for i, in := range inputs {
		rows[i] = models.Embedding{
			FileID:     in.FileID,
			Chunk:      in.Chunk,
			ChunkIndex: in.ChunkIndex,
			Vector:     in.Vector,
			Model:      in.Model,
			IsActive:   in.IsActive,
		}
		m.embeddings = append(m.embeddings, rows[i])
	}
	return rows, nil
}

func (m *memoryBackend) ListEmbeddedIndexes(_ context.Context, fileID, model string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []int
	for _, e := range m.embeddings {
		if e.FileID == fileID && e.Model == model && e.IsActive {
			out = append(out, e.ChunkIndex)
		}
	}
	return out, nil
}

func (m *memoryBackend) CountEmbeddingsByFile(_ context.Context, fileID string, onlyActive bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, e := range m.embeddings {
		if e.FileID == fileID && (!onlyActive || e.IsActive) {
			n++
		}
	}
	return n, nil
}

func (m *memoryBackend) DeactivateEmbeddings(_ context.Context, fileID, keepModel string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for i := range m.embeddings {
		e := &m.embeddings[i]
		if e.FileID == fileID && e.IsActive && e.Model != keepModel {
			e.IsActive = false
			n++
		}
	}
	return n, nil
}
