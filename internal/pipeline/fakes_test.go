package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/ixberis/doxai-indexer/internal/models"
	"github.com/ixberis/doxai-indexer/internal/provider"
)

// fakeBackend is an in-memory stand-in for the database client. It
// implements JobStore, EventLog, ChunkStore and EmbeddingStore.
type fakeBackend struct {
	mu         sync.Mutex
	jobs       map[string]*models.Job
	events     map[string][]models.JobEvent
	chunks     map[string][]models.Chunk
	embeddings []models.Embedding
	nextJob    int
	nextChunk  int

	failReplaceChunks bool
	failInsertEmbed   bool
	failListChunks    bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		jobs:   make(map[string]*models.Job),
		events: make(map[string][]models.JobEvent),
		chunks: make(map[string][]models.Chunk),
	}
}

func (f *fakeBackend) CreateJob(_ context.Context, projectID, fileID string, needsOCR bool) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextJob++
	id := fmt.Sprintf("job-%d", f.nextJob)
	job := &models.Job{
		ID:           surrealmodels.NewRecordID("rag_job", id),
		ProjectID:    projectID,
		FileID:       fileID,
		Status:       models.JobStatusQueued,
		PhaseCurrent: models.PhaseConvert,
		NeedsOCR:     needsOCR,
		ProgressPct:  0,
		CreatedAt:    time.Now(),
	}
	f.jobs[id] = job
	cp := *job
	return &cp, nil
}

func (f *fakeBackend) GetJob(_ context.Context, id string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}
	cp := *job
	return &cp, nil
}

func (f *fakeBackend) UpdateJobPhase(_ context.Context, id string, phase models.Phase) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	job.PhaseCurrent = phase
	job.ProgressPct = phase.ProgressPct()
	return nil
}

func (f *fakeBackend) MarkJobRunning(_ context.Context, id string) error {
	return f.setStatus(id, models.JobStatusRunning)
}

func (f *fakeBackend) MarkJobCompleted(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	job.Status = models.JobStatusCompleted
	job.PhaseCurrent = models.PhaseReady
	job.ProgressPct = 100
	return nil
}

func (f *fakeBackend) MarkJobFailed(_ context.Context, id string) error {
	return f.setStatus(id, models.JobStatusFailed)
}

func (f *fakeBackend) setStatus(id string, status models.JobStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	job.Status = status
	return nil
}

func (f *fakeBackend) AppendJobEvent(_ context.Context, jobID string, input models.JobEventInput) (*models.JobEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ev := models.JobEvent{
		ID:          surrealmodels.NewRecordID("rag_job_event", fmt.Sprintf("%s-%d", jobID, len(f.events[jobID]))),
		Job:         surrealmodels.NewRecordID("rag_job", jobID),
		EventType:   input.EventType,
		Phase:       input.Phase,
		ProgressPct: input.ProgressPct,
		Message:     input.Message,
		Payload:     input.Payload,
		CreatedAt:   time.Now(),
	}
	f.events[jobID] = append(f.events[jobID], ev)
	return &ev, nil
}

func (f *fakeBackend) eventTypes(jobID string) []models.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.EventType
	for _, ev := range f.events[jobID] {
		out = append(out, ev.EventType)
	}
	return out
}

func (f *fakeBackend) findEvent(jobID string, t models.EventType) *models.JobEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.events[jobID] {
		if f.events[jobID][i].EventType == t {
			return &f.events[jobID][i]
		}
	}
	return nil
}

func (f *fakeBackend) ReplaceChunks(_ context.Context, fileID string, inputs []models.ChunkInput) ([]models.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failReplaceChunks {
		return nil, fmt.Errorf("chunk store down")
	}

	rows := make([]models.Chunk, len(inputs))
	for i, in := range inputs {
		f.nextChunk++
		rows[i] = models.Chunk{
			ID:         surrealmodels.NewRecordID("chunk", fmt.Sprintf("c-%d", f.nextChunk)),
			FileID:     in.FileID,
			ChunkIndex: in.ChunkIndex,
			Text:       in.Text,
			TokenCount: in.TokenCount,
			CreatedAt:  time.Now(),
		}
	}
	f.chunks[fileID] = rows
	return append([]models.Chunk(nil), rows...), nil
}

func (f *fakeBackend) ListChunksByFile(_ context.Context, fileID string) ([]models.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failListChunks {
		return nil, fmt.Errorf("chunk store down")
	}
	return append([]models.Chunk(nil), f.chunks[fileID]...), nil
}

func (f *fakeBackend) CountChunksByFile(_ context.Context, fileID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chunks[fileID]), nil
}

func (f *fakeBackend) InsertEmbeddings(_ context.Context, inputs []models.EmbeddingInput) ([]models.Embedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failInsertEmbed {
		return nil, fmt.Errorf("embedding store down")
	}

	rows := make([]models.Embedding, len(inputs))
	for i, in := range inputs {
		for _, e := range f.embeddings {
			if e.FileID == in.FileID && e.ChunkIndex == in.ChunkIndex && e.Model == in.Model {
				return nil, fmt.Errorf("duplicate embedding key")
			}
		}
		rows[i] = models.Embedding{
			ID:         surrealmodels.NewRecordID("embedding", fmt.Sprintf("%s-%d-%s", in.FileID, in.ChunkIndex, in.Model)),
			FileID:     in.FileID,
			Chunk:      in.Chunk,
			ChunkIndex: in.ChunkIndex,
			Vector:     in.Vector,
			Model:      in.Model,
			IsActive:   in.IsActive,
			CreatedAt:  time.Now(),
		}
		f.embeddings = append(f.embeddings, rows[i])
	}
	return rows, nil
}

func (f *fakeBackend) ListEmbeddedIndexes(_ context.Context, fileID, model string) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []int
	for _, e := range f.embeddings {
		if e.FileID == fileID && e.Model == model && e.IsActive {
			out = append(out, e.ChunkIndex)
		}
	}
	return out, nil
}

func (f *fakeBackend) CountEmbeddingsByFile(_ context.Context, fileID string, onlyActive bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, e := range f.embeddings {
		if e.FileID == fileID && (!onlyActive || e.IsActive) {
			n++
		}
	}
	return n, nil
}

func (f *fakeBackend) DeactivateEmbeddings(_ context.Context, fileID, keepModel string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for i := range f.embeddings {
		e := &f.embeddings[i]
		if e.FileID == fileID && e.IsActive && e.Model != keepModel {
			e.IsActive = false
			n++
		}
	}
	return n, nil
}

// fakeLedger tracks reservation saga state for assertions.
type fakeLedger struct {
	mu           sync.Mutex
	reservations map[string]*models.Reservation
	consumed     map[string]int
	cancelled    map[string]bool

	failReserve bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		reservations: make(map[string]*models.Reservation),
		consumed:     make(map[string]int),
		cancelled:    make(map[string]bool),
	}
}

func (f *fakeLedger) CreateReservation(_ context.Context, userID string, credits int, operationID string) (*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failReserve {
		return nil, fmt.Errorf("insufficient credits")
	}
	if r, ok := f.reservations[operationID]; ok {
		return r, nil
	}
	r := &models.Reservation{
		ID:          surrealmodels.NewRecordID("reservation", operationID),
		UserID:      userID,
		Credits:     credits,
		OperationID: operationID,
		Status:      models.ReservationActive,
	}
	f.reservations[operationID] = r
	return r, nil
}

func (f *fakeLedger) ConsumeReservation(_ context.Context, operationID, _ string, credits int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.reservations[operationID]
	if !ok {
		return 0, fmt.Errorf("reservation %s not found", operationID)
	}
	if r.Status != models.ReservationActive {
		return 0, fmt.Errorf("reservation %s is %s", operationID, r.Status)
	}
	if credits > r.Credits {
		credits = r.Credits
	}
	r.Status = models.ReservationConsumed
	f.consumed[operationID] = credits
	return credits, nil
}

func (f *fakeLedger) CancelReservation(_ context.Context, operationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.reservations[operationID]
	if !ok {
		return fmt.Errorf("reservation %s not found", operationID)
	}
	if r.Status == models.ReservationConsumed {
		return fmt.Errorf("reservation %s already consumed", operationID)
	}
	r.Status = models.ReservationCancelled
	f.cancelled[operationID] = true
	return nil
}

// fakeEmbedder returns deterministic vectors, optionally failing every
// call to simulate a provider outage.
type fakeEmbedder struct {
	model     string
	dimension int
	fail      bool
	calls     int
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail {
		return nil, fmt.Errorf("provider unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, f.dimension)
		for j := range v {
			v[j] = float32(i + j)
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string  { return f.model }
func (f *fakeEmbedder) Dimension() int { return f.dimension }

// fakeOCR recognizes a fixed page set without any provider.
type fakeOCR struct {
	pages int
	fail  bool
}

func (f *fakeOCR) AnalyzeDocument(_ context.Context, _ string, strategy models.OCRStrategy) (*provider.OCRResult, error) {
	if f.fail {
		return nil, fmt.Errorf("ocr provider unavailable")
	}
	pages := make([]provider.OCRPage, f.pages)
	var text string
	for i := range pages {
		pageText := fmt.Sprintf("recognized page %d lorem ipsum dolor sit amet", i+1)
		pages[i] = provider.OCRPage{Number: i + 1, Text: pageText, Confidence: 0.97}
		if i > 0 {
			text += "\n"
		}
		text += pageText
	}
	return &provider.OCRResult{
		Text:       text,
		Pages:      pages,
		Confidence: 0.97,
		Language:   "en",
		ModelUsed:  "prebuilt-read",
	}, nil
}
