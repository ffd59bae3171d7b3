package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ixberis/doxai-indexer/internal/metrics"
	"github.com/ixberis/doxai-indexer/internal/models"
	"github.com/ixberis/doxai-indexer/internal/provider"
	"github.com/ixberis/doxai-indexer/internal/storage"
)

// JobRequest describes one document to index.
type JobRequest struct {
	ProjectID string
	FileID    string
	UserID    string
	MimeType  string
	SourceURI string

	NeedsOCR    bool
	OCRStrategy models.OCRStrategy

	// Optional cost estimation hints; defaults apply when zero.
	EstimatedPages  int
	EstimatedChunks int

	// Optional chunk subset for the embed phase. Zero value embeds all.
	Selector ChunkSelector

	// Optional chunker override. Zero value uses the defaults.
	Chunking models.ChunkingParams
}

// Summary reports what a finished orchestration did. Callers detect
// pipeline failure by inspecting JobStatus; Run returns a non-nil error
// only for precondition violations raised before the job row exists.
type Summary struct {
	JobID           string
	PhasesDone      []models.Phase
	JobStatus       models.JobStatus
	TotalChunks     int
	TotalEmbeddings int
	CreditsUsed     int
	ReservationID   string
}

// Orchestrator drives the indexing pipeline for one job at a time.
// Instances are safe for concurrent Run calls on different files; two
// concurrent runs over the same file race on chunk replacement.
type Orchestrator struct {
	jobs       JobStore
	events     EventLog
	chunks     ChunkStore
	embeddings EmbeddingStore
	ledger     CreditLedger
	store      storage.Store
	ocr        provider.OCRClient
	embedder   provider.Embedder
	metrics    *metrics.Collector
	log        *slog.Logger
}

// Config wires an Orchestrator's collaborators.
type Config struct {
	Jobs       JobStore
	Events     EventLog
	Chunks     ChunkStore
	Embeddings EmbeddingStore
	Ledger     CreditLedger
	Store      storage.Store
	OCR        provider.OCRClient
	Embedder   provider.Embedder
	Metrics    *metrics.Collector
	Logger     *slog.Logger
}

// New creates an orchestrator. Store, OCR and Embedder may be nil here;
// Run validates them per request so a server can boot without every
// provider configured.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Jobs == nil || cfg.Events == nil || cfg.Chunks == nil || cfg.Embeddings == nil {
		return nil, fmt.Errorf("orchestrator requires job, event, chunk and embedding stores")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("orchestrator requires a credit ledger")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewCollector()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Orchestrator{
		jobs:       cfg.Jobs,
		events:     cfg.Events,
		chunks:     cfg.Chunks,
		embeddings: cfg.Embeddings,
		ledger:     cfg.Ledger,
		store:      cfg.Store,
		ocr:        cfg.OCR,
		embedder:   cfg.Embedder,
		metrics:    cfg.Metrics,
		log:        cfg.Logger,
	}, nil
}

// Metrics exposes the orchestrator's collector.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}

// Run executes the full pipeline for one document. Precondition
// violations return an error before any job row exists. Once the job
// row is created, failures are absorbed into the returned Summary with
// JobStatus failed and a cancelled reservation.
func (o *Orchestrator) Run(ctx context.Context, req JobRequest) (*Summary, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}

	estimate := EstimateCredits(req.NeedsOCR, req.EstimatedPages, req.EstimatedChunks)

	job, err := o.jobs.CreateJob(ctx, req.ProjectID, req.FileID, req.NeedsOCR)
	if err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	jobID := models.MustRecordIDString(job.ID)
	operationID := "rag_job_" + jobID

	log := o.log.With("job_id", jobID, "file_id", req.FileID)
	log.Info("job queued", "needs_ocr", req.NeedsOCR, "estimate", estimate)

	o.appendEvent(ctx, jobID, models.JobEventInput{
		EventType: models.EventJobQueued,
		Phase:     phasePtr(models.PhaseConvert),
		Payload:   map[string]any{"estimated_credits": estimate, "operation_id": operationID},
	})

	summary := &Summary{JobID: jobID, JobStatus: models.JobStatusFailed}
	jobStart := time.Now()

	reservation, err := o.ledger.CreateReservation(ctx, req.UserID, estimate, operationID)
	if err != nil {
		return o.failJob(ctx, log, summary, operationID, models.PhaseConvert, fmt.Errorf("reserving credits: %w", err)), nil
	}
	summary.ReservationID = reservationIDString(reservation)

	if err := o.jobs.MarkJobRunning(ctx, jobID); err != nil {
		return o.failJob(ctx, log, summary, operationID, models.PhaseConvert, err), nil
	}

	// Convert
	conv, err := o.phase(ctx, log, summary, jobID, models.PhaseConvert, metrics.OpConvert, func() (map[string]any, int64, error) {
		res, err := o.runConvert(ctx, jobID, req.SourceURI, req.MimeType)
		if err != nil {
			return nil, 0, err
		}
		return map[string]any{"result_uri": res.ResultURI, "byte_size": res.ByteSize, "checksum": res.Checksum}, 0, nil
	})
	if err != nil {
		return o.failJob(ctx, log, summary, operationID, models.PhaseConvert, err), nil
	}
	textURI := conv["result_uri"].(string)

	// OCR, only for scanned documents
	ocrPages := 0
	if req.NeedsOCR {
		if err := o.advancePhase(ctx, jobID, models.PhaseOCR); err != nil {
			return o.failJob(ctx, log, summary, operationID, models.PhaseOCR, err), nil
		}
		var ocrRes *OCRPhaseResult
		_, err := o.phase(ctx, log, summary, jobID, models.PhaseOCR, metrics.OpOCR, func() (map[string]any, int64, error) {
			res, err := o.runOCR(ctx, jobID, req.SourceURI, req.OCRStrategy)
			if err != nil {
				return nil, 0, err
			}
			ocrRes = res
			return map[string]any{
				"result_uri":  res.ResultURI,
				"total_pages": res.TotalPages,
				"lang":        res.Lang,
				"confidence":  res.Confidence,
			}, int64(res.TotalPages), nil
		})
		if err != nil {
			return o.failJob(ctx, log, summary, operationID, models.PhaseOCR, err), nil
		}
		ocrPages = ocrRes.TotalPages
		// Recognized text supersedes the native conversion.
		textURI = ocrRes.ResultURI
	}

	// Chunk
	if err := o.advancePhase(ctx, jobID, models.PhaseChunk); err != nil {
		return o.failJob(ctx, log, summary, operationID, models.PhaseChunk, err), nil
	}
	var chunkRes *ChunkResult
	_, err = o.phase(ctx, log, summary, jobID, models.PhaseChunk, metrics.OpChunk, func() (map[string]any, int64, error) {
		res, err := o.runChunk(ctx, req.FileID, textURI, req.Chunking)
		if err != nil {
			return nil, 0, err
		}
		chunkRes = res
		return map[string]any{"total_chunks": res.TotalChunks}, int64(res.TotalChunks), nil
	})
	if err != nil {
		return o.failJob(ctx, log, summary, operationID, models.PhaseChunk, err), nil
	}
	summary.TotalChunks = chunkRes.TotalChunks

	// Embed
	if err := o.advancePhase(ctx, jobID, models.PhaseEmbed); err != nil {
		return o.failJob(ctx, log, summary, operationID, models.PhaseEmbed, err), nil
	}
	var embedRes *EmbedResult
	_, err = o.phase(ctx, log, summary, jobID, models.PhaseEmbed, metrics.OpEmbed, func() (map[string]any, int64, error) {
		res, err := o.runEmbed(ctx, req.FileID, req.Selector)
		if err != nil {
			return nil, 0, err
		}
		embedRes = res
		return map[string]any{
			"total_chunks": res.TotalChunks,
			"embedded":     res.Embedded,
			"skipped":      res.Skipped,
		}, int64(res.Embedded), nil
	})
	if err != nil {
		return o.failJob(ctx, log, summary, operationID, models.PhaseEmbed, err), nil
	}
	summary.TotalChunks = embedRes.TotalChunks
	summary.TotalEmbeddings = embedRes.Embedded

	// Integrate
	if err := o.advancePhase(ctx, jobID, models.PhaseIntegrate); err != nil {
		return o.failJob(ctx, log, summary, operationID, models.PhaseIntegrate, err), nil
	}
	_, err = o.phase(ctx, log, summary, jobID, models.PhaseIntegrate, metrics.OpIntegrate, func() (map[string]any, int64, error) {
		res, err := o.runIntegrate(ctx, req.FileID)
		if err != nil {
			return nil, 0, err
		}
		return map[string]any{
			"activated":       res.Activated,
			"deactivated":     res.Deactivated,
			"ready":           res.Ready,
			"integrity_valid": res.IntegrityValid,
		}, 0, nil
	})
	if err != nil {
		return o.failJob(ctx, log, summary, operationID, models.PhaseIntegrate, err), nil
	}

	// Settle the saga for the actual cost, never the estimate.
	actual := ActualCredits(ocrPages, embedRes.Embedded)
	consumed, err := o.ledger.ConsumeReservation(ctx, operationID, operationID+":consume", actual)
	if err != nil {
		return o.failJob(ctx, log, summary, operationID, models.PhaseIntegrate, fmt.Errorf("consuming reservation: %w", err)), nil
	}
	summary.CreditsUsed = consumed

	if err := o.jobs.MarkJobCompleted(ctx, jobID); err != nil {
		return o.failJob(ctx, log, summary, operationID, models.PhaseReady, err), nil
	}
	o.appendEvent(ctx, jobID, models.JobEventInput{
		EventType:   models.EventJobCompleted,
		Phase:       phasePtr(models.PhaseReady),
		ProgressPct: intPtr(models.PhaseReady.ProgressPct()),
		Payload: map[string]any{
			"total_chunks":     summary.TotalChunks,
			"total_embeddings": summary.TotalEmbeddings,
			"credits_used":     consumed,
		},
	})

	o.metrics.RecordTiming(metrics.OpJob, time.Since(jobStart))
	summary.JobStatus = models.JobStatusCompleted
	log.Info("job completed",
		"chunks", summary.TotalChunks, "embedded", summary.TotalEmbeddings,
		"credits_used", consumed, "elapsed", time.Since(jobStart))
	return summary, nil
}

// validate checks request preconditions. Violations surface as plain
// errors with no job artifact.
func (o *Orchestrator) validate(req JobRequest) error {
	if o.store == nil {
		return fmt.Errorf("storage accessor required")
	}
	if req.SourceURI == "" {
		return fmt.Errorf("source uri required")
	}
	if req.FileID == "" {
		return fmt.Errorf("file id required")
	}
	if req.UserID == "" {
		return fmt.Errorf("user id required")
	}
	if o.embedder == nil {
		return fmt.Errorf("embedding provider required")
	}
	if req.NeedsOCR {
		if o.ocr == nil {
			return fmt.Errorf("ocr provider required for scanned documents")
		}
		if !req.OCRStrategy.Valid() {
			return fmt.Errorf("invalid ocr strategy %q", req.OCRStrategy)
		}
	}
	return nil
}

// phase wraps one phase execution with its started/completed events and
// timing. body returns the completed-event payload and an item count
// for metrics.
func (o *Orchestrator) phase(
	ctx context.Context,
	log *slog.Logger,
	summary *Summary,
	jobID string,
	p models.Phase,
	op string,
	body func() (map[string]any, int64, error),
) (map[string]any, error) {
	o.appendEvent(ctx, jobID, models.JobEventInput{
		EventType:   models.EventPhaseStarted,
		Phase:       phasePtr(p),
		ProgressPct: intPtr(p.ProgressPct()),
	})

	start := time.Now()
	payload, items, err := body()
	if err != nil {
		o.metrics.RecordFailure(op)
		return nil, err
	}
	elapsed := time.Since(start)
	o.metrics.RecordPhase(op, elapsed, items)

	o.appendEvent(ctx, jobID, models.JobEventInput{
		EventType:   models.EventPhaseCompleted,
		Phase:       phasePtr(p),
		ProgressPct: intPtr(p.ProgressPct()),
		Payload:     payload,
	})
	summary.PhasesDone = append(summary.PhasesDone, p)
	log.Debug("phase completed", "phase", p, "elapsed", elapsed)
	return payload, nil
}

// advancePhase persists the phase pointer so a crash resumes from the
// last durable phase.
func (o *Orchestrator) advancePhase(ctx context.Context, jobID string, p models.Phase) error {
	if err := o.jobs.UpdateJobPhase(ctx, jobID, p); err != nil {
		return fmt.Errorf("advancing to phase %s: %w", p, err)
	}
	return nil
}

// failJob absorbs a phase failure: it records the failure on the
// timeline, marks the job failed keeping the phase it died on, and
// compensates the credit reservation. The job consumed nothing.
func (o *Orchestrator) failJob(
	ctx context.Context,
	log *slog.Logger,
	summary *Summary,
	operationID string,
	p models.Phase,
	cause error,
) *Summary {
	log.Error("job failed", "phase", p, "error", cause)
	o.metrics.RecordFailure(metrics.OpJob)

	msg := cause.Error()
	o.appendEvent(ctx, summary.JobID, models.JobEventInput{
		EventType: models.EventPhaseFailed,
		Phase:     phasePtr(p),
		Message:   &msg,
	})

	phasesDone := make([]string, len(summary.PhasesDone))
	for i, done := range summary.PhasesDone {
		phasesDone[i] = string(done)
	}
	o.appendEvent(ctx, summary.JobID, models.JobEventInput{
		EventType: models.EventJobFailed,
		Phase:     phasePtr(p),
		Message:   &msg,
		Payload:   map[string]any{"phases_done": phasesDone, "error": msg},
	})

	if err := o.jobs.MarkJobFailed(ctx, summary.JobID); err != nil {
		log.Error("failed to mark job failed", "error", err)
	}
	if err := o.ledger.CancelReservation(ctx, operationID); err != nil {
		log.Error("failed to cancel reservation", "operation_id", operationID, "error", err)
	}

	summary.JobStatus = models.JobStatusFailed
	summary.CreditsUsed = 0
	return summary
}

// appendEvent writes a timeline entry. The timeline is observability
// data; an append failure is logged, never fatal to the job.
func (o *Orchestrator) appendEvent(ctx context.Context, jobID string, input models.JobEventInput) {
	if _, err := o.events.AppendJobEvent(ctx, jobID, input); err != nil {
		o.log.Error("failed to append job event", "job_id", jobID, "event_type", input.EventType, "error", err)
	}
}

func reservationIDString(r *models.Reservation) string {
	id, err := models.RecordIDString(r.ID)
	if err != nil {
		return r.OperationID
	}
	return id
}

func phasePtr(p models.Phase) *models.Phase { return &p }
func intPtr(v int) *int                     { return &v }
