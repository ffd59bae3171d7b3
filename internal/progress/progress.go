// Package progress derives user-facing job progress from the persisted
// job row and its event timeline.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/ixberis/doxai-indexer/internal/models"
)

// Store is the read surface progress needs. *db.Client implements it.
type Store interface {
	GetJob(ctx context.Context, id string) (*models.Job, error)
	ListJobEvents(ctx context.Context, jobID string) ([]models.JobEvent, error)
	ListJobs(ctx context.Context, limit int) ([]models.Job, error)
}

// TimelineEntry is one event of a job's history, flattened for
// transport.
type TimelineEntry struct {
	EventType   models.EventType `json:"event_type"`
	Phase       *models.Phase    `json:"phase,omitempty"`
	ProgressPct *int             `json:"progress_pct,omitempty"`
	Message     *string          `json:"message,omitempty"`
	Payload     map[string]any   `json:"payload,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// JobProgress is the full progress view of one job.
type JobProgress struct {
	JobID       string           `json:"job_id"`
	FileID      string           `json:"file_id"`
	Status      models.JobStatus `json:"status"`
	Phase       models.Phase     `json:"phase"`
	ProgressPct int              `json:"progress_pct"`
	Timeline    []TimelineEntry  `json:"timeline"`
}

// Service answers progress queries.
type Service struct {
	store Store
}

// NewService creates a progress service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetJobProgress returns the job's current phase, status, the fixed
// progress percentage for that phase and the full event timeline in
// creation order.
func (s *Service) GetJobProgress(ctx context.Context, jobID string) (*JobProgress, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	events, err := s.store.ListJobEvents(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("listing events for job %s: %w", jobID, err)
	}

	timeline := make([]TimelineEntry, len(events))
	for i, ev := range events {
		timeline[i] = TimelineEntry{
			EventType:   ev.EventType,
			Phase:       ev.Phase,
			ProgressPct: ev.ProgressPct,
			Message:     ev.Message,
			Payload:     ev.Payload,
			CreatedAt:   ev.CreatedAt,
		}
	}

	return &JobProgress{
		JobID:       jobID,
		FileID:      job.FileID,
		Status:      job.Status,
		Phase:       job.PhaseCurrent,
		ProgressPct: job.PhaseCurrent.ProgressPct(),
		Timeline:    timeline,
	}, nil
}

// ListJobs returns recent jobs with their progress percentages, newest
// first.
func (s *Service) ListJobs(ctx context.Context, limit int) ([]JobProgress, error) {
	jobs, err := s.store.ListJobs(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]JobProgress, len(jobs))
	for i, job := range jobs {
		out[i] = JobProgress{
			JobID:       models.MustRecordIDString(job.ID),
			FileID:      job.FileID,
			Status:      job.Status,
			Phase:       job.PhaseCurrent,
			ProgressPct: job.PhaseCurrent.ProgressPct(),
		}
	}
	return out, nil
}
