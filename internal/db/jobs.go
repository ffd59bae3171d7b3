// Package db provides SurrealDB query functions for indexing jobs.
package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"

	"github.com/ixberis/doxai-indexer/internal/models"
)

// CreateJob persists a new job in queued state pointing at the convert
// phase. Every call creates a fresh row, even for a file that already
// has jobs.
func (c *Client) CreateJob(ctx context.Context, projectID, fileID string, needsOCR bool) (*models.Job, error) {
	id := uuid.New().String()

	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		CREATE type::record("rag_job", $id) SET
			project_id = $project_id,
			file_id = $file_id,
			status = $status,
			phase_current = $phase,
			needs_ocr = $needs_ocr,
			progress_pct = 0
		RETURN AFTER
	`, map[string]any{
		"id":         id,
		"project_id": projectID,
		"file_id":    fileID,
		"status":     string(models.JobStatusQueued),
		"phase":      string(models.PhaseConvert),
		"needs_ocr":  needsOCR,
	})
	if err != nil {
		return nil, fmt.Errorf("create job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create job: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// GetJob retrieves a job by ID.
// Returns ErrNotFound if the job does not exist.
func (c *Client) GetJob(ctx context.Context, id string) (*models.Job, error) {
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		SELECT * FROM type::record("rag_job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("get job %s: %w", id, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// ListJobs returns jobs ordered by creation time, newest first.
func (c *Client) ListJobs(ctx context.Context, limit int) ([]models.Job, error) {
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		SELECT * FROM rag_job ORDER BY created_at DESC LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Job{}, nil
	}
	return (*results)[0].Result, nil
}

// ListJobsByFile returns all jobs that reference a file, newest first.
func (c *Client) ListJobsByFile(ctx context.Context, fileID string) ([]models.Job, error) {
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		SELECT * FROM rag_job WHERE file_id = $file_id ORDER BY created_at DESC
	`, map[string]any{"file_id": fileID})
	if err != nil {
		return nil, fmt.Errorf("list jobs by file: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Job{}, nil
	}
	return (*results)[0].Result, nil
}

// UpdateJobPhase moves the job's phase pointer and sets the fixed
// progress percentage for that phase.
func (c *Client) UpdateJobPhase(ctx context.Context, id string, phase models.Phase) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("rag_job", $id) SET
			phase_current = $phase,
			progress_pct = $pct,
			updated_at = time::now()
	`, map[string]any{
		"id":    id,
		"phase": string(phase),
		"pct":   phase.ProgressPct(),
	})
	if err != nil {
		return fmt.Errorf("update job phase: %w", wrapQueryError(err))
	}
	return nil
}

// MarkJobRunning transitions a queued job to running and stamps the
// start time.
func (c *Client) MarkJobRunning(ctx context.Context, id string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("rag_job", $id) SET
			status = $status,
			started_at = time::now(),
			updated_at = time::now()
	`, map[string]any{
		"id":     id,
		"status": string(models.JobStatusRunning),
	})
	if err != nil {
		return fmt.Errorf("mark job running: %w", wrapQueryError(err))
	}
	return nil
}

// MarkJobCompleted finalizes a successful job: terminal status, ready
// phase, progress 100.
func (c *Client) MarkJobCompleted(ctx context.Context, id string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("rag_job", $id) SET
			status = $status,
			phase_current = $phase,
			progress_pct = 100,
			completed_at = time::now(),
			updated_at = time::now()
	`, map[string]any{
		"id":     id,
		"status": string(models.JobStatusCompleted),
		"phase":  string(models.PhaseReady),
	})
	if err != nil {
		return fmt.Errorf("mark job completed: %w", wrapQueryError(err))
	}
	return nil
}

// MarkJobFailed sets terminal failed status. The phase pointer keeps
// the phase the job died on.
func (c *Client) MarkJobFailed(ctx context.Context, id string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("rag_job", $id) SET
			status = $status,
			failed_at = time::now(),
			updated_at = time::now()
	`, map[string]any{
		"id":     id,
		"status": string(models.JobStatusFailed),
	})
	if err != nil {
		return fmt.Errorf("mark job failed: %w", wrapQueryError(err))
	}
	return nil
}
