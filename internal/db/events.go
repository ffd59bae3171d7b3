package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/ixberis/doxai-indexer/internal/models"
)

// AppendJobEvent records one entry on a job's audit timeline. Events
// are append-only; there is no update or delete counterpart.
func (c *Client) AppendJobEvent(ctx context.Context, jobID string, input models.JobEventInput) (*models.JobEvent, error) {
	payload := input.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	results, err := surrealdb.Query[[]models.JobEvent](ctx, c.db, `
		CREATE rag_job_event SET
			job = type::record("rag_job", $job_id),
			event_type = $event_type,
			phase = $phase,
			progress_pct = $progress_pct,
			message = $message,
			payload = $payload
		RETURN AFTER
	`, map[string]any{
		"job_id":       jobID,
		"event_type":   string(input.EventType),
		"phase":        phaseString(input.Phase),
		"progress_pct": input.ProgressPct,
		"message":      input.Message,
		"payload":      payload,
	})
	if err != nil {
		return nil, fmt.Errorf("append job event: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("append job event: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// ListJobEvents returns a job's timeline in chronological order.
func (c *Client) ListJobEvents(ctx context.Context, jobID string) ([]models.JobEvent, error) {
	results, err := surrealdb.Query[[]models.JobEvent](ctx, c.db, `
		SELECT * FROM rag_job_event
		WHERE job = type::record("rag_job", $job_id)
		ORDER BY created_at ASC
	`, map[string]any{"job_id": jobID})
	if err != nil {
		return nil, fmt.Errorf("list job events: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.JobEvent{}, nil
	}
	return (*results)[0].Result, nil
}

// phaseString converts an optional phase to an optional string for
// query parameters. CBOR encodes a nil *string as SurrealDB NONE.
func phaseString(p *models.Phase) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}
