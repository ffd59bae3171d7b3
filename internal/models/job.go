package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Job represents a persisted document indexing job. A fresh row is
// created per submission even when the same file is indexed again;
// multiple rows may reference one file_id.
type Job struct {
	ID           surrealmodels.RecordID `json:"id"`
	ProjectID    string                 `json:"project_id"`
	FileID       string                 `json:"file_id"`
	Status       JobStatus              `json:"status"`
	PhaseCurrent Phase                  `json:"phase_current"`
	NeedsOCR     bool                   `json:"needs_ocr"`
	ProgressPct  int                    `json:"progress_pct"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
	FailedAt     *time.Time             `json:"failed_at,omitempty"`
	CancelledAt  *time.Time             `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// JobEvent is one append-only entry on a job's audit timeline.
// Events are never updated or deleted.
type JobEvent struct {
	ID          surrealmodels.RecordID `json:"id"`
	Job         surrealmodels.RecordID `json:"job"`
	EventType   EventType              `json:"event_type"`
	Phase       *Phase                 `json:"phase,omitempty"`
	ProgressPct *int                   `json:"progress_pct,omitempty"`
	Message     *string                `json:"message,omitempty"`
	Payload     map[string]any         `json:"payload,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// JobEventInput is the input structure for appending timeline events.
type JobEventInput struct {
	EventType   EventType      `json:"event_type"`
	Phase       *Phase         `json:"phase,omitempty"`
	ProgressPct *int           `json:"progress_pct,omitempty"`
	Message     *string        `json:"message,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
}
