// Package models defines data structures for the Doxai document indexer.
package models

// JobStatus is the coarse lifecycle state of an indexing job.
// Status is orthogonal to the phase pointer: a running job can sit on
// any phase, and a failed job keeps the phase it died on.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Phase identifies a step of the indexing pipeline. Phases always run
// in the order convert, ocr, chunk, embed, integrate, ready; ocr is
// skipped when the job does not need it.
type Phase string

const (
	PhaseConvert   Phase = "convert"
	PhaseOCR       Phase = "ocr"
	PhaseChunk     Phase = "chunk"
	PhaseEmbed     Phase = "embed"
	PhaseIntegrate Phase = "integrate"
	PhaseReady     Phase = "ready"
)

// Valid reports whether p is a known pipeline phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseConvert, PhaseOCR, PhaseChunk, PhaseEmbed, PhaseIntegrate, PhaseReady:
		return true
	}
	return false
}

// ProgressPct returns the fixed progress percentage associated with
// entering p. Unknown phases map to 0.
func (p Phase) ProgressPct() int {
	switch p {
	case PhaseConvert:
		return 15
	case PhaseOCR:
		return 35
	case PhaseChunk:
		return 55
	case PhaseEmbed:
		return 75
	case PhaseIntegrate:
		return 90
	case PhaseReady:
		return 100
	}
	return 0
}

// OCRStrategy selects the recognition model used for scanned documents.
type OCRStrategy string

const (
	OCRStrategyFast     OCRStrategy = "fast"
	OCRStrategyAccurate OCRStrategy = "accurate"
	OCRStrategyBalanced OCRStrategy = "balanced"
)

// Valid reports whether s is a known OCR strategy.
func (s OCRStrategy) Valid() bool {
	switch s {
	case OCRStrategyFast, OCRStrategyAccurate, OCRStrategyBalanced:
		return true
	}
	return false
}

// EventType classifies entries on a job's audit timeline.
type EventType string

const (
	EventJobQueued      EventType = "job_queued"
	EventPhaseStarted   EventType = "phase_started"
	EventPhaseCompleted EventType = "phase_completed"
	EventPhaseFailed    EventType = "phase_failed"
	EventJobCompleted   EventType = "job_completed"
	EventJobFailed      EventType = "job_failed"
)
