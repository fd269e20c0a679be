package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/models"
)

// EventType defines the type of event
type EventType string

const (
	// Submission events
	EventTypeSubmissionCreated   EventType = "submission.created"
	EventTypeSubmissionPublished EventType = "submission.published"
	EventTypeSubmissionReverted  EventType = "submission.reverted"
	EventTypeSubmissionDeleted   EventType = "submission.deleted"

	// Job events
	EventTypeJobStarted  EventType = "job.started"
	EventTypeJobFinished EventType = "job.finished"
	EventTypeJobInvalid  EventType = "job.invalid"
	EventTypeJobFailed   EventType = "job.failed"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// SubmissionLifecycleEvent is emitted when a submission changes state
type SubmissionLifecycleEvent struct {
	BaseEvent
	SubmissionID  string               `json:"submission_id"`
	AgencyCode    string               `json:"agency_code"`
	FiscalYear    int                  `json:"fiscal_year"`
	FiscalPeriod  int                  `json:"fiscal_period"`
	IsFABS        bool                 `json:"is_fabs"`
	PublishStatus models.PublishStatus `json:"publish_status"`
	PublishedBy   string               `json:"published_by,omitempty"`
}

// JobLifecycleEvent is emitted when a job changes state
type JobLifecycleEvent struct {
	BaseEvent
	JobID        string           `json:"job_id"`
	SubmissionID string           `json:"submission_id"`
	JobType      models.JobType   `json:"job_type"`
	FileType     *models.FileType `json:"file_type,omitempty"`
	Status       models.JobStatus `json:"status"`
	NumberOfRows int              `json:"number_of_rows"`
	Errors       int              `json:"errors"`
	Warnings     int              `json:"warnings"`
	Message      string           `json:"message,omitempty"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
