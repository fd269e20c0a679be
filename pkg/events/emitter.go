// Package events handles event emission for submission and job lifecycle changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter handles event emission for the broker
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

func (e *Emitter) emitSubmission(ctx context.Context, eventType string, sub *models.Submission) error {
	event := &kafka.SubmissionEvent{
		EventType:    eventType,
		SubmissionID: sub.ID,
		AgencyCode:   sub.AgencyCode,
		FiscalYear:   sub.FiscalYear,
		FiscalPeriod: sub.FiscalPeriod,
		IsFABS:       sub.IsFABS,
	}

	if err := e.producer.PublishSubmissionEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": eventType,
		}).Error("Failed to emit submission event")
		return err
	}

	return nil
}

// EmitSubmissionCreated emits a submission created event
func (e *Emitter) EmitSubmissionCreated(ctx context.Context, sub *models.Submission) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSubmissionCreated")
	defer span.End()

	return e.emitSubmission(ctx, string(EventTypeSubmissionCreated), sub)
}

// EmitSubmissionPublished emits a submission published event
func (e *Emitter) EmitSubmissionPublished(ctx context.Context, sub *models.Submission) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSubmissionPublished")
	defer span.End()

	return e.emitSubmission(ctx, string(EventTypeSubmissionPublished), sub)
}

// EmitSubmissionReverted emits a submission reverted event
func (e *Emitter) EmitSubmissionReverted(ctx context.Context, sub *models.Submission) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSubmissionReverted")
	defer span.End()

	return e.emitSubmission(ctx, string(EventTypeSubmissionReverted), sub)
}

// EmitSubmissionDeleted emits a submission deleted event
func (e *Emitter) EmitSubmissionDeleted(ctx context.Context, sub *models.Submission) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSubmissionDeleted")
	defer span.End()

	return e.emitSubmission(ctx, string(EventTypeSubmissionDeleted), sub)
}

func (e *Emitter) emitJob(ctx context.Context, eventType string, job *models.Job, message string) error {
	event := &kafka.JobEvent{
		EventType:    eventType,
		JobID:        job.ID,
		SubmissionID: job.SubmissionID,
		JobType:      job.JobType,
		FileType:     job.FileType,
		Errors:       job.NumberOfErrors,
		Warnings:     job.NumberOfWarnings,
		Message:      message,
	}

	if err := e.producer.PublishJobEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": eventType,
			"job_id":     job.ID,
		}).Error("Failed to emit job event")
		return err
	}

	return nil
}

// EmitJobStarted emits a job started event
func (e *Emitter) EmitJobStarted(ctx context.Context, job *models.Job) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitJobStarted")
	defer span.End()

	return e.emitJob(ctx, string(EventTypeJobStarted), job, "")
}

// EmitJobFinished emits a job finished event
func (e *Emitter) EmitJobFinished(ctx context.Context, job *models.Job) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitJobFinished")
	defer span.End()

	return e.emitJob(ctx, string(EventTypeJobFinished), job, "")
}

// EmitJobInvalid emits a job invalid event. The message carries the
// file-level failure, e.g. missing headers.
func (e *Emitter) EmitJobInvalid(ctx context.Context, job *models.Job, message string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitJobInvalid")
	defer span.End()

	return e.emitJob(ctx, string(EventTypeJobInvalid), job, message)
}

// EmitJobFailed emits a job failed event
func (e *Emitter) EmitJobFailed(ctx context.Context, job *models.Job, message string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitJobFailed")
	defer span.End()

	return e.emitJob(ctx, string(EventTypeJobFailed), job, message)
}
