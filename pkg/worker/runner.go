// Package worker executes the job DAG: a dispatcher claims ready jobs under a
// distributed lock and a bounded pool runs them. Handlers own the terminal
// transition of every job they touch; a handler error marks the job failed
// rather than bubbling up.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/config"
	jobrepo "github.com/Ramsey-B/fern/internal/repositories/job"
	"github.com/Ramsey-B/fern/internal/repositories/submission"
	"github.com/Ramsey-B/fern/pkg/artifacts"
	"github.com/Ramsey-B/fern/pkg/evaluator"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/jobgraph"
	"github.com/Ramsey-B/fern/pkg/materializer"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/parser"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Runner executes one claimed job to a terminal state
type Runner struct {
	logger         ectologger.Logger
	config         *config.Config
	submissionRepo *submission.Repository
	jobRepo        *jobrepo.Repository
	builder        *jobgraph.Builder
	parser         *parser.Parser
	evaluator      *evaluator.Evaluator
	materializer   *materializer.Materializer
	store          *artifacts.Store
	emitter        *events.Emitter
	generation     GenerationClient
}

// NewRunner creates a new job runner
func NewRunner(
	logger ectologger.Logger,
	cfg *config.Config,
	submissionRepo *submission.Repository,
	jobRepo *jobrepo.Repository,
	builder *jobgraph.Builder,
	p *parser.Parser,
	eval *evaluator.Evaluator,
	mat *materializer.Materializer,
	store *artifacts.Store,
	emitter *events.Emitter,
	generation GenerationClient,
) *Runner {
	return &Runner{
		logger:         logger,
		config:         cfg,
		submissionRepo: submissionRepo,
		jobRepo:        jobRepo,
		builder:        builder,
		parser:         p,
		evaluator:      eval,
		materializer:   mat,
		store:          store,
		emitter:        emitter,
		generation:     generation,
	}
}

// Run executes a job the dispatcher already moved to running. Never returns
// an error to the pool: every outcome is recorded on the job itself.
func (r *Runner) Run(ctx context.Context, job models.Job) {
	ctx, span := tracing.StartSpan(ctx, "worker.Runner.Run")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, r.config.JobTimeout)
	defer cancel()

	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()
	start := time.Now()

	if err := r.emitter.EmitJobStarted(ctx, &job); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("Failed to emit job started event")
	}

	var err error
	switch job.JobType {
	case models.JobTypeRecordValidation:
		err = r.runRecordValidation(ctx, job)
	case models.JobTypeCrossFileValidation:
		err = r.runCrossFile(ctx, job)
	case models.JobTypeFileGeneration:
		err = r.runGeneration(ctx, job)
	default:
		err = fmt.Errorf("unknown job type %s", job.JobType)
	}

	if err != nil {
		r.fail(ctx, job, err)
		metrics.RecordJob(string(job.JobType), string(models.JobStatusFailed), time.Since(start).Seconds())
		return
	}

	current, getErr := r.jobRepo.Get(ctx, job.ID)
	status := models.JobStatusFinished
	if getErr == nil {
		status = current.Status
	}
	metrics.RecordJob(string(job.JobType), string(status), time.Since(start).Seconds())
}

// fail marks the job failed and emits the failure. Failed jobs keep their
// dependents waiting and are retryable through a restart.
func (r *Runner) fail(ctx context.Context, job models.Job, cause error) {
	r.logger.WithContext(ctx).WithError(cause).WithFields(map[string]any{
		"job_id":        job.ID,
		"submission_id": job.SubmissionID,
		"job_type":      job.JobType,
	}).Error("Job failed")

	if err := r.jobRepo.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": job.ID}).Error("Failed to mark job failed")
	}
	if err := r.emitter.EmitJobFailed(ctx, &job, cause.Error()); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("Failed to emit job failed event")
	}
}

// runRecordValidation downloads the staged upload, parses it, and evaluates
// every single-file rule for its file type
func (r *Runner) runRecordValidation(ctx context.Context, job models.Job) error {
	ctx, span := tracing.StartSpan(ctx, "worker.Runner.runRecordValidation")
	defer span.End()

	if job.FileType == nil {
		return fmt.Errorf("record validation job %s has no file type", job.ID)
	}
	if job.Filename == nil {
		return fmt.Errorf("record validation job %s has no uploaded file", job.ID)
	}

	sub, err := r.submissionRepo.Get(ctx, job.SubmissionID)
	if err != nil {
		return err
	}

	body, err := r.store.Download(ctx, *job.Filename)
	if err != nil {
		return err
	}
	defer body.Close()

	result, err := r.parser.Parse(ctx, job, *job.FileType, body)
	if err != nil {
		return err
	}

	if result.Invalid() {
		msg := headerErrorMessage(result)
		if err := r.jobRepo.MarkInvalid(ctx, job.ID, msg); err != nil {
			return err
		}
		if err := r.submissionRepo.SetPublishable(ctx, job.SubmissionID, false); err != nil {
			return err
		}
		if err := r.emitter.EmitJobInvalid(ctx, &job, msg); err != nil {
			r.logger.WithContext(ctx).WithError(err).Warn("Failed to emit job invalid event")
		}
		return nil
	}

	metrics.RowsStagedTotal.WithLabelValues(string(*job.FileType)).Add(float64(result.RowCount))

	violations, err := r.evaluator.EvaluateFile(ctx, *job.FileType, r.params(sub))
	if err != nil {
		return err
	}

	matResult, err := r.materializer.Materialize(ctx, job, *job.FileType, nil, violations)
	if err != nil {
		return err
	}
	metrics.RecordViolations(string(*job.FileType), string(models.SeverityFatal), matResult.NumErrors)
	metrics.RecordViolations(string(*job.FileType), string(models.SeverityWarning), matResult.NumWarnings)

	return r.finish(ctx, job, result.RowCount, matResult)
}

// runCrossFile evaluates the pairwise cross-file rules. Every pair's
// violations land in one report set under the crossfile pseudo file type.
func (r *Runner) runCrossFile(ctx context.Context, job models.Job) error {
	ctx, span := tracing.StartSpan(ctx, "worker.Runner.runCrossFile")
	defer span.End()

	sub, err := r.submissionRepo.Get(ctx, job.SubmissionID)
	if err != nil {
		return err
	}

	params := r.params(sub)
	var violations []models.Violation
	for _, pair := range models.CrossFilePairs {
		pairViolations, err := r.evaluator.EvaluateCrossFile(ctx, pair, params)
		if err != nil {
			return err
		}
		violations = append(violations, pairViolations...)
	}

	matResult, err := r.materializer.Materialize(ctx, job, models.FileTypeCrossFile, nil, violations)
	if err != nil {
		return err
	}
	metrics.RecordViolations(string(models.FileTypeCrossFile), string(models.SeverityFatal), matResult.NumErrors)
	metrics.RecordViolations(string(models.FileTypeCrossFile), string(models.SeverityWarning), matResult.NumWarnings)

	return r.finish(ctx, job, 0, matResult)
}

// runGeneration asks the external generation service for the job's D file.
// The generated file feeds the downstream cross-file job; regenerating after
// publication moves the submission to updated.
func (r *Runner) runGeneration(ctx context.Context, job models.Job) error {
	ctx, span := tracing.StartSpan(ctx, "worker.Runner.runGeneration")
	defer span.End()

	if job.FileType == nil {
		return fmt.Errorf("generation job %s has no file type", job.ID)
	}

	sub, err := r.submissionRepo.Get(ctx, job.SubmissionID)
	if err != nil {
		return err
	}

	url, err := r.generation.Generate(ctx, job, *sub)
	if err != nil {
		return err
	}

	if err := r.jobRepo.SetGeneratedURL(ctx, job.ID, url); err != nil {
		return err
	}
	if err := r.jobRepo.Finish(ctx, job.ID, 0, 0, 0); err != nil {
		return err
	}
	if _, err := r.builder.OnJobFinished(ctx, job); err != nil {
		return err
	}

	if sub.PublishStatus == models.PublishStatusPublished {
		if _, err := r.submissionRepo.UpdatePublishStatus(ctx, sub.ID, models.PublishStatusPublished, models.PublishStatusUpdated); err != nil {
			return err
		}
	}

	job.Status = models.JobStatusFinished
	if err := r.emitter.EmitJobFinished(ctx, &job); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("Failed to emit job finished event")
	}
	return nil
}

// finish completes a validation job, refreshes the submission's aggregate
// counts, and promotes newly unblocked jobs
func (r *Runner) finish(ctx context.Context, job models.Job, numRows int, matResult *materializer.Result) error {
	if err := r.jobRepo.Finish(ctx, job.ID, numRows, matResult.NumErrors, matResult.NumWarnings); err != nil {
		return err
	}
	if _, err := r.builder.OnJobFinished(ctx, job); err != nil {
		return err
	}
	if err := r.refreshSubmissionAggregates(ctx, job.SubmissionID); err != nil {
		return err
	}

	job.Status = models.JobStatusFinished
	job.NumberOfRows = numRows
	job.NumberOfErrors = matResult.NumErrors
	job.NumberOfWarnings = matResult.NumWarnings
	if err := r.emitter.EmitJobFinished(ctx, &job); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("Failed to emit job finished event")
	}
	return nil
}

// refreshSubmissionAggregates recomputes the submission's error and warning
// totals from its jobs and flips publishable once every validation finished
func (r *Runner) refreshSubmissionAggregates(ctx context.Context, submissionID string) error {
	jobs, err := r.jobRepo.ListBySubmission(ctx, submissionID)
	if err != nil {
		return err
	}

	var numErrors, numWarnings int
	for _, j := range jobs {
		if j.JobType == models.JobTypeFileUpload {
			continue
		}
		numErrors += j.NumberOfErrors
		numWarnings += j.NumberOfWarnings
	}

	if err := r.submissionRepo.UpdateErrorCounts(ctx, submissionID, numErrors, numWarnings); err != nil {
		return err
	}

	done, err := r.builder.AllValidationsFinished(ctx, submissionID)
	if err != nil {
		return err
	}
	return r.submissionRepo.SetPublishable(ctx, submissionID, done)
}

func (r *Runner) params(sub *models.Submission) evaluator.Params {
	return evaluator.Params{
		SubmissionID:       sub.ID,
		AgencyCode:         sub.AgencyCode,
		FiscalYear:         sub.FiscalYear,
		FiscalPeriod:       sub.FiscalPeriod,
		CorrectionCutoff:   r.config.FabsCorrectionCutoff,
		UnregisteredCutoff: r.config.UnregisteredAgencyCutoff,
	}
}

func headerErrorMessage(result *parser.Result) string {
	switch {
	case len(result.MissingHeaders) > 0 && len(result.DuplicatedHeaders) > 0:
		return fmt.Sprintf("file rejected: %d missing and %d duplicated headers", len(result.MissingHeaders), len(result.DuplicatedHeaders))
	case len(result.MissingHeaders) > 0:
		return fmt.Sprintf("file rejected: missing headers %v", result.MissingHeaders)
	default:
		return fmt.Sprintf("file rejected: duplicated headers %v", result.DuplicatedHeaders)
	}
}
