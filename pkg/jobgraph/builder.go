package jobgraph

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	jobrepo "github.com/Ramsey-B/fern/internal/repositories/job"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// dabsUploadTypes are the agency-uploaded files of a DABS submission. D1 and
// D2 are generated, not uploaded.
var dabsUploadTypes = []models.FileType{
	models.FileTypeAppropriations,
	models.FileTypeObjectClass,
	models.FileTypeAwardFinancial,
}

var generatedTypes = []models.FileType{
	models.FileTypeD1,
	models.FileTypeD2,
}

// Builder constructs and maintains a submission's validation DAG. The DAG is
// fixed per submission kind; uploads and restarts move state through it, they
// never reshape it.
type Builder struct {
	logger  ectologger.Logger
	jobRepo *jobrepo.Repository
}

// NewBuilder creates a new job graph builder
func NewBuilder(logger ectologger.Logger, jobRepo *jobrepo.Repository) *Builder {
	return &Builder{
		logger:  logger,
		jobRepo: jobRepo,
	}
}

// BuildForSubmission creates a submission's full job set and dependency
// edges. For a DABS submission: per-file upload and validation jobs for A, B,
// and C, generation jobs for D1 and D2, and one cross-file validation job
// gated on every file-level result. For FABS: one upload and one validation
// job.
func (b *Builder) BuildForSubmission(ctx context.Context, sub models.Submission) ([]models.Job, error) {
	ctx, span := tracing.StartSpan(ctx, "jobgraph.Builder.BuildForSubmission")
	defer span.End()

	if sub.IsFABS {
		return b.buildFABS(ctx, sub)
	}
	return b.buildDABS(ctx, sub)
}

func (b *Builder) buildFABS(ctx context.Context, sub models.Submission) ([]models.Job, error) {
	fabs := models.FileTypeFABS

	upload, err := b.jobRepo.Create(ctx, models.Job{
		SubmissionID: sub.ID,
		JobType:      models.JobTypeFileUpload,
		FileType:     &fabs,
		Status:       models.JobStatusWaiting,
	})
	if err != nil {
		return nil, err
	}

	validation, err := b.jobRepo.Create(ctx, models.Job{
		SubmissionID: sub.ID,
		JobType:      models.JobTypeRecordValidation,
		FileType:     &fabs,
		Status:       models.JobStatusWaiting,
	})
	if err != nil {
		return nil, err
	}

	graph := NewGraph()
	if err := graph.AddDependency(validation.ID, upload.ID); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := b.persistEdges(ctx, graph); err != nil {
		return nil, err
	}

	b.logger.WithContext(ctx).WithFields(map[string]any{"submission_id": sub.ID, "jobs": 2}).Info("Built FABS job graph")
	return []models.Job{*upload, *validation}, nil
}

func (b *Builder) buildDABS(ctx context.Context, sub models.Submission) ([]models.Job, error) {
	graph := NewGraph()
	var jobs []models.Job
	validationIDs := make([]string, 0, len(dabsUploadTypes)+len(generatedTypes))

	for _, ft := range dabsUploadTypes {
		fileType := ft

		upload, err := b.jobRepo.Create(ctx, models.Job{
			SubmissionID: sub.ID,
			JobType:      models.JobTypeFileUpload,
			FileType:     &fileType,
			Status:       models.JobStatusWaiting,
		})
		if err != nil {
			return nil, err
		}

		validation, err := b.jobRepo.Create(ctx, models.Job{
			SubmissionID: sub.ID,
			JobType:      models.JobTypeRecordValidation,
			FileType:     &fileType,
			Status:       models.JobStatusWaiting,
		})
		if err != nil {
			return nil, err
		}

		if err := graph.AddDependency(validation.ID, upload.ID); err != nil {
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		jobs = append(jobs, *upload, *validation)
		validationIDs = append(validationIDs, validation.ID)
	}

	for _, ft := range generatedTypes {
		fileType := ft

		generation, err := b.jobRepo.Create(ctx, models.Job{
			SubmissionID: sub.ID,
			JobType:      models.JobTypeFileGeneration,
			FileType:     &fileType,
			Status:       models.JobStatusWaiting,
			StartDate:    &sub.ReportingStart,
			EndDate:      &sub.ReportingEnd,
		})
		if err != nil {
			return nil, err
		}

		jobs = append(jobs, *generation)
		validationIDs = append(validationIDs, generation.ID)
	}

	crossFile, err := b.jobRepo.Create(ctx, models.Job{
		SubmissionID: sub.ID,
		JobType:      models.JobTypeCrossFileValidation,
		Status:       models.JobStatusWaiting,
	})
	if err != nil {
		return nil, err
	}
	jobs = append(jobs, *crossFile)

	for _, id := range validationIDs {
		if err := graph.AddDependency(crossFile.ID, id); err != nil {
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	if err := b.persistEdges(ctx, graph); err != nil {
		return nil, err
	}

	b.logger.WithContext(ctx).WithFields(map[string]any{"submission_id": sub.ID, "jobs": len(jobs)}).Info("Built DABS job graph")
	return jobs, nil
}

func (b *Builder) persistEdges(ctx context.Context, graph *Graph) error {
	for _, edge := range graph.Edges() {
		if err := b.jobRepo.AddDependency(ctx, edge[0], edge[1]); err != nil {
			return err
		}
	}
	return nil
}

// RestartCascade resets a job and everything downstream of it to waiting,
// then promotes whatever is immediately runnable. The restarted job's own
// prerequisites keep their finished results.
func (b *Builder) RestartCascade(ctx context.Context, job models.Job) error {
	ctx, span := tracing.StartSpan(ctx, "jobgraph.Builder.RestartCascade")
	defer span.End()

	dependents, err := b.jobRepo.TransitiveDependents(ctx, job.ID)
	if err != nil {
		return err
	}

	if err := b.jobRepo.ResetForRestart(ctx, append(dependents, job.ID)); err != nil {
		return err
	}

	if _, err := b.jobRepo.MarkReady(ctx, job.SubmissionID); err != nil {
		return err
	}

	b.logger.WithContext(ctx).WithFields(map[string]any{"job_id": job.ID, "submission_id": job.SubmissionID, "dependents": len(dependents)}).Info("Restarted job cascade")
	return nil
}

// OnJobFinished promotes newly unblocked jobs after a job completes
func (b *Builder) OnJobFinished(ctx context.Context, job models.Job) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "jobgraph.Builder.OnJobFinished")
	defer span.End()

	return b.jobRepo.MarkReady(ctx, job.SubmissionID)
}

// AllValidationsFinished reports whether every validation and generation job
// of the submission reached finished. Invalid or failed jobs block
// publication, so they report false.
func (b *Builder) AllValidationsFinished(ctx context.Context, submissionID string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "jobgraph.Builder.AllValidationsFinished")
	defer span.End()

	jobs, err := b.jobRepo.ListBySubmission(ctx, submissionID)
	if err != nil {
		return false, err
	}

	for _, j := range jobs {
		if j.JobType == models.JobTypeFileUpload {
			continue
		}
		if j.Status != models.JobStatusFinished {
			return false, nil
		}
	}
	return true, nil
}
