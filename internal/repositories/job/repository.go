package job

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var columns = []string{
	"id", "submission_id", "job_type", "file_type", "status",
	"filename", "original_filename", "number_of_rows", "file_size",
	"number_of_errors", "number_of_warnings", "start_date", "end_date",
	"generated_url", "error_message", "created_at", "updated_at",
}

// Repository handles job and job dependency persistence. The jobs table is
// also the work queue: dispatchers claim ready jobs with SKIP LOCKED so a
// crashed worker's claim expires with its transaction.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new job repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new job
func (r *Repository) Create(ctx context.Context, j models.Job) (*models.Job, error) {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	j.CreatedAt = now
	j.UpdatedAt = now
	if j.Status == "" {
		j.Status = models.JobStatusWaiting
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("jobs")
	ib.Cols(columns...)
	ib.Values(
		j.ID, j.SubmissionID, j.JobType, j.FileType, j.Status,
		j.Filename, j.OriginalFilename, j.NumberOfRows, j.FileSize,
		j.NumberOfErrors, j.NumberOfWarnings, j.StartDate, j.EndDate,
		j.GeneratedURL, j.ErrorMessage, j.CreatedAt, j.UpdatedAt,
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"submission_id": j.SubmissionID, "job_type": j.JobType, "file_type": j.FileType}).Error("Failed to create job")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create job")
	}

	return &j, nil
}

// Get retrieves a job by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Job, error) {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("jobs")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var j models.Job
	if err := r.db.GetContext(ctx, &j, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "job %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to get job")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get job")
	}
	return &j, nil
}

// ListBySubmission returns all jobs for a submission
func (r *Repository) ListBySubmission(ctx context.Context, submissionID string) ([]models.Job, error) {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.ListBySubmission")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("jobs")
	sb.Where(sb.Equal("submission_id", submissionID))
	sb.OrderBy("created_at")

	query, args := sb.Build()
	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"submission_id": submissionID}).Error("Failed to list jobs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list jobs")
	}
	return jobs, nil
}

// GetBySlot retrieves the job occupying (submission_id, job_type, file_type).
// Each slot holds at most one job; re-uploads reuse it.
func (r *Repository) GetBySlot(ctx context.Context, submissionID string, jobType models.JobType, fileType *models.FileType) (*models.Job, error) {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.GetBySlot")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("jobs")
	where := []string{
		sb.Equal("submission_id", submissionID),
		sb.Equal("job_type", jobType),
	}
	if fileType != nil {
		where = append(where, sb.Equal("file_type", *fileType))
	} else {
		where = append(where, sb.IsNull("file_type"))
	}
	sb.Where(where...)
	sb.Limit(1)

	query, args := sb.Build()
	var j models.Job
	if err := r.db.GetContext(ctx, &j, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"submission_id": submissionID, "job_type": jobType, "file_type": fileType}).Error("Failed to get job by slot")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get job")
	}
	return &j, nil
}

// TransitionStatus moves a job between states with compare-and-swap semantics.
// Returns false when the stored status no longer matches from.
func (r *Repository) TransitionStatus(ctx context.Context, id string, from, to models.JobStatus) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.TransitionStatus")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("jobs")
	ub.Set(ub.Assign("status", to), ub.Assign("updated_at", time.Now().UTC()))
	ub.Where(ub.Equal("id", id), ub.Equal("status", from))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id, "from": from, "to": to}).Error("Failed to transition job status")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to transition job status")
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// MarkFailed moves a job to failed and records the error message. Works from
// any non-terminal state so timeouts and panics both land here.
func (r *Repository) MarkFailed(ctx context.Context, id, message string) error {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.MarkFailed")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("jobs")
	ub.Set(
		ub.Assign("status", models.JobStatusFailed),
		ub.Assign("error_message", message),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.NotIn("status", string(models.JobStatusFinished), string(models.JobStatusInvalid)),
	)

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to mark job failed")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark job failed")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id, "message": message}).Warn("Marked job failed")
	return nil
}

// MarkInvalid moves a job to invalid. Used when the input file itself is
// unusable, e.g. missing headers.
func (r *Repository) MarkInvalid(ctx context.Context, id, message string) error {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.MarkInvalid")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("jobs")
	ub.Set(
		ub.Assign("status", models.JobStatusInvalid),
		ub.Assign("error_message", message),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to mark job invalid")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark job invalid")
	}
	return nil
}

// Finish moves a job to finished and stores its result counts
func (r *Repository) Finish(ctx context.Context, id string, numRows, numErrors, numWarnings int) error {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.Finish")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("jobs")
	ub.Set(
		ub.Assign("status", models.JobStatusFinished),
		ub.Assign("number_of_rows", numRows),
		ub.Assign("number_of_errors", numErrors),
		ub.Assign("number_of_warnings", numWarnings),
		ub.Assign("error_message", nil),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("id", id), ub.Equal("status", models.JobStatusRunning))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to finish job")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to finish job")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusConflict, "job %s is not running", id)
	}
	return nil
}

// MarkUploadFinished completes an upload job. Upload jobs never pass through
// running; the object store gateway does the work and this records the result.
func (r *Repository) MarkUploadFinished(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.MarkUploadFinished")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("jobs")
	ub.Set(
		ub.Assign("status", models.JobStatusFinished),
		ub.Assign("error_message", nil),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("id", id), ub.Equal("job_type", models.JobTypeFileUpload))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to finish upload job")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to finish upload job")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusConflict, "job %s is not an upload job", id)
	}
	return nil
}

// SetUpload records the uploaded file on a job
func (r *Repository) SetUpload(ctx context.Context, id, filename, originalFilename string, fileSize int64) error {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.SetUpload")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("jobs")
	ub.Set(
		ub.Assign("filename", filename),
		ub.Assign("original_filename", originalFilename),
		ub.Assign("file_size", fileSize),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id, "filename": filename}).Error("Failed to set upload on job")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set upload")
	}
	return nil
}

// SetGeneratedURL records the result location of a generation job
func (r *Repository) SetGeneratedURL(ctx context.Context, id, url string) error {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.SetGeneratedURL")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("jobs")
	ub.Set(ub.Assign("generated_url", url), ub.Assign("updated_at", time.Now().UTC()))
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to set generated URL")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set generated URL")
	}
	return nil
}

// AddDependency records the edge job -> prerequisite
func (r *Repository) AddDependency(ctx context.Context, jobID, prerequisiteID string) error {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.AddDependency")
	defer span.End()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("job_dependencies")
	ib.Cols("job_id", "prerequisite_id")
	ib.Values(jobID, prerequisiteID)

	query, args := ib.Build()
	query += " ON CONFLICT DO NOTHING"
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": jobID, "prerequisite_id": prerequisiteID}).Error("Failed to add job dependency")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to add job dependency")
	}
	return nil
}

// ListDependencies returns all dependency edges for a submission's jobs
func (r *Repository) ListDependencies(ctx context.Context, submissionID string) ([]models.JobDependency, error) {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.ListDependencies")
	defer span.End()

	query := `
		SELECT d.job_id, d.prerequisite_id
		FROM job_dependencies d
		JOIN jobs j ON j.id = d.job_id
		WHERE j.submission_id = $1
	`

	var deps []models.JobDependency
	if err := r.db.SelectContext(ctx, &deps, query, submissionID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"submission_id": submissionID}).Error("Failed to list job dependencies")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list job dependencies")
	}
	return deps, nil
}

// MarkReady promotes every waiting job of the submission whose prerequisites
// have all finished. Returns the promoted job IDs.
func (r *Repository) MarkReady(ctx context.Context, submissionID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.MarkReady")
	defer span.End()

	query := `
		UPDATE jobs j
		SET status = 'ready', updated_at = NOW()
		WHERE j.submission_id = $1
		  AND j.status = 'waiting'
		  AND NOT EXISTS (
			SELECT 1 FROM job_dependencies d
			JOIN jobs p ON p.id = d.prerequisite_id
			WHERE d.job_id = j.id
			  AND p.status <> 'finished'
		  )
		RETURNING j.id
	`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, submissionID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"submission_id": submissionID}).Error("Failed to mark jobs ready")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark jobs ready")
	}

	if len(ids) > 0 {
		r.logger.WithContext(ctx).WithFields(map[string]any{"submission_id": submissionID, "count": len(ids)}).Info("Promoted waiting jobs to ready")
	}
	return ids, nil
}

// ClaimReady atomically claims up to limit ready jobs and moves them to
// running. SKIP LOCKED keeps concurrent dispatchers from claiming the same
// rows.
func (r *Repository) ClaimReady(ctx context.Context, limit int) ([]models.Job, error) {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.ClaimReady")
	defer span.End()

	query := `
		UPDATE jobs
		SET status = 'running', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM jobs
			WHERE status = 'ready'
			ORDER BY updated_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + strings.Join(columns, ", ")

	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"limit": limit}).Error("Failed to claim ready jobs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to claim ready jobs")
	}
	return jobs, nil
}

// TransitiveDependents returns the IDs of every job reachable from the given
// job along dependency edges, i.e. everything whose result is stale once the
// given job restarts.
func (r *Repository) TransitiveDependents(ctx context.Context, jobID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.TransitiveDependents")
	defer span.End()

	query := `
		WITH RECURSIVE dependents AS (
			SELECT d.job_id
			FROM job_dependencies d
			WHERE d.prerequisite_id = $1
			UNION
			SELECT d.job_id
			FROM job_dependencies d
			JOIN dependents dep ON dep.job_id = d.prerequisite_id
		)
		SELECT job_id FROM dependents
	`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, jobID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": jobID}).Error("Failed to resolve transitive dependents")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve dependents")
	}
	return ids, nil
}

// ResetForRestart puts the given jobs back to waiting and clears their prior
// results. The next MarkReady pass promotes whichever have no unfinished
// prerequisites.
func (r *Repository) ResetForRestart(ctx context.Context, jobIDs []string) error {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.ResetForRestart")
	defer span.End()

	if len(jobIDs) == 0 {
		return nil
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("jobs")
	ub.Set(
		ub.Assign("status", models.JobStatusWaiting),
		ub.Assign("number_of_rows", 0),
		ub.Assign("number_of_errors", 0),
		ub.Assign("number_of_warnings", 0),
		ub.Assign("error_message", nil),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(ub.In("id", sqlbuilder.Flatten(jobIDs)...))

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_ids": jobIDs}).Error("Failed to reset jobs for restart")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to reset jobs")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(jobIDs)}).Info("Reset jobs for restart")
	return nil
}

// AddFileLevelError records a parse rejection that is not row-addressable
func (r *Repository) AddFileLevelError(ctx context.Context, jobID, errorType, detail string) error {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.AddFileLevelError")
	defer span.End()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("file_level_errors")
	ib.Cols("id", "job_id", "error_type", "detail", "created_at")
	ib.Values(uuid.New().String(), jobID, errorType, detail, time.Now().UTC())

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": jobID, "error_type": errorType}).Error("Failed to add file level error")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to add file level error")
	}
	return nil
}

// ListFileLevelErrors returns the file-level errors for a job
func (r *Repository) ListFileLevelErrors(ctx context.Context, jobID string) ([]models.FileLevelError, error) {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.ListFileLevelErrors")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "job_id", "error_type", "detail", "created_at")
	sb.From("file_level_errors")
	sb.Where(sb.Equal("job_id", jobID))
	sb.OrderBy("created_at")

	query, args := sb.Build()
	var errs []models.FileLevelError
	if err := r.db.SelectContext(ctx, &errs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": jobID}).Error("Failed to list file level errors")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list file level errors")
	}
	return errs, nil
}

// ClearFileLevelErrors removes prior file-level errors before a re-parse
func (r *Repository) ClearFileLevelErrors(ctx context.Context, jobID string) error {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.ClearFileLevelErrors")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("file_level_errors")
	db.Where(db.Equal("job_id", jobID))

	query, args := db.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": jobID}).Error("Failed to clear file level errors")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear file level errors")
	}
	return nil
}
