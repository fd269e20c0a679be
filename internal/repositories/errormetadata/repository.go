package errormetadata

import (
	"context"
	"net/http"
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
	"id", "job_id", "rule_id", "severity", "file_type", "target_file_type",
	"occurrence_count", "row_number_sample", "message", "created_at",
}

// Repository handles the per-(job, rule, severity) violation aggregates.
// Aggregates are recomputed wholesale on every evaluation, never patched.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new error metadata repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ReplaceForJob swaps the job's aggregates for a fresh set in one transaction
func (r *Repository) ReplaceForJob(ctx context.Context, jobID string, metadata []models.ErrorMetadata) error {
	ctx, span := tracing.StartSpan(ctx, "errormetadata.Repository.ReplaceForJob")
	defer span.End()

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": jobID}).Error("Failed to begin error metadata transaction")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to begin transaction")
	}
	defer tx.Rollback(txCtx)

	del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	del.DeleteFrom("error_metadata")
	del.Where(del.Equal("job_id", jobID))
	query, args := del.Build()
	if _, err := tx.ExecContext(txCtx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": jobID}).Error("Failed to clear error metadata")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear error metadata")
	}

	now := time.Now().UTC()
	for _, m := range metadata {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		m.JobID = jobID
		m.CreatedAt = now

		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto("error_metadata")
		ib.Cols(columns...)
		ib.Values(
			m.ID, m.JobID, m.RuleID, m.Severity, m.FileType, m.TargetFileType,
			m.OccurrenceCount, m.RowNumberSample, m.Message, m.CreatedAt,
		)
		query, args := ib.Build()
		if _, err := tx.ExecContext(txCtx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": jobID, "rule_id": m.RuleID}).Error("Failed to insert error metadata")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert error metadata")
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": jobID}).Error("Failed to commit error metadata")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit error metadata")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"job_id": jobID, "count": len(metadata)}).Info("Replaced error metadata for job")
	return nil
}

// ListByJob returns the job's aggregates in report order
func (r *Repository) ListByJob(ctx context.Context, jobID string) ([]models.ErrorMetadata, error) {
	ctx, span := tracing.StartSpan(ctx, "errormetadata.Repository.ListByJob")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("error_metadata")
	sb.Where(sb.Equal("job_id", jobID))
	sb.OrderBy("severity", "rule_id")

	query, args := sb.Build()
	var metadata []models.ErrorMetadata
	if err := r.db.SelectContext(ctx, &metadata, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": jobID}).Error("Failed to list error metadata")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list error metadata")
	}
	return metadata, nil
}

// SumForJobs totals errors and warnings across the given jobs, for the
// submission-level counts.
func (r *Repository) SumForJobs(ctx context.Context, jobIDs []string) (errors int, warnings int, err error) {
	ctx, span := tracing.StartSpan(ctx, "errormetadata.Repository.SumForJobs")
	defer span.End()

	if len(jobIDs) == 0 {
		return 0, 0, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"COALESCE(SUM(occurrence_count) FILTER (WHERE severity = 'fatal'), 0) AS errors",
		"COALESCE(SUM(occurrence_count) FILTER (WHERE severity = 'warning'), 0) AS warnings",
	)
	sb.From("error_metadata")
	sb.Where(sb.In("job_id", sqlbuilder.Flatten(jobIDs)...))

	query, args := sb.Build()
	var totals struct {
		Errors   int `db:"errors"`
		Warnings int `db:"warnings"`
	}
	if err := r.db.GetContext(ctx, &totals, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_ids": jobIDs}).Error("Failed to sum error metadata")
		return 0, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to sum error metadata")
	}
	return totals.Errors, totals.Warnings, nil
}
