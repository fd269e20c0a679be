package submission

import (
	"context"
	"fmt"
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
	"id", "agency_code", "sub_tier_code", "fiscal_year", "fiscal_period",
	"is_quarterly", "reporting_start", "reporting_end", "is_fabs",
	"publish_status", "publishable", "number_of_errors", "number_of_warnings",
	"certifying_user_id", "created_by", "created_at", "updated_at",
}

// Repository handles submission persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new submission repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new submission
func (r *Repository) Create(ctx context.Context, sub models.Submission) (*models.Submission, error) {
	ctx, span := tracing.StartSpan(ctx, "submission.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	sub.CreatedAt = now
	sub.UpdatedAt = now
	if sub.PublishStatus == "" {
		sub.PublishStatus = models.PublishStatusUnpublished
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("submissions")
	ib.Cols(columns...)
	ib.Values(
		sub.ID, sub.AgencyCode, sub.SubTierCode, sub.FiscalYear, sub.FiscalPeriod,
		sub.IsQuarterly, sub.ReportingStart, sub.ReportingEnd, sub.IsFABS,
		sub.PublishStatus, sub.Publishable, sub.NumberOfErrors, sub.NumberOfWarnings,
		sub.CertifyingUserID, sub.CreatedBy, sub.CreatedAt, sub.UpdatedAt,
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"agency_code": sub.AgencyCode, "fiscal_year": sub.FiscalYear, "fiscal_period": sub.FiscalPeriod}).Error("Failed to create submission")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create submission")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": sub.ID}).Info("Created submission")
	return &sub, nil
}

// Get retrieves a submission by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Submission, error) {
	ctx, span := tracing.StartSpan(ctx, "submission.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("submissions")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "submission %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to get submission")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get submission")
	}
	return &sub, nil
}

// FindPublishedInWindow returns the submission already occupying the reporting
// window (agency_code, fiscal_year, fiscal_period), if any. Submissions in
// "published" or "updated" both occupy their window.
func (r *Repository) FindPublishedInWindow(ctx context.Context, agencyCode string, fiscalYear, fiscalPeriod int, isFABS bool) (*models.Submission, error) {
	ctx, span := tracing.StartSpan(ctx, "submission.Repository.FindPublishedInWindow")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("submissions")
	sb.Where(
		sb.Equal("agency_code", agencyCode),
		sb.Equal("fiscal_year", fiscalYear),
		sb.Equal("fiscal_period", fiscalPeriod),
		sb.Equal("is_fabs", isFABS),
		sb.In("publish_status", string(models.PublishStatusPublished), string(models.PublishStatusUpdated)),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"agency_code": agencyCode, "fiscal_year": fiscalYear, "fiscal_period": fiscalPeriod}).Error("Failed to find published submission in window")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find submission")
	}
	return &sub, nil
}

// List retrieves submissions for an agency with pagination
func (r *Repository) List(ctx context.Context, agencyCode string, isFABS *bool, page, pageSize int) (*models.SubmissionListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "submission.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("submissions")
	countWhere := []string{countSb.Equal("agency_code", agencyCode)}
	if isFABS != nil {
		countWhere = append(countWhere, countSb.Equal("is_fabs", *isFABS))
	}
	countSb.Where(countWhere...)

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"agency_code": agencyCode}).Error("Failed to count submissions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count submissions")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("submissions")
	where := []string{sb.Equal("agency_code", agencyCode)}
	if isFABS != nil {
		where = append(where, sb.Equal("is_fabs", *isFABS))
	}
	sb.Where(where...)
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var items []models.Submission
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"agency_code": agencyCode, "page": page, "page_size": pageSize}).Error("Failed to list submissions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list submissions")
	}

	return &models.SubmissionListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// UpdatePublishStatus transitions publish_status with compare-and-swap
// semantics. Returns false when the stored status no longer matches from,
// meaning a concurrent publisher won.
func (r *Repository) UpdatePublishStatus(ctx context.Context, id string, from, to models.PublishStatus) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "submission.Repository.UpdatePublishStatus")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("submissions")
	ub.Set(ub.Assign("publish_status", to), ub.Assign("updated_at", time.Now().UTC()))
	ub.Where(ub.Equal("id", id), ub.Equal("publish_status", from))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id, "from": from, "to": to}).Error("Failed to update publish status")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update publish status")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return false, nil
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id, "from": from, "to": to}).Info("Updated submission publish status")
	return true, nil
}

// SetPublishable flips the publishable flag derived from validation results
func (r *Repository) SetPublishable(ctx context.Context, id string, publishable bool) error {
	ctx, span := tracing.StartSpan(ctx, "submission.Repository.SetPublishable")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("submissions")
	ub.Set(ub.Assign("publishable", publishable), ub.Assign("updated_at", time.Now().UTC()))
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id, "publishable": publishable}).Error("Failed to set publishable")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set publishable")
	}
	return nil
}

// UpdateErrorCounts stores the submission-level error and warning totals
func (r *Repository) UpdateErrorCounts(ctx context.Context, id string, numErrors, numWarnings int) error {
	ctx, span := tracing.StartSpan(ctx, "submission.Repository.UpdateErrorCounts")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("submissions")
	ub.Set(
		ub.Assign("number_of_errors", numErrors),
		ub.Assign("number_of_warnings", numWarnings),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to update error counts")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update error counts")
	}
	return nil
}

// SetCertifyingUser records the user who certified the publication
func (r *Repository) SetCertifyingUser(ctx context.Context, id, userID string) error {
	ctx, span := tracing.StartSpan(ctx, "submission.Repository.SetCertifyingUser")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("submissions")
	ub.Set(ub.Assign("certifying_user_id", userID), ub.Assign("updated_at", time.Now().UTC()))
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id, "user_id": userID}).Error("Failed to set certifying user")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set certifying user")
	}
	return nil
}

// CreatePublishHistory records one publication event. Runs on the caller's
// transaction so the history row commits with the snapshot it describes.
func (r *Repository) CreatePublishHistory(ctx context.Context, history models.PublishHistory) (*models.PublishHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "submission.Repository.CreatePublishHistory")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to join transaction")
	}

	if history.ID == "" {
		history.ID = uuid.New().String()
	}
	history.CreatedAt = time.Now().UTC()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("publish_history")
	ib.Cols("id", "submission_id", "published_by", "fiscal_year", "fiscal_period", "certified_path", "created_at")
	ib.Values(history.ID, history.SubmissionID, history.PublishedBy, history.FiscalYear, history.FiscalPeriod, history.CertifiedPath, history.CreatedAt)

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"submission_id": history.SubmissionID}).Error("Failed to create publish history")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create publish history")
	}

	return &history, nil
}

// DeletePublishHistory removes a publication record. Only the compensation
// path uses it, after artifact certification fails post-commit. Runs on the
// caller's transaction.
func (r *Repository) DeletePublishHistory(ctx context.Context, historyID string) error {
	ctx, span := tracing.StartSpan(ctx, "submission.Repository.DeletePublishHistory")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to join transaction")
	}

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("publish_history")
	db.Where(db.Equal("id", historyID))

	query, args := db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": historyID}).Error("Failed to delete publish history")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete publish history")
	}
	return nil
}

// ListPublishHistory returns the publication events for a submission, newest first
func (r *Repository) ListPublishHistory(ctx context.Context, submissionID string) ([]models.PublishHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "submission.Repository.ListPublishHistory")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "submission_id", "published_by", "fiscal_year", "fiscal_period", "certified_path", "created_at")
	sb.From("publish_history")
	sb.Where(sb.Equal("submission_id", submissionID))
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var history []models.PublishHistory
	if err := r.db.SelectContext(ctx, &history, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"submission_id": submissionID}).Error("Failed to list publish history")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list publish history")
	}
	return history, nil
}

// Delete removes a submission and everything hanging off it. Only unpublished
// submissions can be deleted.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "submission.Repository.Delete")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("submissions")
	db.Where(
		db.Equal("id", id),
		db.Equal("publish_status", models.PublishStatusUnpublished),
	)

	query, args := db.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to delete submission")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete submission")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("submission %s is published or does not exist", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted submission")
	return nil
}
