package published

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Repository handles the published snapshot tables. Both tables are
// insert-only: corrections deactivate prior rows, nothing updates historical
// amounts in place.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new published data repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// InsertFABS appends published FABS rows. Runs on the caller's transaction:
// publication owns commit and rollback.
func (r *Repository) InsertFABS(ctx context.Context, rows []models.PublishedFABSRow) error {
	ctx, span := tracing.StartSpan(ctx, "published.Repository.InsertFABS")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to join transaction")
	}

	if len(rows) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.New().String()
		}
		rows[i].CreatedAt = now
		if rows[i].ModifiedAt.IsZero() {
			rows[i].ModifiedAt = now
		}
	}

	query := `
		INSERT INTO published_fabs (
			id, submission_id, publish_history_id, unique_award_key,
			awarding_sub_tier_agency_c, fain, uri, award_modification_amendme,
			cfda_number, action_date, correction_delete_indicatr,
			federal_action_obligation, total_funding_amount, is_active,
			modified_at, created_at
		) VALUES (
			:id, :submission_id, :publish_history_id, :unique_award_key,
			:awarding_sub_tier_agency_c, :fain, :uri, :award_modification_amendme,
			:cfda_number, :action_date, :correction_delete_indicatr,
			:federal_action_obligation, :total_funding_amount, :is_active,
			:modified_at, :created_at
		)
	`

	const chunkSize = 500
	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))
		if _, err := tx.NamedExecContext(ctx, query, rows[start:end]); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"count": len(rows)}).Error("Failed to insert published FABS rows")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert published FABS rows")
		}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(rows)}).Info("Inserted published FABS rows")
	return nil
}

// DeactivateFABSKeys flips is_active off for the active rows with the given
// unique award keys. Called before inserting a correction or delete so exactly
// one active row exists per key. Runs on the caller's transaction.
func (r *Repository) DeactivateFABSKeys(ctx context.Context, keys []string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "published.Repository.DeactivateFABSKeys")
	defer span.End()

	if len(keys) == 0 {
		return 0, nil
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to join transaction")
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("published_fabs")
	ub.Set(ub.Assign("is_active", false), ub.Assign("modified_at", time.Now().UTC()))
	ub.Where(
		ub.In("unique_award_key", sqlbuilder.Flatten(keys)...),
		ub.Equal("is_active", true),
	)

	query, args := ub.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"keys": len(keys)}).Error("Failed to deactivate published FABS rows")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to deactivate published FABS rows")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// FindActiveFABSKeys returns which of the given unique award keys currently
// have an active published row. Used by the pre-publish duplicate check.
func (r *Repository) FindActiveFABSKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	ctx, span := tracing.StartSpan(ctx, "published.Repository.FindActiveFABSKeys")
	defer span.End()

	found := map[string]bool{}
	if len(keys) == 0 {
		return found, nil
	}

	const chunkSize = 1000
	for start := 0; start < len(keys); start += chunkSize {
		end := min(start+chunkSize, len(keys))

		sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
		sb.Select("unique_award_key")
		sb.From("published_fabs")
		sb.Where(
			sb.In("unique_award_key", sqlbuilder.Flatten(keys[start:end])...),
			sb.Equal("is_active", true),
		)

		query, args := sb.Build()
		var chunk []string
		if err := r.db.SelectContext(ctx, &chunk, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"keys": len(keys)}).Error("Failed to find active published FABS keys")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find active keys")
		}
		for _, k := range chunk {
			found[k] = true
		}
	}
	return found, nil
}

// InsertAwardFinancial appends published C-file snapshot rows. Runs on the
// caller's transaction.
func (r *Repository) InsertAwardFinancial(ctx context.Context, rows []models.PublishedAwardFinancialRow) error {
	ctx, span := tracing.StartSpan(ctx, "published.Repository.InsertAwardFinancial")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to join transaction")
	}

	if len(rows) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.New().String()
		}
		rows[i].CreatedAt = now
	}

	query := `
		INSERT INTO published_award_financial (
			id, submission_id, publish_history_id, agency_code, fiscal_year,
			fiscal_period, display_tas, object_class, program_activity_reporting_key,
			by_direct_reimbursable_fun, disaster_emergency_fund_code,
			prior_year_adjustment, piid, fain, uri, transaction_obligated_amou,
			gross_outlay_amount_by_awa_cpe, created_at
		) VALUES (
			:id, :submission_id, :publish_history_id, :agency_code, :fiscal_year,
			:fiscal_period, :display_tas, :object_class, :program_activity_reporting_key,
			:by_direct_reimbursable_fun, :disaster_emergency_fund_code,
			:prior_year_adjustment, :piid, :fain, :uri, :transaction_obligated_amou,
			:gross_outlay_amount_by_awa_cpe, :created_at
		)
	`

	const chunkSize = 500
	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))
		if _, err := tx.NamedExecContext(ctx, query, rows[start:end]); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"count": len(rows)}).Error("Failed to insert published award financial rows")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert published award financial rows")
		}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(rows)}).Info("Inserted published award financial rows")
	return nil
}

// ListFABSForHistory returns the snapshot rows written by one publication,
// ordered for deterministic restore.
func (r *Repository) ListFABSForHistory(ctx context.Context, submissionID, publishHistoryID string) ([]models.PublishedFABSRow, error) {
	ctx, span := tracing.StartSpan(ctx, "published.Repository.ListFABSForHistory")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*")
	sb.From("published_fabs")
	sb.Where(
		sb.Equal("submission_id", submissionID),
		sb.Equal("publish_history_id", publishHistoryID),
	)
	sb.OrderBy("created_at", "id")

	query, args := sb.Build()
	var rows []models.PublishedFABSRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"submission_id": submissionID}).Error("Failed to list published FABS rows")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list published FABS rows")
	}
	return rows, nil
}

// ListAwardFinancialForHistory returns the C-file snapshot rows written by one
// publication.
func (r *Repository) ListAwardFinancialForHistory(ctx context.Context, submissionID, publishHistoryID string) ([]models.PublishedAwardFinancialRow, error) {
	ctx, span := tracing.StartSpan(ctx, "published.Repository.ListAwardFinancialForHistory")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*")
	sb.From("published_award_financial")
	sb.Where(
		sb.Equal("submission_id", submissionID),
		sb.Equal("publish_history_id", publishHistoryID),
	)
	sb.OrderBy("created_at", "id")

	query, args := sb.Build()
	var rows []models.PublishedAwardFinancialRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"submission_id": submissionID}).Error("Failed to list published award financial rows")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list published award financial rows")
	}
	return rows, nil
}

// DeleteForHistory removes the snapshot rows one publication wrote. Only the
// compensation path uses it, to back out a committed publication whose
// artifacts failed to certify. Runs on the caller's transaction.
func (r *Repository) DeleteForHistory(ctx context.Context, submissionID, publishHistoryID string) error {
	ctx, span := tracing.StartSpan(ctx, "published.Repository.DeleteForHistory")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to join transaction")
	}

	for _, table := range []string{"published_fabs", "published_award_financial"} {
		db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
		db.DeleteFrom(table)
		db.Where(
			db.Equal("submission_id", submissionID),
			db.Equal("publish_history_id", publishHistoryID),
		)

		query, args := db.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"submission_id": submissionID, "table": table}).Error("Failed to delete published rows")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete published rows")
		}
	}
	return nil
}

// ReactivateFABSForKeys turns the newest inactive row back on for each key
// that lost its active row to a revert. Runs on the caller's transaction.
func (r *Repository) ReactivateFABSForKeys(ctx context.Context, keys []string) error {
	ctx, span := tracing.StartSpan(ctx, "published.Repository.ReactivateFABSForKeys")
	defer span.End()

	if len(keys) == 0 {
		return nil
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to join transaction")
	}

	query := `
		UPDATE published_fabs p
		SET is_active = TRUE, modified_at = NOW()
		WHERE p.unique_award_key = ANY($1)
		  AND p.id = (
			SELECT id FROM published_fabs
			WHERE unique_award_key = p.unique_award_key
			ORDER BY created_at DESC
			LIMIT 1
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM published_fabs a
			WHERE a.unique_award_key = p.unique_award_key AND a.is_active
		  )
	`

	if _, err := tx.ExecContext(ctx, query, pq.Array(keys)); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"keys": len(keys)}).Error("Failed to reactivate published FABS rows")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to reactivate published FABS rows")
	}
	return nil
}
