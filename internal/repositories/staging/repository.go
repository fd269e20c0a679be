package staging

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// stagingTables maps each file type to its staging table. D1 and D2 rows are
// generated, not uploaded, but stage the same way.
var stagingTables = map[models.FileType]string{
	models.FileTypeAppropriations: "staging_appropriations",
	models.FileTypeObjectClass:    "staging_object_class",
	models.FileTypeAwardFinancial: "staging_award_financial",
	models.FileTypeD1:             "staging_award_procurement",
	models.FileTypeD2:             "staging_award",
	models.FileTypeFABS:           "staging_fabs",
}

// Repository handles staged row persistence. Inserts are batched; a re-upload
// replaces the submission's prior rows for that file type wholesale.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new staging repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// DeleteForSubmission removes every staged row of the given file type for the
// submission. Called before re-staging on upload or regeneration.
func (r *Repository) DeleteForSubmission(ctx context.Context, submissionID string, fileType models.FileType) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "staging.Repository.DeleteForSubmission")
	defer span.End()

	table, ok := stagingTables[fileType]
	if !ok {
		return 0, httperror.NewHTTPErrorf(http.StatusBadRequest, "file type %s has no staging table", fileType)
	}

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(db.Equal("submission_id", submissionID))

	query, args := db.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"submission_id": submissionID, "file_type": fileType}).Error("Failed to delete staged rows")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete staged rows")
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		r.logger.WithContext(ctx).WithFields(map[string]any{"submission_id": submissionID, "file_type": fileType, "count": rows}).Info("Deleted staged rows")
	}
	return rows, nil
}

// CountForSubmission returns the staged row count for a file type
func (r *Repository) CountForSubmission(ctx context.Context, submissionID string, fileType models.FileType) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "staging.Repository.CountForSubmission")
	defer span.End()

	table, ok := stagingTables[fileType]
	if !ok {
		return 0, httperror.NewHTTPErrorf(http.StatusBadRequest, "file type %s has no staging table", fileType)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(table)
	sb.Where(sb.Equal("submission_id", submissionID))

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"submission_id": submissionID, "file_type": fileType}).Error("Failed to count staged rows")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count staged rows")
	}
	return count, nil
}

// InsertAppropriations bulk inserts staged A rows
func (r *Repository) InsertAppropriations(ctx context.Context, rows []models.AppropriationRow) error {
	ctx, span := tracing.StartSpan(ctx, "staging.Repository.InsertAppropriations")
	defer span.End()

	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO staging_appropriations (
			id, submission_id, job_id, row_number, display_tas,
			allocation_transfer_agency, agency_identifier, beginning_period_of_availa,
			ending_period_of_availabil, availability_type_code, main_account_code,
			sub_account_code, budget_authority_unobligat_fyb, status_of_budgetary_resour_cpe,
			gross_outlay_amount_by_tas_cpe, obligations_incurred_total_cpe,
			adjustments_to_unobligated_cpe, borrowing_authority_amount_cpe,
			contract_authority_amount_cpe, other_budgetary_resources_cpe,
			budget_authority_appropria_cpe, unobligated_balance_cpe, created_at
		) VALUES (
			:id, :submission_id, :job_id, :row_number, :display_tas,
			:allocation_transfer_agency, :agency_identifier, :beginning_period_of_availa,
			:ending_period_of_availabil, :availability_type_code, :main_account_code,
			:sub_account_code, :budget_authority_unobligat_fyb, :status_of_budgetary_resour_cpe,
			:gross_outlay_amount_by_tas_cpe, :obligations_incurred_total_cpe,
			:adjustments_to_unobligated_cpe, :borrowing_authority_amount_cpe,
			:contract_authority_amount_cpe, :other_budgetary_resources_cpe,
			:budget_authority_appropria_cpe, :unobligated_balance_cpe, :created_at
		)
	`

	return r.namedInsert(ctx, query, rows, models.FileTypeAppropriations)
}

// InsertObjectClass bulk inserts staged B rows
func (r *Repository) InsertObjectClass(ctx context.Context, rows []models.ObjectClassRow) error {
	ctx, span := tracing.StartSpan(ctx, "staging.Repository.InsertObjectClass")
	defer span.End()

	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO staging_object_class (
			id, submission_id, job_id, row_number, display_tas, object_class,
			program_activity_code, program_activity_name, program_activity_reporting_key,
			by_direct_reimbursable_fun, disaster_emergency_fund_code, prior_year_adjustment,
			gross_outlay_amount_by_pro_cpe, gross_outlays_delivered_or_cpe,
			gross_outlays_undelivered_fyb, obligations_incurred_by_pr_cpe,
			obligations_delivered_orde_cpe, obligations_undelivered_or_cpe,
			deobligations_recov_by_pro_cpe, created_at
		) VALUES (
			:id, :submission_id, :job_id, :row_number, :display_tas, :object_class,
			:program_activity_code, :program_activity_name, :program_activity_reporting_key,
			:by_direct_reimbursable_fun, :disaster_emergency_fund_code, :prior_year_adjustment,
			:gross_outlay_amount_by_pro_cpe, :gross_outlays_delivered_or_cpe,
			:gross_outlays_undelivered_fyb, :obligations_incurred_by_pr_cpe,
			:obligations_delivered_orde_cpe, :obligations_undelivered_or_cpe,
			:deobligations_recov_by_pro_cpe, :created_at
		)
	`

	return r.namedInsert(ctx, query, rows, models.FileTypeObjectClass)
}

// InsertAwardFinancial bulk inserts staged C rows
func (r *Repository) InsertAwardFinancial(ctx context.Context, rows []models.AwardFinancialRow) error {
	ctx, span := tracing.StartSpan(ctx, "staging.Repository.InsertAwardFinancial")
	defer span.End()

	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO staging_award_financial (
			id, submission_id, job_id, row_number, display_tas, piid, fain, uri,
			object_class, program_activity_code, program_activity_reporting_key,
			by_direct_reimbursable_fun, disaster_emergency_fund_code, prior_year_adjustment,
			transaction_obligated_amou, gross_outlay_amount_by_awa_fyb,
			gross_outlay_amount_by_awa_cpe, created_at
		) VALUES (
			:id, :submission_id, :job_id, :row_number, :display_tas, :piid, :fain, :uri,
			:object_class, :program_activity_code, :program_activity_reporting_key,
			:by_direct_reimbursable_fun, :disaster_emergency_fund_code, :prior_year_adjustment,
			:transaction_obligated_amou, :gross_outlay_amount_by_awa_fyb,
			:gross_outlay_amount_by_awa_cpe, :created_at
		)
	`

	return r.namedInsert(ctx, query, rows, models.FileTypeAwardFinancial)
}

// InsertFABS bulk inserts staged FABS rows. The derived columns stay null
// until publication.
func (r *Repository) InsertFABS(ctx context.Context, rows []models.FABSRow) error {
	ctx, span := tracing.StartSpan(ctx, "staging.Repository.InsertFABS")
	defer span.End()

	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO staging_fabs (
			id, submission_id, job_id, row_number, afa_generated_unique,
			awarding_sub_tier_agency_c, fain, uri, award_modification_amendme,
			cfda_number, action_date, action_type, correction_delete_indicatr,
			uei, legal_entity_country_code, legal_entity_zip5, legal_entity_zip_last4,
			place_of_performance_code, place_of_performance_zip4a, place_of_perform_country_c,
			awarding_office_code, funding_office_code, business_types, assistance_type,
			record_type, federal_action_obligation, non_federal_funding_amount, created_at
		) VALUES (
			:id, :submission_id, :job_id, :row_number, :afa_generated_unique,
			:awarding_sub_tier_agency_c, :fain, :uri, :award_modification_amendme,
			:cfda_number, :action_date, :action_type, :correction_delete_indicatr,
			:uei, :legal_entity_country_code, :legal_entity_zip5, :legal_entity_zip_last4,
			:place_of_performance_code, :place_of_performance_zip4a, :place_of_perform_country_c,
			:awarding_office_code, :funding_office_code, :business_types, :assistance_type,
			:record_type, :federal_action_obligation, :non_federal_funding_amount, :created_at
		)
	`

	return r.namedInsert(ctx, query, rows, models.FileTypeFABS)
}

// ListFABSForPublish returns the submission's FABS rows ordered by row number,
// with derived columns as currently stored. Used by the publication pipeline.
func (r *Repository) ListFABSForPublish(ctx context.Context, submissionID string) ([]models.FABSRow, error) {
	ctx, span := tracing.StartSpan(ctx, "staging.Repository.ListFABSForPublish")
	defer span.End()

	query := `
		SELECT * FROM staging_fabs
		WHERE submission_id = $1
		ORDER BY row_number
	`

	var rows []models.FABSRow
	if err := r.db.SelectContext(ctx, &rows, query, submissionID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"submission_id": submissionID}).Error("Failed to list FABS rows for publish")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list FABS rows")
	}
	return rows, nil
}

// ListAwardFinancialForPublish returns the submission's C rows ordered by row number
func (r *Repository) ListAwardFinancialForPublish(ctx context.Context, submissionID string) ([]models.AwardFinancialRow, error) {
	ctx, span := tracing.StartSpan(ctx, "staging.Repository.ListAwardFinancialForPublish")
	defer span.End()

	query := `
		SELECT * FROM staging_award_financial
		WHERE submission_id = $1
		ORDER BY row_number
	`

	var rows []models.AwardFinancialRow
	if err := r.db.SelectContext(ctx, &rows, query, submissionID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"submission_id": submissionID}).Error("Failed to list award financial rows for publish")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list award financial rows")
	}
	return rows, nil
}

// UpdateFABSDerived stores the publication-time derived columns on one row
func (r *Repository) UpdateFABSDerived(ctx context.Context, row models.FABSRow) error {
	ctx, span := tracing.StartSpan(ctx, "staging.Repository.UpdateFABSDerived")
	defer span.End()

	query := `
		UPDATE staging_fabs SET
			total_funding_amount = :total_funding_amount,
			cfda_title = :cfda_title,
			awarding_agency_code = :awarding_agency_code,
			awarding_agency_name = :awarding_agency_name,
			awarding_office_name = :awarding_office_name,
			funding_office_name = :funding_office_name,
			place_of_perform_state_nam = :place_of_perform_state_nam,
			place_of_perform_county_na = :place_of_perform_county_na,
			place_of_performance_city = :place_of_performance_city,
			place_of_perform_country_n = :place_of_perform_country_n,
			legal_entity_state_code = :legal_entity_state_code,
			legal_entity_county_name = :legal_entity_county_name,
			legal_entity_congressional = :legal_entity_congressional,
			legal_entity_country_name = :legal_entity_country_name
		WHERE id = :id
	`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": row.ID}).Error("Failed to update FABS derived columns")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update derived columns")
	}
	return nil
}

// namedInsert runs a batched named insert, chunked to stay under the
// PostgreSQL parameter limit.
func (r *Repository) namedInsert(ctx context.Context, query string, rows any, fileType models.FileType) error {
	const chunkSize = 500

	switch typed := rows.(type) {
	case []models.AppropriationRow:
		for start := 0; start < len(typed); start += chunkSize {
			end := min(start+chunkSize, len(typed))
			if _, err := r.db.NamedExecContext(ctx, query, typed[start:end]); err != nil {
				return r.insertErr(ctx, err, fileType, len(typed))
			}
		}
	case []models.ObjectClassRow:
		for start := 0; start < len(typed); start += chunkSize {
			end := min(start+chunkSize, len(typed))
			if _, err := r.db.NamedExecContext(ctx, query, typed[start:end]); err != nil {
				return r.insertErr(ctx, err, fileType, len(typed))
			}
		}
	case []models.AwardFinancialRow:
		for start := 0; start < len(typed); start += chunkSize {
			end := min(start+chunkSize, len(typed))
			if _, err := r.db.NamedExecContext(ctx, query, typed[start:end]); err != nil {
				return r.insertErr(ctx, err, fileType, len(typed))
			}
		}
	case []models.FABSRow:
		for start := 0; start < len(typed); start += chunkSize {
			end := min(start+chunkSize, len(typed))
			if _, err := r.db.NamedExecContext(ctx, query, typed[start:end]); err != nil {
				return r.insertErr(ctx, err, fileType, len(typed))
			}
		}
	default:
		return httperror.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("unsupported staging row type %T", rows))
	}
	return nil
}

func (r *Repository) insertErr(ctx context.Context, err error, fileType models.FileType, count int) error {
	r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"file_type": fileType, "count": count}).Error("Failed to insert staged rows")
	return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert staged rows")
}
