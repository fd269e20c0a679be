package reference

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Repository reads the reference tables that back rule predicates and
// publication-time derivations. Reference data loads out of band; runtime
// access is read-only.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new reference data repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetCountry looks up a country code, case-insensitively
func (r *Repository) GetCountry(ctx context.Context, code string) (*models.CountryCode, error) {
	ctx, span := tracing.StartSpan(ctx, "reference.Repository.GetCountry")
	defer span.End()

	query := `
		SELECT code, name, is_territory
		FROM ref_country_codes
		WHERE UPPER(code) = UPPER($1)
	`

	var country models.CountryCode
	if err := r.db.GetContext(ctx, &country, query, code); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"code": code}).Error("Failed to get country code")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get country code")
	}
	return &country, nil
}

// GetZip looks up a ZIP5, optionally narrowed by ZIP4
func (r *Repository) GetZip(ctx context.Context, zip5 string, zip4 *string) (*models.Zip, error) {
	ctx, span := tracing.StartSpan(ctx, "reference.Repository.GetZip")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("zip5", "zip_last4", "state_abbreviation", "state_name", "county_number", "county_name", "city_name", "congressional_district")
	sb.From("ref_zips")
	where := []string{sb.Equal("zip5", zip5)}
	if zip4 != nil && *zip4 != "" {
		where = append(where, sb.Equal("zip_last4", *zip4))
	}
	sb.Where(where...)
	sb.Limit(1)

	query, args := sb.Build()
	var zip models.Zip
	if err := r.db.GetContext(ctx, &zip, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			// Retry on ZIP5 alone when the plus-four misses
			if zip4 != nil && *zip4 != "" {
				return r.GetZip(ctx, zip5, nil)
			}
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"zip5": zip5}).Error("Failed to get zip")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get zip")
	}
	return &zip, nil
}

// GetCFDAProgram looks up an assistance listing by program number
func (r *Repository) GetCFDAProgram(ctx context.Context, programNumber string) (*models.CFDAProgram, error) {
	ctx, span := tracing.StartSpan(ctx, "reference.Repository.GetCFDAProgram")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("program_number", "program_title", "published_date", "archived_date")
	sb.From("ref_cfda_programs")
	sb.Where(sb.Equal("program_number", programNumber))
	sb.Limit(1)

	query, args := sb.Build()
	var program models.CFDAProgram
	if err := r.db.GetContext(ctx, &program, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"program_number": programNumber}).Error("Failed to get CFDA program")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get CFDA program")
	}
	return &program, nil
}

// GetSubTierAgency looks up a sub-tier agency by code, case-insensitively
func (r *Repository) GetSubTierAgency(ctx context.Context, code string) (*models.SubTierAgency, error) {
	ctx, span := tracing.StartSpan(ctx, "reference.Repository.GetSubTierAgency")
	defer span.End()

	query := `
		SELECT sub_tier_code, sub_tier_name, agency_code, agency_name
		FROM ref_sub_tier_agencies
		WHERE UPPER(sub_tier_code) = UPPER($1)
	`

	var agency models.SubTierAgency
	if err := r.db.GetContext(ctx, &agency, query, code); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"sub_tier_code": code}).Error("Failed to get sub-tier agency")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get sub-tier agency")
	}
	return &agency, nil
}

// GetOffice looks up an office by code, case-insensitively
func (r *Repository) GetOffice(ctx context.Context, code string) (*models.Office, error) {
	ctx, span := tracing.StartSpan(ctx, "reference.Repository.GetOffice")
	defer span.End()

	query := `
		SELECT office_code, office_name
		FROM ref_offices
		WHERE UPPER(office_code) = UPPER($1)
	`

	var office models.Office
	if err := r.db.GetContext(ctx, &office, query, code); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"office_code": code}).Error("Failed to get office")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get office")
	}
	return &office, nil
}

// GetSAMRecipient looks up a SAM registration by UEI, case-insensitively
func (r *Repository) GetSAMRecipient(ctx context.Context, uei string) (*models.SAMRecipient, error) {
	ctx, span := tracing.StartSpan(ctx, "reference.Repository.GetSAMRecipient")
	defer span.End()

	query := `
		SELECT uei, legal_business_name, registration_date, expiration_date
		FROM ref_sam_recipients
		WHERE UPPER(uei) = UPPER($1)
	`

	var recipient models.SAMRecipient
	if err := r.db.GetContext(ctx, &recipient, query, uei); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"uei": uei}).Error("Failed to get SAM recipient")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get SAM recipient")
	}
	return &recipient, nil
}

// GetSF133Amount returns the SF 133 amount for one (TAS, line) in a reporting
// window, or nil when no row exists.
func (r *Repository) GetSF133Amount(ctx context.Context, displayTAS string, fiscalYear, fiscalPeriod, line int) (*float64, error) {
	ctx, span := tracing.StartSpan(ctx, "reference.Repository.GetSF133Amount")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("amount")
	sb.From("ref_sf133")
	sb.Where(
		sb.Equal("display_tas", displayTAS),
		sb.Equal("fiscal_year", fiscalYear),
		sb.Equal("fiscal_period", fiscalPeriod),
		sb.Equal("line", line),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var amount float64
	if err := r.db.GetContext(ctx, &amount, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"display_tas": displayTAS, "fiscal_year": fiscalYear, "fiscal_period": fiscalPeriod, "line": line}).Error("Failed to get SF 133 amount")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get SF 133 amount")
	}
	return &amount, nil
}
