package rule

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

var columns = []string{
	"id", "rule_id", "file_type", "target_file_type", "severity",
	"predicate_sql", "message", "uniqueid_cols", "ordinal", "is_active",
	"created_at", "updated_at",
}

// Repository reads the rule catalog. The catalog is deployment data: there is
// no write path at runtime.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new rule repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ListAll returns every catalog entry, active or not, in catalog order
func (r *Repository) ListAll(ctx context.Context) ([]models.Rule, error) {
	ctx, span := tracing.StartSpan(ctx, "rule.Repository.ListAll")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("rules")
	sb.OrderBy("file_type", "ordinal", "rule_id")

	query, args := sb.Build()
	var rules []models.Rule
	if err := r.db.SelectContext(ctx, &rules, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load rule catalog")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load rule catalog")
	}
	return rules, nil
}

// ExecuteMapRows runs one predicate with named parameters and streams the
// resulting tuples as column-name maps. The evaluator owns row shaping; the
// repository only binds and rebinds.
func (r *Repository) ExecuteMapRows(ctx context.Context, predicateSQL string, params map[string]any, fn func(row map[string]any) error) error {
	ctx, span := tracing.StartSpan(ctx, "rule.Repository.ExecuteMapRows")
	defer span.End()

	query, args, err := r.db.BindNamed(predicateSQL, params)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to bind rule predicate parameters")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to bind rule predicate")
	}

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to execute rule predicate")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to execute rule predicate")
	}
	defer rows.Close()

	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to scan rule predicate row")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to scan rule predicate row")
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Rule predicate row iteration failed")
		return httperror.NewHTTPError(http.StatusInternalServerError, "rule predicate iteration failed")
	}
	return nil
}
