package evaluator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/internal/repositories/rule"
	"github.com/Ramsey-B/fern/pkg/catalog"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Params are the named parameters every predicate may reference. They bind by
// name, so a predicate only pays for what it uses.
type Params struct {
	SubmissionID       string
	AgencyCode         string
	FiscalYear         int
	FiscalPeriod       int
	CorrectionCutoff   string // YYYY-MM-DD
	UnregisteredCutoff string // YYYY-MM-DD
}

func (p Params) named() map[string]any {
	return map[string]any{
		"submission_id":       p.SubmissionID,
		"agency_code":         p.AgencyCode,
		"fiscal_year":         p.FiscalYear,
		"fiscal_period":       p.FiscalPeriod,
		"correction_cutoff":   p.CorrectionCutoff,
		"unregistered_cutoff": p.UnregisteredCutoff,
	}
}

// Config tunes the evaluator
type Config struct {
	// Budget bounds one full evaluation pass. Zero means no budget.
	Budget time.Duration
}

// Evaluator runs catalog rules against staged data. Rules are opaque to the
// engine: it binds parameters, streams tuples, and shapes violations. All
// gating (correction indicators, date cutoffs) lives in the predicates
// themselves.
type Evaluator struct {
	logger   ectologger.Logger
	ruleRepo *rule.Repository
	catalog  *catalog.Catalog
	config   Config
}

// NewEvaluator creates a new rule evaluator
func NewEvaluator(logger ectologger.Logger, ruleRepo *rule.Repository, cat *catalog.Catalog, config Config) *Evaluator {
	return &Evaluator{
		logger:   logger,
		ruleRepo: ruleRepo,
		catalog:  cat,
		config:   config,
	}
}

// EvaluateFile runs every active single-file rule for the file type and
// returns the violations in rule order, then row order. Cancellation is
// checked between rules; a predicate already running finishes or fails with
// the driver's context error.
func (e *Evaluator) EvaluateFile(ctx context.Context, fileType models.FileType, params Params) ([]models.Violation, error) {
	ctx, span := tracing.StartSpan(ctx, "evaluator.Evaluator.EvaluateFile")
	defer span.End()

	return e.evaluate(ctx, e.catalog.RulesFor(fileType), params)
}

// EvaluateCrossFile runs the active rules for one cross-file pair
func (e *Evaluator) EvaluateCrossFile(ctx context.Context, pair models.CrossFilePair, params Params) ([]models.Violation, error) {
	ctx, span := tracing.StartSpan(ctx, "evaluator.Evaluator.EvaluateCrossFile")
	defer span.End()

	return e.evaluate(ctx, e.catalog.CrossFileRules(pair), params)
}

func (e *Evaluator) evaluate(ctx context.Context, rules []models.Rule, params Params) ([]models.Violation, error) {
	if e.config.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Budget)
		defer cancel()
	}

	named := params.named()
	var violations []models.Violation

	for _, r := range rules {
		if err := ctx.Err(); err != nil {
			return nil, e.budgetErr(ctx, err, r.RuleID, params.SubmissionID)
		}

		start := time.Now()
		ruleViolations, err := e.evaluateRule(ctx, r, named)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, e.budgetErr(ctx, err, r.RuleID, params.SubmissionID)
			}
			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"rule_id": r.RuleID, "submission_id": params.SubmissionID}).Error("Rule evaluation failed")
			return nil, err
		}

		e.logger.WithContext(ctx).WithFields(map[string]any{
			"rule_id":       r.RuleID,
			"submission_id": params.SubmissionID,
			"violations":    len(ruleViolations),
			"duration_ms":   time.Since(start).Milliseconds(),
		}).Debug("Evaluated rule")

		violations = append(violations, ruleViolations...)
	}

	return violations, nil
}

func (e *Evaluator) budgetErr(ctx context.Context, err error, ruleID, submissionID string) error {
	e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"rule_id": ruleID, "submission_id": submissionID}).Warn("Evaluation exceeded time budget")
	return httperror.NewHTTPError(http.StatusRequestTimeout, "evaluation exceeded time budget")
}

// evaluateRule runs one predicate and shapes each produced tuple into a
// violation. Tuples repeating a (row_number, uniqueid) pair within the same
// rule collapse to one violation.
func (e *Evaluator) evaluateRule(ctx context.Context, r models.Rule, named map[string]any) ([]models.Violation, error) {
	var violations []models.Violation
	seen := map[string]struct{}{}

	err := e.ruleRepo.ExecuteMapRows(ctx, r.PredicateSQL, named, func(row map[string]any) error {
		v := e.shapeViolation(r, row)

		dedupKey := strconv.Itoa(v.RowNumber) + "|" + v.UniqueID
		if _, dup := seen[dedupKey]; dup {
			return nil
		}
		seen[dedupKey] = struct{}{}

		violations = append(violations, v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].RowNumber < violations[j].RowNumber
	})
	return violations, nil
}

func (e *Evaluator) shapeViolation(r models.Rule, row map[string]any) models.Violation {
	rowNumber := 0
	if raw, ok := row["row_number"]; ok {
		rowNumber = toInt(raw)
	}

	names := make([]string, 0, len(row))
	for name := range row {
		if name == "row_number" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]string, len(names))
	byName := make(map[string]string, len(names))
	for i, name := range names {
		values[i] = toString(row[name])
		byName[name] = values[i]
	}

	return models.Violation{
		RuleID:      r.RuleID,
		Severity:    r.Severity,
		RowNumber:   rowNumber,
		Message:     RenderMessage(r.Message, byName),
		UniqueID:    uniqueID(r.UniqueIDCols, byName),
		FieldNames:  names,
		FieldValues: values,
	}
}

// RenderMessage substitutes {column} placeholders with the tuple's values.
// Placeholders naming a column the tuple lacks render empty rather than
// failing the evaluation.
func RenderMessage(template string, values map[string]string) string {
	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String()
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:open])
		name := rest[open+1 : open+end]
		b.WriteString(values[name])
		rest = rest[open+end+1:]
	}
}

// uniqueID renders the rule's unique-id columns as "col: value" pairs joined
// with commas, the format carried into error reports.
func uniqueID(cols []string, values map[string]string) string {
	if len(cols) == 0 {
		return ""
	}
	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		parts = append(parts, col+": "+values[col])
	}
	return strings.Join(parts, ", ")
}

func toInt(v any) int {
	switch typed := v.(type) {
	case int64:
		return int(typed)
	case int32:
		return int(typed)
	case int:
		return typed
	case float64:
		return int(typed)
	case []byte:
		n, _ := strconv.Atoi(string(typed))
		return n
	case string:
		n, _ := strconv.Atoi(typed)
		return n
	default:
		return 0
	}
}

func toString(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(typed)
	case string:
		return typed
	case time.Time:
		return typed.Format("2006-01-02")
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(typed, 10)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
