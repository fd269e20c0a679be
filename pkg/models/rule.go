package models

import (
	"time"

	"github.com/lib/pq"
)

// RuleSeverity distinguishes blocking errors from warnings
type RuleSeverity string

const (
	SeverityFatal   RuleSeverity = "fatal"
	SeverityWarning RuleSeverity = "warning"
)

// Rule is one declarative data-quality rule. Rules are data, not code: the
// predicate is a set-producing SQL query over staging and reference tables,
// parameterized on the submission being validated. Each produced tuple is one
// violation.
type Rule struct {
	ID           string         `json:"id" db:"id"`
	RuleID       string         `json:"rule_id" db:"rule_id"` // stable identifier used in reports, e.g. "a7_appropriations"
	FileType     FileType       `json:"file_type" db:"file_type"`
	TargetFileType *FileType    `json:"target_file_type,omitempty" db:"target_file_type"` // second file for cross-file pairs
	Severity     RuleSeverity   `json:"severity" db:"severity"`
	PredicateSQL string         `json:"predicate_sql" db:"predicate_sql"`
	Message      string         `json:"message" db:"message"` // template with {column} placeholders
	UniqueIDCols pq.StringArray `json:"uniqueid_cols" db:"uniqueid_cols"`
	Ordinal      int            `json:"ordinal" db:"ordinal"`
	IsActive     bool           `json:"is_active" db:"is_active"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// HasPredicate reports whether the rule can be evaluated. A handful of
// catalog entries are specified by header and message only and stay inactive
// until their predicate ships.
func (r *Rule) HasPredicate() bool {
	return r.PredicateSQL != ""
}

// CrossFilePair names the two files a cross-file rule compares
type CrossFilePair struct {
	First  FileType
	Second FileType
}

// CrossFilePairs are the pairwise comparisons run by the cross-file job,
// in report order.
var CrossFilePairs = []CrossFilePair{
	{FileTypeAppropriations, FileTypeObjectClass},
	{FileTypeObjectClass, FileTypeAwardFinancial},
	{FileTypeAwardFinancial, FileTypeD1},
	{FileTypeAwardFinancial, FileTypeD2},
}

// Violation is one rule failure, addressed to a staged row
type Violation struct {
	RuleID      string       `json:"rule_id"`
	Severity    RuleSeverity `json:"severity"`
	RowNumber   int          `json:"row_number"`
	Message     string       `json:"message"`
	UniqueID    string       `json:"uniqueid"`
	FieldNames  []string     `json:"field_names"`
	FieldValues []string     `json:"field_values"`
}

// ErrorMetadata is the per-(job, rule, severity) aggregate the materializer
// derives from the violation stream. Recomputed on every evaluation.
type ErrorMetadata struct {
	ID              string        `json:"id" db:"id"`
	JobID           string        `json:"job_id" db:"job_id"`
	RuleID          string        `json:"rule_id" db:"rule_id"`
	Severity        RuleSeverity  `json:"severity" db:"severity"`
	FileType        FileType      `json:"file_type" db:"file_type"`
	TargetFileType  *FileType     `json:"target_file_type,omitempty" db:"target_file_type"`
	OccurrenceCount int           `json:"occurrence_count" db:"occurrence_count"`
	RowNumberSample pq.Int64Array `json:"row_number_sample" db:"row_number_sample"`
	Message         string        `json:"message" db:"message"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}
