package parser

import (
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	jobrepo "github.com/Ramsey-B/fern/internal/repositories/job"
	"github.com/Ramsey-B/fern/internal/repositories/staging"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Result is what one parse produced
type Result struct {
	RowCount          int
	MissingHeaders    []string
	DuplicatedHeaders []string
	MalformedRows     int
}

// Invalid reports whether the file was rejected outright
func (r *Result) Invalid() bool {
	return len(r.MissingHeaders) > 0 || len(r.DuplicatedHeaders) > 0
}

// Config tunes the parser
type Config struct {
	// BatchSize caps rows per staging insert
	BatchSize int
}

// Parser stages submission CSV files. Header validation happens before any
// row is staged: a file missing required headers, or repeating any header,
// stages nothing and fails the job as invalid.
type Parser struct {
	logger      ectologger.Logger
	stagingRepo *staging.Repository
	jobRepo     *jobrepo.Repository
	config      Config
}

// NewParser creates a new CSV parser
func NewParser(logger ectologger.Logger, stagingRepo *staging.Repository, jobRepo *jobrepo.Repository, config Config) *Parser {
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	return &Parser{
		logger:      logger,
		stagingRepo: stagingRepo,
		jobRepo:     jobRepo,
		config:      config,
	}
}

// Parse validates headers and stages the file's rows, replacing the
// submission's prior rows for this file type. Row numbers are 1-based data
// rows; the header line is row 0 and never staged.
func (p *Parser) Parse(ctx context.Context, job models.Job, fileType models.FileType, r io.Reader) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "parser.Parser.Parse")
	defer span.End()

	schema, ok := schemas[fileType]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "file type %s is not parseable", fileType)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headerLine, err := reader.Read()
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": job.ID}).Error("Failed to read CSV header")
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "file has no header line")
	}

	result := &Result{}
	positions, missing, duplicated := validateHeaders(headerLine, schema)
	result.MissingHeaders = missing
	result.DuplicatedHeaders = duplicated

	if result.Invalid() {
		if err := p.recordHeaderErrors(ctx, job.ID, result); err != nil {
			return nil, err
		}
		p.logger.WithContext(ctx).WithFields(map[string]any{
			"job_id":             job.ID,
			"missing_headers":    missing,
			"duplicated_headers": duplicated,
		}).Warn("Rejected file with invalid headers")
		return result, nil
	}

	if _, err := p.stagingRepo.DeleteForSubmission(ctx, job.SubmissionID, fileType); err != nil {
		return nil, err
	}
	if err := p.jobRepo.ClearFileLevelErrors(ctx, job.ID); err != nil {
		return nil, err
	}

	batch := newBatch(fileType, job.SubmissionID, job.ID)
	rowNumber := 0
	for {
		line, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// csv.Reader keeps going after a malformed line; record and skip
			rowNumber++
			result.MalformedRows++
			if ferr := p.jobRepo.AddFileLevelError(ctx, job.ID, models.FileErrorMalformedRow, err.Error()); ferr != nil {
				return nil, ferr
			}
			continue
		}

		rowNumber++
		rec := record{}
		for name, pos := range positions {
			if pos < len(line) {
				rec[name] = line[pos]
			}
		}

		batch.add(rec, rowNumber)
		if batch.size() >= p.config.BatchSize {
			if err := batch.flush(ctx, p.stagingRepo); err != nil {
				return nil, err
			}
		}
	}
	if err := batch.flush(ctx, p.stagingRepo); err != nil {
		return nil, err
	}

	result.RowCount = rowNumber - result.MalformedRows
	p.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":         job.ID,
		"submission_id":  job.SubmissionID,
		"file_type":      fileType,
		"rows":           result.RowCount,
		"malformed_rows": result.MalformedRows,
	}).Info("Staged submission file")
	return result, nil
}

func (p *Parser) recordHeaderErrors(ctx context.Context, jobID string, result *Result) error {
	for _, h := range result.MissingHeaders {
		if err := p.jobRepo.AddFileLevelError(ctx, jobID, models.FileErrorMissingHeaders, h); err != nil {
			return err
		}
	}
	for _, h := range result.DuplicatedHeaders {
		if err := p.jobRepo.AddFileLevelError(ctx, jobID, models.FileErrorDuplicatedHeaders, h); err != nil {
			return err
		}
	}
	return nil
}

// validateHeaders maps canonical header names to column positions and
// collects missing required headers and duplicated headers. Comparison is
// case-insensitive and ignores surrounding whitespace and a UTF-8 BOM.
func validateHeaders(headerLine []string, schema fileSchema) (positions map[string]int, missing, duplicated []string) {
	known := map[string]bool{}
	for _, h := range schema.required {
		known[h] = true
	}
	for _, h := range schema.optional {
		known[h] = true
	}

	positions = map[string]int{}
	counts := map[string]int{}
	for i, raw := range headerLine {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
		if !known[name] {
			continue
		}
		counts[name]++
		if counts[name] == 1 {
			positions[name] = i
		}
	}

	for name, n := range counts {
		if n > 1 {
			duplicated = append(duplicated, name)
		}
	}
	for _, h := range schema.required {
		if counts[h] == 0 {
			missing = append(missing, h)
		}
	}
	return positions, missing, duplicated
}

// rowBatch accumulates typed rows for one file type
type rowBatch struct {
	fileType     models.FileType
	submissionID string
	jobID        string

	appropriations []models.AppropriationRow
	objectClass    []models.ObjectClassRow
	awardFinancial []models.AwardFinancialRow
	fabs           []models.FABSRow
}

func newBatch(fileType models.FileType, submissionID, jobID string) *rowBatch {
	return &rowBatch{fileType: fileType, submissionID: submissionID, jobID: jobID}
}

func (b *rowBatch) add(rec record, rowNumber int) {
	now := time.Now().UTC()
	switch b.fileType {
	case models.FileTypeAppropriations:
		row := buildAppropriationRow(rec, b.submissionID, b.jobID, rowNumber)
		row.ID = uuid.New().String()
		row.CreatedAt = now
		b.appropriations = append(b.appropriations, row)
	case models.FileTypeObjectClass:
		row := buildObjectClassRow(rec, b.submissionID, b.jobID, rowNumber)
		row.ID = uuid.New().String()
		row.CreatedAt = now
		b.objectClass = append(b.objectClass, row)
	case models.FileTypeAwardFinancial:
		row := buildAwardFinancialRow(rec, b.submissionID, b.jobID, rowNumber)
		row.ID = uuid.New().String()
		row.CreatedAt = now
		b.awardFinancial = append(b.awardFinancial, row)
	case models.FileTypeFABS:
		row := buildFABSRow(rec, b.submissionID, b.jobID, rowNumber)
		row.ID = uuid.New().String()
		row.CreatedAt = now
		b.fabs = append(b.fabs, row)
	}
}

func (b *rowBatch) size() int {
	return len(b.appropriations) + len(b.objectClass) + len(b.awardFinancial) + len(b.fabs)
}

func (b *rowBatch) flush(ctx context.Context, repo *staging.Repository) error {
	switch b.fileType {
	case models.FileTypeAppropriations:
		if err := repo.InsertAppropriations(ctx, b.appropriations); err != nil {
			return err
		}
		b.appropriations = nil
	case models.FileTypeObjectClass:
		if err := repo.InsertObjectClass(ctx, b.objectClass); err != nil {
			return err
		}
		b.objectClass = nil
	case models.FileTypeAwardFinancial:
		if err := repo.InsertAwardFinancial(ctx, b.awardFinancial); err != nil {
			return err
		}
		b.awardFinancial = nil
	case models.FileTypeFABS:
		if err := repo.InsertFABS(ctx, b.fabs); err != nil {
			return err
		}
		b.fabs = nil
	}
	return nil
}
