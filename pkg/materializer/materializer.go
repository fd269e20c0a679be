package materializer

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/internal/repositories/errormetadata"
	"github.com/Ramsey-B/fern/pkg/artifacts"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var reportHeader = []string{"Unique ID", "Field Names", "Field Values", "Rule Message", "Row Number", "Rule Label"}

// Config tunes the materializer
type Config struct {
	// ReportDir is the local scratch directory for report files
	ReportDir string
	// SampleSize caps the row numbers kept per aggregate
	SampleSize int
	// TimestampHeader adds a generation timestamp comment line to reports
	TimestampHeader bool
}

// Result is what one materialization produced
type Result struct {
	NumErrors   int
	NumWarnings int
	Metadata    []models.ErrorMetadata
	ReportKeys  []string
}

// Materializer turns a violation stream into queryable aggregates and
// downloadable CSV reports. Reports are written for both severities on every
// run, header-only when clean, so a missing report always means a missing
// run rather than a clean one.
type Materializer struct {
	logger        ectologger.Logger
	errorMetaRepo *errormetadata.Repository
	store         *artifacts.Store
	config        Config
}

// NewMaterializer creates a new error materializer
func NewMaterializer(logger ectologger.Logger, errorMetaRepo *errormetadata.Repository, store *artifacts.Store, config Config) *Materializer {
	if config.SampleSize <= 0 {
		config.SampleSize = 100
	}
	if config.ReportDir == "" {
		config.ReportDir = os.TempDir()
	}
	return &Materializer{
		logger:        logger,
		errorMetaRepo: errorMetaRepo,
		store:         store,
		config:        config,
	}
}

// ReportKey is the object key for one severity report
func ReportKey(submissionID string, fileType models.FileType, severity models.RuleSeverity) string {
	return fmt.Sprintf("%s_%s_%s.csv", submissionID, fileType, severity)
}

// Materialize replaces the job's aggregates and reports from a fresh
// violation stream. Prior results for the job are discarded wholesale so a
// re-run can only shrink, never accrete.
func (m *Materializer) Materialize(ctx context.Context, job models.Job, fileType models.FileType, targetFileType *models.FileType, violations []models.Violation) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "materializer.Materializer.Materialize")
	defer span.End()

	metadata := m.aggregate(job.ID, fileType, targetFileType, violations)
	if err := m.errorMetaRepo.ReplaceForJob(ctx, job.ID, metadata); err != nil {
		return nil, err
	}

	result := &Result{Metadata: metadata}
	for _, meta := range metadata {
		switch meta.Severity {
		case models.SeverityFatal:
			result.NumErrors += meta.OccurrenceCount
		case models.SeverityWarning:
			result.NumWarnings += meta.OccurrenceCount
		}
	}

	for _, severity := range []models.RuleSeverity{models.SeverityFatal, models.SeverityWarning} {
		key := ReportKey(job.SubmissionID, fileType, severity)
		if err := m.writeReport(ctx, key, severity, violations); err != nil {
			return nil, err
		}
		result.ReportKeys = append(result.ReportKeys, key)
	}

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":        job.ID,
		"submission_id": job.SubmissionID,
		"file_type":     fileType,
		"errors":        result.NumErrors,
		"warnings":      result.NumWarnings,
	}).Info("Materialized validation results")
	return result, nil
}

// aggregate folds violations into per-(rule, severity) rows. Order is
// deterministic: severity then rule id.
func (m *Materializer) aggregate(jobID string, fileType models.FileType, targetFileType *models.FileType, violations []models.Violation) []models.ErrorMetadata {
	byRule := map[string]*models.ErrorMetadata{}
	for _, v := range violations {
		key := string(v.Severity) + "|" + v.RuleID
		meta, ok := byRule[key]
		if !ok {
			meta = &models.ErrorMetadata{
				JobID:          jobID,
				RuleID:         v.RuleID,
				Severity:       v.Severity,
				FileType:       fileType,
				TargetFileType: targetFileType,
				Message:        v.Message,
			}
			byRule[key] = meta
		}
		meta.OccurrenceCount++
		if len(meta.RowNumberSample) < m.config.SampleSize {
			meta.RowNumberSample = append(meta.RowNumberSample, int64(v.RowNumber))
		}
	}

	out := make([]models.ErrorMetadata, 0, len(byRule))
	for _, meta := range byRule {
		out = append(out, *meta)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity < out[j].Severity
		}
		return out[i].RuleID < out[j].RuleID
	})
	return out
}

// writeReport writes one severity report to local scratch and uploads it.
// The local write goes through a temp file, fsync, and rename so a crashed
// run never leaves a torn report behind.
func (m *Materializer) writeReport(ctx context.Context, key string, severity models.RuleSeverity, violations []models.Violation) error {
	ctx, span := tracing.StartSpan(ctx, "materializer.Materializer.writeReport")
	defer span.End()

	finalPath := filepath.Join(m.config.ReportDir, key)
	tmp, err := os.CreateTemp(m.config.ReportDir, key+".tmp")
	if err != nil {
		m.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"key": key}).Error("Failed to create temp report file")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create report file")
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if m.config.TimestampHeader {
		if err := w.Write([]string{"# Generated " + time.Now().UTC().Format(time.RFC3339)}); err != nil {
			tmp.Close()
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to write report")
		}
	}
	if err := w.Write(reportHeader); err != nil {
		tmp.Close()
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to write report")
	}

	for _, v := range violations {
		if v.Severity != severity {
			continue
		}
		record := []string{
			v.UniqueID,
			strings.Join(v.FieldNames, ", "),
			strings.Join(v.FieldValues, ", "),
			v.Message,
			strconv.Itoa(v.RowNumber),
			v.RuleID,
		}
		if err := w.Write(record); err != nil {
			tmp.Close()
			m.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"key": key}).Error("Failed to write report row")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to write report")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to flush report")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to sync report")
	}
	if err := tmp.Close(); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to close report")
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		m.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"key": key}).Error("Failed to move report into place")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to move report")
	}

	f, err := os.Open(finalPath)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to reopen report")
	}
	defer f.Close()

	return m.store.Upload(ctx, key, f)
}
