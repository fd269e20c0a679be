package models

import (
	"time"
)

// JobType identifies one node kind of the validation DAG
type JobType string

const (
	JobTypeFileUpload         JobType = "file_upload"
	JobTypeRecordValidation   JobType = "csv_record_validation"
	JobTypeCrossFileValidation JobType = "validation"
	JobTypeFileGeneration     JobType = "external_file_generation"
)

// FileType identifies the submission file a job operates on.
// Cross-file jobs carry no file type.
type FileType string

const (
	FileTypeAppropriations FileType = "A"
	FileTypeObjectClass    FileType = "B"
	FileTypeAwardFinancial FileType = "C"
	FileTypeD1             FileType = "D1"
	FileTypeD2             FileType = "D2"
	FileTypeE              FileType = "E"
	FileTypeF              FileType = "F"
	FileTypeFABS           FileType = "FABS"

	// FileTypeCrossFile names cross-file report artifacts. Cross-file jobs
	// themselves carry a nil file type.
	FileTypeCrossFile FileType = "crossfile"
)

// JobStatus is the lifecycle state of a job
type JobStatus string

const (
	JobStatusWaiting  JobStatus = "waiting"
	JobStatusReady    JobStatus = "ready"
	JobStatusRunning  JobStatus = "running"
	JobStatusFinished JobStatus = "finished"
	JobStatusInvalid  JobStatus = "invalid"
	JobStatusFailed   JobStatus = "failed"
)

// IsTerminal reports whether the status ends the job short of a restart.
// "failed" is retryable and therefore not terminal.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFinished || s == JobStatusInvalid
}

// Job is one node of a submission's validation DAG
type Job struct {
	ID               string     `json:"id" db:"id"`
	SubmissionID     string     `json:"submission_id" db:"submission_id"`
	JobType          JobType    `json:"job_type" db:"job_type"`
	FileType         *FileType  `json:"file_type,omitempty" db:"file_type"`
	Status           JobStatus  `json:"status" db:"status"`
	Filename         *string    `json:"filename,omitempty" db:"filename"`
	OriginalFilename *string    `json:"original_filename,omitempty" db:"original_filename"`
	NumberOfRows     int        `json:"number_of_rows" db:"number_of_rows"`
	FileSize         int64      `json:"file_size" db:"file_size"`
	NumberOfErrors   int        `json:"number_of_errors" db:"number_of_errors"`
	NumberOfWarnings int        `json:"number_of_warnings" db:"number_of_warnings"`
	StartDate        *time.Time `json:"start_date,omitempty" db:"start_date"` // D-file generation window
	EndDate          *time.Time `json:"end_date,omitempty" db:"end_date"`
	GeneratedURL     *string    `json:"url,omitempty" db:"generated_url"`
	ErrorMessage     *string    `json:"error_message,omitempty" db:"error_message"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// JobDependency is a directed edge job -> prerequisite job
type JobDependency struct {
	JobID          string `json:"job_id" db:"job_id"`
	PrerequisiteID string `json:"prerequisite_id" db:"prerequisite_id"`
}

// FileLevelError records a parse rejection that is not row-addressable,
// e.g. missing or duplicated headers.
type FileLevelError struct {
	ID        string    `json:"id" db:"id"`
	JobID     string    `json:"job_id" db:"job_id"`
	ErrorType string    `json:"error_type" db:"error_type"` // missing_headers, duplicated_headers, row_count_mismatch, malformed_row
	Detail    string    `json:"detail" db:"detail"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const (
	FileErrorMissingHeaders    = "missing_headers"
	FileErrorDuplicatedHeaders = "duplicated_headers"
	FileErrorRowCountMismatch  = "row_count_mismatch"
	FileErrorMalformedRow      = "malformed_row"
)

// JobStatusResponse is the job status surface consumed by the HTTP layer
type JobStatusResponse struct {
	JobID             string          `json:"job_id"`
	JobType           JobType         `json:"job_type"`
	FileType          *FileType       `json:"file_type,omitempty"`
	Status            JobStatus       `json:"status"`
	Filename          *string         `json:"filename,omitempty"`
	NumberOfRows      int             `json:"number_of_rows"`
	NumberOfErrors    int             `json:"number_of_errors"`
	MissingHeaders    []string        `json:"missing_headers"`
	DuplicatedHeaders []string        `json:"duplicated_headers"`
	ErrorMetadata     []ErrorMetadata `json:"error_metadata"`
}

// GenerationStatusResponse is the generation-job surface
type GenerationStatusResponse struct {
	JobID     string     `json:"job_id"`
	Status    JobStatus  `json:"status"`
	FileType  *FileType  `json:"file_type,omitempty"`
	URL       *string    `json:"url,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Message   *string    `json:"message,omitempty"`
}
