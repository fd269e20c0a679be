package models

import (
	"time"
)

// PublishStatus is the publication state of a submission
type PublishStatus string

const (
	PublishStatusUnpublished PublishStatus = "unpublished"
	PublishStatusPublishing  PublishStatus = "publishing"
	PublishStatusPublished   PublishStatus = "published"
	PublishStatusUpdated     PublishStatus = "updated"
)

// IsPublished reports whether the status counts as published for the
// (agency, fiscal year, period) uniqueness check. A submission edited after
// publication moves to "updated" but still occupies its reporting window.
func (s PublishStatus) IsPublished() bool {
	return s == PublishStatusPublished || s == PublishStatusUpdated
}

// Submission is the atomic publishable unit: one agency reporting window
type Submission struct {
	ID               string        `json:"id" db:"id"`
	AgencyCode       string        `json:"agency_code" db:"agency_code"`
	SubTierCode      *string       `json:"sub_tier_code,omitempty" db:"sub_tier_code"`
	FiscalYear       int           `json:"fiscal_year" db:"fiscal_year"`
	FiscalPeriod     int           `json:"fiscal_period" db:"fiscal_period"`
	IsQuarterly      bool          `json:"is_quarterly" db:"is_quarterly"`
	ReportingStart   time.Time     `json:"reporting_start" db:"reporting_start"`
	ReportingEnd     time.Time     `json:"reporting_end" db:"reporting_end"`
	IsFABS           bool          `json:"is_fabs" db:"is_fabs"`
	PublishStatus    PublishStatus `json:"publish_status" db:"publish_status"`
	Publishable      bool          `json:"publishable" db:"publishable"`
	NumberOfErrors   int           `json:"number_of_errors" db:"number_of_errors"`
	NumberOfWarnings int           `json:"number_of_warnings" db:"number_of_warnings"`
	CertifyingUserID *string       `json:"certifying_user_id,omitempty" db:"certifying_user_id"`
	CreatedBy        string        `json:"created_by" db:"created_by"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// CreateSubmissionRequest is the request for creating a submission
type CreateSubmissionRequest struct {
	AgencyCode   string  `json:"agency_code" validate:"required"`
	SubTierCode  *string `json:"sub_tier_code,omitempty"`
	StartDate    string  `json:"reporting_period_start_date" validate:"required"` // MM/YYYY or MM/DD/YYYY
	EndDate      string  `json:"reporting_period_end_date" validate:"required"`
	IsQuarterly  bool    `json:"is_quarter_format"`
	IsFABS       bool    `json:"is_fabs"`
	ExistingID   *string `json:"existing_submission_id,omitempty"`
}

// PublishHistory records one publication of a submission
type PublishHistory struct {
	ID           string    `json:"id" db:"id"`
	SubmissionID string    `json:"submission_id" db:"submission_id"`
	PublishedBy  string    `json:"published_by" db:"published_by"`
	FiscalYear   int       `json:"fiscal_year" db:"fiscal_year"`
	FiscalPeriod int       `json:"fiscal_period" db:"fiscal_period"`
	CertifiedPath string   `json:"certified_path" db:"certified_path"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// SubmissionListResponse is the response for listing submissions
type SubmissionListResponse struct {
	Items      []Submission `json:"items"`
	TotalCount int          `json:"total_count"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
}
