package models

import (
	"strings"
	"time"
)

// FABSUniqueKey builds the detached-assistance unique award key from its five
// components. Comparison is case-insensitive, so the key is lower-cased.
// Blank and null components are equivalent.
func FABSUniqueKey(subTier, fain, uri, mod, cfda *string) string {
	part := func(s *string) string {
		if s == nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(*s))
	}
	return part(subTier) + "_" + part(fain) + "_" + part(uri) + "_" + part(mod) + "_" + part(cfda)
}

// PublishedFABSRow is the immutable historical copy of a detached assistance
// row at publish time. Insert-only: corrections and deletes deactivate the
// prior active row for the same unique key, never update it in place.
type PublishedFABSRow struct {
	ID                       string     `json:"id" db:"id"`
	SubmissionID             string     `json:"submission_id" db:"submission_id"`
	PublishHistoryID         string     `json:"publish_history_id" db:"publish_history_id"`
	UniqueAwardKey           string     `json:"unique_award_key" db:"unique_award_key"`
	AwardingSubTierAgencyC   *string    `json:"awarding_sub_tier_agency_c,omitempty" db:"awarding_sub_tier_agency_c"`
	FAIN                     *string    `json:"fain,omitempty" db:"fain"`
	URI                      *string    `json:"uri,omitempty" db:"uri"`
	AwardModificationAmendme *string    `json:"award_modification_amendme,omitempty" db:"award_modification_amendme"`
	CFDANumber               *string    `json:"cfda_number,omitempty" db:"cfda_number"`
	ActionDate               *string    `json:"action_date,omitempty" db:"action_date"`
	CorrectionDeleteIndicatr *string    `json:"correction_delete_indicatr,omitempty" db:"correction_delete_indicatr"`
	FederalActionObligation  *float64   `json:"federal_action_obligation,omitempty" db:"federal_action_obligation"`
	TotalFundingAmount       *float64   `json:"total_funding_amount,omitempty" db:"total_funding_amount"`
	IsActive                 bool       `json:"is_active" db:"is_active"`
	ModifiedAt               time.Time  `json:"modified_at" db:"modified_at"`
	CreatedAt                time.Time  `json:"created_at" db:"created_at"`
}

// PublishedAwardFinancialRow is the published snapshot of a C-file row, used
// by cross-submission carryover rules. Keyed by the full award-financial
// tuple rather than the FABS unique key.
type PublishedAwardFinancialRow struct {
	ID                          string   `json:"id" db:"id"`
	SubmissionID                string   `json:"submission_id" db:"submission_id"`
	PublishHistoryID            string   `json:"publish_history_id" db:"publish_history_id"`
	AgencyCode                  string   `json:"agency_code" db:"agency_code"`
	FiscalYear                  int      `json:"fiscal_year" db:"fiscal_year"`
	FiscalPeriod                int      `json:"fiscal_period" db:"fiscal_period"`
	DisplayTAS                  *string  `json:"display_tas,omitempty" db:"display_tas"`
	ObjectClass                 *string  `json:"object_class,omitempty" db:"object_class"`
	ProgramActivityReportingKey *string  `json:"program_activity_reporting_key,omitempty" db:"program_activity_reporting_key"`
	ByDirectReimbursableFun     *string  `json:"by_direct_reimbursable_fun,omitempty" db:"by_direct_reimbursable_fun"`
	DisasterEmergencyFundCode   *string  `json:"disaster_emergency_fund_code,omitempty" db:"disaster_emergency_fund_code"`
	PriorYearAdjustment         *string  `json:"prior_year_adjustment,omitempty" db:"prior_year_adjustment"`
	PIID                        *string  `json:"piid,omitempty" db:"piid"`
	FAIN                        *string  `json:"fain,omitempty" db:"fain"`
	URI                         *string  `json:"uri,omitempty" db:"uri"`
	TransactionObligatedAmount  *float64 `json:"transaction_obligated_amou,omitempty" db:"transaction_obligated_amou"`
	GrossOutlayAmountByAwardCPE *float64 `json:"gross_outlay_amount_by_awa_cpe,omitempty" db:"gross_outlay_amount_by_awa_cpe"`
	CreatedAt                   time.Time `json:"created_at" db:"created_at"`
}
