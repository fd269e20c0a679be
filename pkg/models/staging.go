package models

import "time"

// Staging rows are the parsed, typed columns of each input file plus the
// 1-based source line number. Amount columns stay nullable: blank and null
// are equivalent inside rule predicates, numeric zero is not absent.

// AppropriationRow is one staged row of an appropriations (A) file
type AppropriationRow struct {
	ID                          string   `json:"id" db:"id"`
	SubmissionID                string   `json:"submission_id" db:"submission_id"`
	JobID                       string   `json:"job_id" db:"job_id"`
	RowNumber                   int      `json:"row_number" db:"row_number"`
	DisplayTAS                  *string  `json:"display_tas,omitempty" db:"display_tas"`
	AllocationTransferAgency    *string  `json:"allocation_transfer_agency,omitempty" db:"allocation_transfer_agency"`
	AgencyIdentifier            *string  `json:"agency_identifier,omitempty" db:"agency_identifier"`
	BeginningPeriodOfAvail      *string  `json:"beginning_period_of_availa,omitempty" db:"beginning_period_of_availa"`
	EndingPeriodOfAvail         *string  `json:"ending_period_of_availabil,omitempty" db:"ending_period_of_availabil"`
	AvailabilityTypeCode        *string  `json:"availability_type_code,omitempty" db:"availability_type_code"`
	MainAccountCode             *string  `json:"main_account_code,omitempty" db:"main_account_code"`
	SubAccountCode              *string  `json:"sub_account_code,omitempty" db:"sub_account_code"`
	BudgetAuthorityUnobligatFYB *float64 `json:"budget_authority_unobligat_fyb,omitempty" db:"budget_authority_unobligat_fyb"`
	StatusOfBudgetaryResTotal   *float64 `json:"status_of_budgetary_resour_cpe,omitempty" db:"status_of_budgetary_resour_cpe"`
	GrossOutlayAmountByTAS      *float64 `json:"gross_outlay_amount_by_tas_cpe,omitempty" db:"gross_outlay_amount_by_tas_cpe"`
	ObligationsIncurredTotal    *float64 `json:"obligations_incurred_total_cpe,omitempty" db:"obligations_incurred_total_cpe"`
	AdjustmentsToUnobligatedCY  *float64 `json:"adjustments_to_unobligated_cpe,omitempty" db:"adjustments_to_unobligated_cpe"`
	BorrowingAuthorityAmount    *float64 `json:"borrowing_authority_amount_cpe,omitempty" db:"borrowing_authority_amount_cpe"`
	ContractAuthorityAmount     *float64 `json:"contract_authority_amount_cpe,omitempty" db:"contract_authority_amount_cpe"`
	OtherBudgetaryResources     *float64 `json:"other_budgetary_resources_cpe,omitempty" db:"other_budgetary_resources_cpe"`
	BudgetAuthorityAppropria    *float64 `json:"budget_authority_appropria_cpe,omitempty" db:"budget_authority_appropria_cpe"`
	UnobligatedBalance          *float64 `json:"unobligated_balance_cpe,omitempty" db:"unobligated_balance_cpe"`
	CreatedAt                   time.Time `json:"created_at" db:"created_at"`
}

// ObjectClassRow is one staged row of an object-class/program-activity (B) file
type ObjectClassRow struct {
	ID                         string   `json:"id" db:"id"`
	SubmissionID               string   `json:"submission_id" db:"submission_id"`
	JobID                      string   `json:"job_id" db:"job_id"`
	RowNumber                  int      `json:"row_number" db:"row_number"`
	DisplayTAS                 *string  `json:"display_tas,omitempty" db:"display_tas"`
	ObjectClass                *string  `json:"object_class,omitempty" db:"object_class"`
	ProgramActivityCode        *string  `json:"program_activity_code,omitempty" db:"program_activity_code"`
	ProgramActivityName        *string  `json:"program_activity_name,omitempty" db:"program_activity_name"`
	ProgramActivityReportingKey *string `json:"program_activity_reporting_key,omitempty" db:"program_activity_reporting_key"`
	ByDirectReimbursableFun    *string  `json:"by_direct_reimbursable_fun,omitempty" db:"by_direct_reimbursable_fun"`
	DisasterEmergencyFundCode  *string  `json:"disaster_emergency_fund_code,omitempty" db:"disaster_emergency_fund_code"`
	PriorYearAdjustment        *string  `json:"prior_year_adjustment,omitempty" db:"prior_year_adjustment"`
	GrossOutlayAmountByProgram *float64 `json:"gross_outlay_amount_by_pro_cpe,omitempty" db:"gross_outlay_amount_by_pro_cpe"`
	GrossOutlaysDeliveredPaid  *float64 `json:"gross_outlays_delivered_or_cpe,omitempty" db:"gross_outlays_delivered_or_cpe"`
	GrossOutlaysUndeliveredFYB *float64 `json:"gross_outlays_undelivered_fyb,omitempty" db:"gross_outlays_undelivered_fyb"`
	ObligationsIncurredByProgram *float64 `json:"obligations_incurred_by_pr_cpe,omitempty" db:"obligations_incurred_by_pr_cpe"`
	ObligationsDeliveredPaid   *float64 `json:"obligations_delivered_orde_cpe,omitempty" db:"obligations_delivered_orde_cpe"`
	ObligationsUndeliveredUnpaid *float64 `json:"obligations_undelivered_or_cpe,omitempty" db:"obligations_undelivered_or_cpe"`
	DeobligationsRecoveries    *float64 `json:"deobligations_recov_by_pro_cpe,omitempty" db:"deobligations_recov_by_pro_cpe"`
	CreatedAt                  time.Time `json:"created_at" db:"created_at"`
}

// AwardFinancialRow is one staged row of an award-financial (C) file
type AwardFinancialRow struct {
	ID                         string   `json:"id" db:"id"`
	SubmissionID               string   `json:"submission_id" db:"submission_id"`
	JobID                      string   `json:"job_id" db:"job_id"`
	RowNumber                  int      `json:"row_number" db:"row_number"`
	DisplayTAS                 *string  `json:"display_tas,omitempty" db:"display_tas"`
	PIID                       *string  `json:"piid,omitempty" db:"piid"`
	FAIN                       *string  `json:"fain,omitempty" db:"fain"`
	URI                        *string  `json:"uri,omitempty" db:"uri"`
	ObjectClass                *string  `json:"object_class,omitempty" db:"object_class"`
	ProgramActivityCode        *string  `json:"program_activity_code,omitempty" db:"program_activity_code"`
	ProgramActivityReportingKey *string `json:"program_activity_reporting_key,omitempty" db:"program_activity_reporting_key"`
	ByDirectReimbursableFun    *string  `json:"by_direct_reimbursable_fun,omitempty" db:"by_direct_reimbursable_fun"`
	DisasterEmergencyFundCode  *string  `json:"disaster_emergency_fund_code,omitempty" db:"disaster_emergency_fund_code"`
	PriorYearAdjustment        *string  `json:"prior_year_adjustment,omitempty" db:"prior_year_adjustment"`
	TransactionObligatedAmount *float64 `json:"transaction_obligated_amou,omitempty" db:"transaction_obligated_amou"`
	GrossOutlayAmountByAwardFYB *float64 `json:"gross_outlay_amount_by_awa_fyb,omitempty" db:"gross_outlay_amount_by_awa_fyb"`
	GrossOutlayAmountByAwardCPE *float64 `json:"gross_outlay_amount_by_awa_cpe,omitempty" db:"gross_outlay_amount_by_awa_cpe"`
	CreatedAt                  time.Time `json:"created_at" db:"created_at"`
}

// FABSRow is one staged row of a detached assistance (FABS) submission.
// The derived columns at the bottom are populated only at publication time.
type FABSRow struct {
	ID                        string   `json:"id" db:"id"`
	SubmissionID              string   `json:"submission_id" db:"submission_id"`
	JobID                     string   `json:"job_id" db:"job_id"`
	RowNumber                 int      `json:"row_number" db:"row_number"`
	AFAGeneratedUnique        *string  `json:"afa_generated_unique,omitempty" db:"afa_generated_unique"`
	AwardingSubTierAgencyC    *string  `json:"awarding_sub_tier_agency_c,omitempty" db:"awarding_sub_tier_agency_c"`
	FAIN                      *string  `json:"fain,omitempty" db:"fain"`
	URI                       *string  `json:"uri,omitempty" db:"uri"`
	AwardModificationAmendme  *string  `json:"award_modification_amendme,omitempty" db:"award_modification_amendme"`
	CFDANumber                *string  `json:"cfda_number,omitempty" db:"cfda_number"`
	ActionDate                *string  `json:"action_date,omitempty" db:"action_date"` // YYYYMMDD as submitted
	ActionType                *string  `json:"action_type,omitempty" db:"action_type"`
	CorrectionDeleteIndicatr  *string  `json:"correction_delete_indicatr,omitempty" db:"correction_delete_indicatr"`
	UEI                       *string  `json:"uei,omitempty" db:"uei"`
	LegalEntityCountryCode    *string  `json:"legal_entity_country_code,omitempty" db:"legal_entity_country_code"`
	LegalEntityZip5           *string  `json:"legal_entity_zip5,omitempty" db:"legal_entity_zip5"`
	LegalEntityZipLast4       *string  `json:"legal_entity_zip_last4,omitempty" db:"legal_entity_zip_last4"`
	PPoPCode                  *string  `json:"place_of_performance_code,omitempty" db:"place_of_performance_code"`
	PPoPZip4A                 *string  `json:"place_of_performance_zip4a,omitempty" db:"place_of_performance_zip4a"`
	PPoPCountryCode           *string  `json:"place_of_perform_country_c,omitempty" db:"place_of_perform_country_c"`
	AwardingOfficeCode        *string  `json:"awarding_office_code,omitempty" db:"awarding_office_code"`
	FundingOfficeCode         *string  `json:"funding_office_code,omitempty" db:"funding_office_code"`
	BusinessTypes             *string  `json:"business_types,omitempty" db:"business_types"`
	AssistanceType            *string  `json:"assistance_type,omitempty" db:"assistance_type"`
	RecordType                *int     `json:"record_type,omitempty" db:"record_type"`
	FederalActionObligation   *float64 `json:"federal_action_obligation,omitempty" db:"federal_action_obligation"`
	NonFederalFundingAmount   *float64 `json:"non_federal_funding_amount,omitempty" db:"non_federal_funding_amount"`

	// Derived at publication (never during validation)
	TotalFundingAmount    *float64 `json:"total_funding_amount,omitempty" db:"total_funding_amount"`
	CFDATitle             *string  `json:"cfda_title,omitempty" db:"cfda_title"`
	AwardingAgencyCode    *string  `json:"awarding_agency_code,omitempty" db:"awarding_agency_code"`
	AwardingAgencyName    *string  `json:"awarding_agency_name,omitempty" db:"awarding_agency_name"`
	AwardingOfficeName    *string  `json:"awarding_office_name,omitempty" db:"awarding_office_name"`
	FundingOfficeName     *string  `json:"funding_office_name,omitempty" db:"funding_office_name"`
	PPoPStateName         *string  `json:"place_of_perform_state_nam,omitempty" db:"place_of_perform_state_nam"`
	PPoPCountyName        *string  `json:"place_of_perform_county_na,omitempty" db:"place_of_perform_county_na"`
	PPoPCityName          *string  `json:"place_of_performance_city,omitempty" db:"place_of_performance_city"`
	PPoPCountryName       *string  `json:"place_of_perform_country_n,omitempty" db:"place_of_perform_country_n"`
	LegalEntityStateCode  *string  `json:"legal_entity_state_code,omitempty" db:"legal_entity_state_code"`
	LegalEntityCountyName *string  `json:"legal_entity_county_name,omitempty" db:"legal_entity_county_name"`
	LegalEntityCongressional *string `json:"legal_entity_congressional,omitempty" db:"legal_entity_congressional"`
	LegalEntityCountryName *string `json:"legal_entity_country_name,omitempty" db:"legal_entity_country_name"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UniqueKey returns the detached-assistance unique award key, lower-cased so
// duplicate detection is case-insensitive.
func (r *FABSRow) UniqueKey() string {
	return FABSUniqueKey(r.AwardingSubTierAgencyC, r.FAIN, r.URI, r.AwardModificationAmendme, r.CFDANumber)
}
