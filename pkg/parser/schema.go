package parser

import (
	"strconv"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// fileSchema describes one file type's expected header set. Headers compare
// case-insensitively; the canonical names are the staging column names.
type fileSchema struct {
	required []string
	optional []string
}

var schemas = map[models.FileType]fileSchema{
	models.FileTypeAppropriations: {
		required: []string{
			"display_tas", "allocation_transfer_agency", "agency_identifier",
			"beginning_period_of_availa", "ending_period_of_availabil",
			"availability_type_code", "main_account_code", "sub_account_code",
			"budget_authority_unobligat_fyb", "status_of_budgetary_resour_cpe",
			"gross_outlay_amount_by_tas_cpe", "obligations_incurred_total_cpe",
			"unobligated_balance_cpe",
		},
		optional: []string{
			"adjustments_to_unobligated_cpe", "borrowing_authority_amount_cpe",
			"contract_authority_amount_cpe", "other_budgetary_resources_cpe",
			"budget_authority_appropria_cpe",
		},
	},
	models.FileTypeObjectClass: {
		required: []string{
			"display_tas", "object_class", "by_direct_reimbursable_fun",
			"gross_outlay_amount_by_pro_cpe", "obligations_incurred_by_pr_cpe",
			"obligations_delivered_orde_cpe", "obligations_undelivered_or_cpe",
			"deobligations_recov_by_pro_cpe",
		},
		optional: []string{
			"program_activity_code", "program_activity_name",
			"program_activity_reporting_key", "disaster_emergency_fund_code",
			"prior_year_adjustment", "gross_outlays_delivered_or_cpe",
			"gross_outlays_undelivered_fyb",
		},
	},
	models.FileTypeAwardFinancial: {
		required: []string{
			"display_tas", "object_class", "by_direct_reimbursable_fun",
			"transaction_obligated_amou",
		},
		optional: []string{
			"piid", "fain", "uri", "program_activity_code",
			"program_activity_reporting_key", "disaster_emergency_fund_code",
			"prior_year_adjustment", "gross_outlay_amount_by_awa_fyb",
			"gross_outlay_amount_by_awa_cpe",
		},
	},
	models.FileTypeFABS: {
		required: []string{
			"awarding_sub_tier_agency_c", "fain", "uri",
			"award_modification_amendme", "cfda_number", "action_date",
			"action_type", "assistance_type", "record_type",
			"federal_action_obligation", "correction_delete_indicatr",
		},
		optional: []string{
			"afa_generated_unique", "uei", "legal_entity_country_code",
			"legal_entity_zip5", "legal_entity_zip_last4",
			"place_of_performance_code", "place_of_performance_zip4a",
			"place_of_perform_country_c", "awarding_office_code",
			"funding_office_code", "business_types",
			"non_federal_funding_amount",
		},
	},
}

// record is one parsed CSV row keyed by canonical header name
type record map[string]string

func (r record) str(name string) *string {
	v, ok := r[name]
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func (r record) num(name string) *float64 {
	s := r.str(name)
	if s == nil {
		return nil
	}
	cleaned := strings.ReplaceAll(*s, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "$")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &f
}

func (r record) intval(name string) *int {
	s := r.str(name)
	if s == nil {
		return nil
	}
	n, err := strconv.Atoi(*s)
	if err != nil {
		return nil
	}
	return &n
}

func buildAppropriationRow(rec record, submissionID, jobID string, rowNumber int) models.AppropriationRow {
	return models.AppropriationRow{
		SubmissionID:                submissionID,
		JobID:                       jobID,
		RowNumber:                   rowNumber,
		DisplayTAS:                  rec.str("display_tas"),
		AllocationTransferAgency:    rec.str("allocation_transfer_agency"),
		AgencyIdentifier:            rec.str("agency_identifier"),
		BeginningPeriodOfAvail:      rec.str("beginning_period_of_availa"),
		EndingPeriodOfAvail:         rec.str("ending_period_of_availabil"),
		AvailabilityTypeCode:        rec.str("availability_type_code"),
		MainAccountCode:             rec.str("main_account_code"),
		SubAccountCode:              rec.str("sub_account_code"),
		BudgetAuthorityUnobligatFYB: rec.num("budget_authority_unobligat_fyb"),
		StatusOfBudgetaryResTotal:   rec.num("status_of_budgetary_resour_cpe"),
		GrossOutlayAmountByTAS:      rec.num("gross_outlay_amount_by_tas_cpe"),
		ObligationsIncurredTotal:    rec.num("obligations_incurred_total_cpe"),
		AdjustmentsToUnobligatedCY:  rec.num("adjustments_to_unobligated_cpe"),
		BorrowingAuthorityAmount:    rec.num("borrowing_authority_amount_cpe"),
		ContractAuthorityAmount:     rec.num("contract_authority_amount_cpe"),
		OtherBudgetaryResources:     rec.num("other_budgetary_resources_cpe"),
		BudgetAuthorityAppropria:    rec.num("budget_authority_appropria_cpe"),
		UnobligatedBalance:          rec.num("unobligated_balance_cpe"),
	}
}

func buildObjectClassRow(rec record, submissionID, jobID string, rowNumber int) models.ObjectClassRow {
	return models.ObjectClassRow{
		SubmissionID:                 submissionID,
		JobID:                        jobID,
		RowNumber:                    rowNumber,
		DisplayTAS:                   rec.str("display_tas"),
		ObjectClass:                  rec.str("object_class"),
		ProgramActivityCode:          rec.str("program_activity_code"),
		ProgramActivityName:          rec.str("program_activity_name"),
		ProgramActivityReportingKey:  rec.str("program_activity_reporting_key"),
		ByDirectReimbursableFun:      rec.str("by_direct_reimbursable_fun"),
		DisasterEmergencyFundCode:    rec.str("disaster_emergency_fund_code"),
		PriorYearAdjustment:          rec.str("prior_year_adjustment"),
		GrossOutlayAmountByProgram:   rec.num("gross_outlay_amount_by_pro_cpe"),
		GrossOutlaysDeliveredPaid:    rec.num("gross_outlays_delivered_or_cpe"),
		GrossOutlaysUndeliveredFYB:   rec.num("gross_outlays_undelivered_fyb"),
		ObligationsIncurredByProgram: rec.num("obligations_incurred_by_pr_cpe"),
		ObligationsDeliveredPaid:     rec.num("obligations_delivered_orde_cpe"),
		ObligationsUndeliveredUnpaid: rec.num("obligations_undelivered_or_cpe"),
		DeobligationsRecoveries:      rec.num("deobligations_recov_by_pro_cpe"),
	}
}

func buildAwardFinancialRow(rec record, submissionID, jobID string, rowNumber int) models.AwardFinancialRow {
	return models.AwardFinancialRow{
		SubmissionID:                submissionID,
		JobID:                       jobID,
		RowNumber:                   rowNumber,
		DisplayTAS:                  rec.str("display_tas"),
		PIID:                        rec.str("piid"),
		FAIN:                        rec.str("fain"),
		URI:                         rec.str("uri"),
		ObjectClass:                 rec.str("object_class"),
		ProgramActivityCode:         rec.str("program_activity_code"),
		ProgramActivityReportingKey: rec.str("program_activity_reporting_key"),
		ByDirectReimbursableFun:     rec.str("by_direct_reimbursable_fun"),
		DisasterEmergencyFundCode:   rec.str("disaster_emergency_fund_code"),
		PriorYearAdjustment:         rec.str("prior_year_adjustment"),
		TransactionObligatedAmount:  rec.num("transaction_obligated_amou"),
		GrossOutlayAmountByAwardFYB: rec.num("gross_outlay_amount_by_awa_fyb"),
		GrossOutlayAmountByAwardCPE: rec.num("gross_outlay_amount_by_awa_cpe"),
	}
}

func buildFABSRow(rec record, submissionID, jobID string, rowNumber int) models.FABSRow {
	row := models.FABSRow{
		SubmissionID:             submissionID,
		JobID:                    jobID,
		RowNumber:                rowNumber,
		AFAGeneratedUnique:       rec.str("afa_generated_unique"),
		AwardingSubTierAgencyC:   rec.str("awarding_sub_tier_agency_c"),
		FAIN:                     rec.str("fain"),
		URI:                      rec.str("uri"),
		AwardModificationAmendme: rec.str("award_modification_amendme"),
		CFDANumber:               rec.str("cfda_number"),
		ActionDate:               normalizeActionDate(rec.str("action_date")),
		ActionType:               rec.str("action_type"),
		CorrectionDeleteIndicatr: rec.str("correction_delete_indicatr"),
		UEI:                      rec.str("uei"),
		LegalEntityCountryCode:   rec.str("legal_entity_country_code"),
		LegalEntityZip5:          rec.str("legal_entity_zip5"),
		LegalEntityZipLast4:      rec.str("legal_entity_zip_last4"),
		PPoPCode:                 rec.str("place_of_performance_code"),
		PPoPZip4A:                rec.str("place_of_performance_zip4a"),
		PPoPCountryCode:          rec.str("place_of_perform_country_c"),
		AwardingOfficeCode:       rec.str("awarding_office_code"),
		FundingOfficeCode:        rec.str("funding_office_code"),
		BusinessTypes:            rec.str("business_types"),
		AssistanceType:           rec.str("assistance_type"),
		RecordType:               rec.intval("record_type"),
		FederalActionObligation:  rec.num("federal_action_obligation"),
		NonFederalFundingAmount:  rec.num("non_federal_funding_amount"),
	}

	if row.AFAGeneratedUnique == nil {
		key := row.UniqueKey()
		row.AFAGeneratedUnique = &key
	}
	return row
}

// normalizeActionDate converts YYYYMMDD and MM/DD/YYYY submissions to
// ISO YYYY-MM-DD. Unparseable dates pass through untouched so the date rules
// can flag them against the original text.
func normalizeActionDate(raw *string) *string {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)

	if len(s) == 8 && !strings.ContainsAny(s, "/-") {
		iso := s[0:4] + "-" + s[4:6] + "-" + s[6:8]
		return &iso
	}

	if parts := strings.Split(s, "/"); len(parts) == 3 && len(parts[2]) == 4 {
		month := pad2(parts[0])
		day := pad2(parts[1])
		iso := parts[2] + "-" + month + "-" + day
		return &iso
	}

	return raw
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
