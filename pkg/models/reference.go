package models

import "time"

// Reference tables are read-only to the engine. Their refresh is an
// out-of-band admin operation.

// CountryCode is one row of the country reference table
type CountryCode struct {
	Code        string `json:"code" db:"code"`
	Name        string `json:"name" db:"name"`
	IsTerritory bool   `json:"is_territory" db:"is_territory"` // territory/free-state codes are forbidden in certain rules
}

// Zip is one ZIP5/ZIP+4 row with geographic attributes
type Zip struct {
	Zip5                  string  `json:"zip5" db:"zip5"`
	Zip4                  *string `json:"zip_last4,omitempty" db:"zip_last4"`
	StateAbbreviation     string  `json:"state_abbreviation" db:"state_abbreviation"`
	StateName             string  `json:"state_name" db:"state_name"`
	CountyNumber          *string `json:"county_number,omitempty" db:"county_number"`
	CountyName            *string `json:"county_name,omitempty" db:"county_name"`
	CityName              *string `json:"city_name,omitempty" db:"city_name"`
	CongressionalDistrict *string `json:"congressional_district,omitempty" db:"congressional_district"`
}

// CFDAProgram is one assistance-listing program with its validity window
type CFDAProgram struct {
	ProgramNumber string     `json:"program_number" db:"program_number"`
	ProgramTitle  string     `json:"program_title" db:"program_title"`
	PublishedDate *time.Time `json:"published_date,omitempty" db:"published_date"`
	ArchivedDate  *time.Time `json:"archived_date,omitempty" db:"archived_date"`
}

// SubTierAgency maps a sub-tier code to its CGAC agency
type SubTierAgency struct {
	SubTierCode string `json:"sub_tier_code" db:"sub_tier_code"`
	SubTierName string `json:"sub_tier_name" db:"sub_tier_name"`
	AgencyCode  string `json:"agency_code" db:"agency_code"`
	AgencyName  string `json:"agency_name" db:"agency_name"`
}

// SAMRecipient is one recipient registration with its validity window
type SAMRecipient struct {
	UEI               string     `json:"uei" db:"uei"`
	LegalBusinessName *string    `json:"legal_business_name,omitempty" db:"legal_business_name"`
	RegistrationDate  *time.Time `json:"registration_date,omitempty" db:"registration_date"`
	ExpirationDate    *time.Time `json:"expiration_date,omitempty" db:"expiration_date"`
}

// SF133Line is one GTAS SF-133 balance line used by A-file rules
type SF133Line struct {
	DisplayTAS   string  `json:"display_tas" db:"display_tas"`
	FiscalYear   int     `json:"fiscal_year" db:"fiscal_year"`
	FiscalPeriod int     `json:"fiscal_period" db:"fiscal_period"`
	Line         int     `json:"line" db:"line"`
	Amount       float64 `json:"amount" db:"amount"`
}

// Office maps an office code to its name for publication derivations
type Office struct {
	OfficeCode string `json:"office_code" db:"office_code"`
	OfficeName string `json:"office_name" db:"office_name"`
}
