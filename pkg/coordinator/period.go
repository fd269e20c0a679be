package coordinator

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
)

// Reporting windows are bounded to the range the reference data covers.
var (
	periodFloor   = time.Date(1999, time.October, 1, 0, 0, 0, 0, time.UTC)
	periodCeiling = time.Date(2099, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// ReportingPeriod is a validated, normalized submission window
type ReportingPeriod struct {
	Start        time.Time
	End          time.Time
	FiscalYear   int
	FiscalPeriod int
}

// ParseReportingPeriod validates and normalizes the requested reporting
// window. Dates arrive as MM/YYYY or MM/DD/YYYY; month-only dates normalize
// to the first and last day of the month. Quarterly windows must span exactly
// three months and end on a fiscal quarter boundary.
func ParseReportingPeriod(startDate, endDate string, quarterly bool) (*ReportingPeriod, error) {
	start, err := parsePeriodDate(startDate, false)
	if err != nil {
		return nil, err
	}
	end, err := parsePeriodDate(endDate, true)
	if err != nil {
		return nil, err
	}

	if end.Before(start) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "reporting period end precedes start")
	}
	if start.Before(periodFloor) || end.After(periodCeiling) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "reporting period outside the supported range")
	}

	if quarterly {
		if err := validateQuarter(start, end); err != nil {
			return nil, err
		}
	}

	return &ReportingPeriod{
		Start:        start,
		End:          end,
		FiscalYear:   fiscalYear(end),
		FiscalPeriod: fiscalPeriod(end),
	}, nil
}

// parsePeriodDate accepts MM/YYYY or MM/DD/YYYY. Month-only end dates snap to
// the last day of the month.
func parsePeriodDate(s string, isEnd bool) (time.Time, error) {
	if t, err := time.Parse("01/2006", s); err == nil {
		if isEnd {
			return t.AddDate(0, 1, -1), nil
		}
		return t, nil
	}
	if t, err := time.Parse("01/02/2006", s); err == nil {
		return t, nil
	}
	return time.Time{}, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid reporting date %q, expected MM/YYYY or MM/DD/YYYY", s)
}

// validateQuarter requires a first-of-month start, a last-of-month end three
// months later, and an end month closing a fiscal quarter (Dec, Mar, Jun,
// Sep).
func validateQuarter(start, end time.Time) error {
	if start.Day() != 1 {
		return httperror.NewHTTPError(http.StatusBadRequest, "quarterly period must start on the first of a month")
	}
	lastOfMonth := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
	if end.Day() != lastOfMonth.Day() {
		return httperror.NewHTTPError(http.StatusBadRequest, "quarterly period must end on the last of a month")
	}

	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if months != 2 {
		return httperror.NewHTTPError(http.StatusBadRequest, "quarterly period must span exactly three months")
	}

	switch end.Month() {
	case time.December, time.March, time.June, time.September:
		return nil
	}
	return httperror.NewHTTPError(http.StatusBadRequest, "quarterly period must end on a fiscal quarter boundary")
}

// fiscalYear is the federal fiscal year containing the window end: October
// through December belong to the next calendar year's fiscal year.
func fiscalYear(end time.Time) int {
	if end.Month() >= time.October {
		return end.Year() + 1
	}
	return end.Year()
}

// fiscalPeriod numbers months from October. Period 1 folds into period 2
// because October is always reported with November.
func fiscalPeriod(end time.Time) int {
	p := int(end.Month()) - 9
	if p <= 0 {
		p += 12
	}
	if p == 1 {
		p = 2
	}
	return p
}
