package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReportingPeriod_MonthOnly(t *testing.T) {
	period, err := ParseReportingPeriod("01/2024", "03/2024", true)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), period.Start)
	assert.Equal(t, time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), period.End)
	assert.Equal(t, 2024, period.FiscalYear)
	assert.Equal(t, 6, period.FiscalPeriod)
}

func TestParseReportingPeriod_FullDates(t *testing.T) {
	period, err := ParseReportingPeriod("10/01/2023", "12/31/2023", true)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2023, time.October, 1, 0, 0, 0, 0, time.UTC), period.Start)
	assert.Equal(t, time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC), period.End)
	assert.Equal(t, 2024, period.FiscalYear)
	assert.Equal(t, 3, period.FiscalPeriod)
}

func TestParseReportingPeriod_Monthly(t *testing.T) {
	t.Run("SingleMonth", func(t *testing.T) {
		period, err := ParseReportingPeriod("11/2023", "11/2023", false)
		require.NoError(t, err)

		assert.Equal(t, 2024, period.FiscalYear)
		assert.Equal(t, 2, period.FiscalPeriod)
	})

	t.Run("OctoberFoldsIntoPeriodTwo", func(t *testing.T) {
		period, err := ParseReportingPeriod("10/2023", "10/2023", false)
		require.NoError(t, err)

		assert.Equal(t, 2024, period.FiscalYear)
		assert.Equal(t, 2, period.FiscalPeriod)
	})

	t.Run("SeptemberIsPeriodTwelve", func(t *testing.T) {
		period, err := ParseReportingPeriod("09/2024", "09/2024", false)
		require.NoError(t, err)

		assert.Equal(t, 2024, period.FiscalYear)
		assert.Equal(t, 12, period.FiscalPeriod)
	})
}

func TestParseReportingPeriod_Invalid(t *testing.T) {
	cases := []struct {
		name      string
		start     string
		end       string
		quarterly bool
	}{
		{"BadFormat", "2024-01", "2024-03", false},
		{"EndBeforeStart", "03/2024", "01/2024", false},
		{"BeforeFloor", "01/1998", "03/1998", false},
		{"AfterCeiling", "11/2099", "01/2100", false},
		{"QuarterWrongSpan", "01/2024", "02/2024", true},
		{"QuarterWrongBoundary", "02/2024", "04/2024", true},
		{"QuarterMidMonthStart", "01/15/2024", "03/31/2024", true},
		{"QuarterMidMonthEnd", "01/01/2024", "03/15/2024", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseReportingPeriod(tc.start, tc.end, tc.quarterly)
			assert.Error(t, err)
		})
	}
}

func TestParseReportingPeriod_QuarterBoundaries(t *testing.T) {
	good := [][2]string{
		{"10/2023", "12/2023"},
		{"01/2024", "03/2024"},
		{"04/2024", "06/2024"},
		{"07/2024", "09/2024"},
	}
	for _, pair := range good {
		_, err := ParseReportingPeriod(pair[0], pair[1], true)
		assert.NoError(t, err, "quarter %s-%s", pair[0], pair[1])
	}

	// Three-month spans that do not close a fiscal quarter are rejected.
	_, err := ParseReportingPeriod("02/2024", "04/2024", true)
	assert.Error(t, err)
}
