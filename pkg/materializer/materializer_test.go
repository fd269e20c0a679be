package materializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestReportKey(t *testing.T) {
	key := ReportKey("sub-1", models.FileTypeAppropriations, models.SeverityFatal)
	assert.Equal(t, "sub-1_A_fatal.csv", key)

	key = ReportKey("sub-1", models.FileTypeCrossFile, models.SeverityWarning)
	assert.Equal(t, "sub-1_crossfile_warning.csv", key)
}

func TestAggregate(t *testing.T) {
	m := &Materializer{config: Config{SampleSize: 100}}

	violations := []models.Violation{
		{RuleID: "a7", Severity: models.SeverityFatal, RowNumber: 3, Message: "budget does not balance"},
		{RuleID: "a7", Severity: models.SeverityFatal, RowNumber: 9, Message: "budget does not balance"},
		{RuleID: "a33", Severity: models.SeverityWarning, RowNumber: 5, Message: "missing TAS"},
		{RuleID: "a7", Severity: models.SeverityFatal, RowNumber: 12, Message: "budget does not balance"},
	}

	out := m.aggregate("job-1", models.FileTypeAppropriations, nil, violations)
	require.Len(t, out, 2)

	// fatal sorts before warning, then rule id
	assert.Equal(t, "a7", out[0].RuleID)
	assert.Equal(t, models.SeverityFatal, out[0].Severity)
	assert.Equal(t, 3, out[0].OccurrenceCount)
	assert.Equal(t, []int64{3, 9, 12}, []int64(out[0].RowNumberSample))
	assert.Equal(t, "job-1", out[0].JobID)
	assert.Equal(t, models.FileTypeAppropriations, out[0].FileType)

	assert.Equal(t, "a33", out[1].RuleID)
	assert.Equal(t, models.SeverityWarning, out[1].Severity)
	assert.Equal(t, 1, out[1].OccurrenceCount)
}

func TestAggregate_SampleCapped(t *testing.T) {
	m := &Materializer{config: Config{SampleSize: 2}}

	violations := []models.Violation{
		{RuleID: "b9", Severity: models.SeverityFatal, RowNumber: 1},
		{RuleID: "b9", Severity: models.SeverityFatal, RowNumber: 2},
		{RuleID: "b9", Severity: models.SeverityFatal, RowNumber: 3},
	}

	out := m.aggregate("job-1", models.FileTypeObjectClass, nil, violations)
	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].OccurrenceCount)
	assert.Len(t, out[0].RowNumberSample, 2)
}

func TestAggregate_SameRuleBothSeverities(t *testing.T) {
	m := &Materializer{config: Config{SampleSize: 100}}

	// A rule id can appear at both severities across catalog revisions; the
	// aggregates must not merge them.
	violations := []models.Violation{
		{RuleID: "c11", Severity: models.SeverityFatal, RowNumber: 1},
		{RuleID: "c11", Severity: models.SeverityWarning, RowNumber: 2},
	}

	out := m.aggregate("job-1", models.FileTypeAwardFinancial, nil, violations)
	require.Len(t, out, 2)
	assert.Equal(t, models.SeverityFatal, out[0].Severity)
	assert.Equal(t, models.SeverityWarning, out[1].Severity)
}

func TestAggregate_CrossFileTarget(t *testing.T) {
	m := &Materializer{config: Config{SampleSize: 100}}
	target := models.FileTypeObjectClass

	out := m.aggregate("job-1", models.FileTypeCrossFile, &target, []models.Violation{
		{RuleID: "a18", Severity: models.SeverityFatal, RowNumber: 4},
	})
	require.Len(t, out, 1)
	require.NotNil(t, out[0].TargetFileType)
	assert.Equal(t, models.FileTypeObjectClass, *out[0].TargetFileType)
}

func TestAggregate_Empty(t *testing.T) {
	m := &Materializer{config: Config{SampleSize: 100}}
	out := m.aggregate("job-1", models.FileTypeFABS, nil, nil)
	assert.Empty(t, out)
}
