package pubdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func str(s string) *string { return &s }

func fabsRow(rowNumber int, fain, cdi string) models.FABSRow {
	row := models.FABSRow{
		RowNumber:              rowNumber,
		AwardingSubTierAgencyC: str("1234"),
		FAIN:                   str(fain),
		CFDANumber:             str("10.001"),
	}
	if cdi != "" {
		row.CorrectionDeleteIndicatr = str(cdi)
	}
	return row
}

func TestClassify(t *testing.T) {
	rows := []models.FABSRow{
		fabsRow(1, "NEW-1", ""),
		fabsRow(2, "PUB-1", ""),
		fabsRow(3, "PUB-2", "C"),
		fabsRow(4, "PUB-3", "D"),
		fabsRow(5, "NEVER-PUB", "C"),
	}
	active := map[string]bool{
		rows[1].UniqueKey(): true,
		rows[2].UniqueKey(): true,
		rows[3].UniqueKey(): true,
	}

	plan := classify(rows, active, nil)

	require.Len(t, plan.New, 1)
	assert.Equal(t, 1, plan.New[0].RowNumber)

	// Corrections include the one targeting a never-published key; it simply
	// deactivates nothing.
	require.Len(t, plan.Corrections, 2)
	require.Len(t, plan.Deletes, 1)
	assert.Equal(t, 4, plan.Deletes[0].RowNumber)

	require.Len(t, plan.Conflicts, 1)
	assert.Equal(t, 2, plan.Conflicts[0].RowNumber)
	assert.Equal(t, rows[1].UniqueKey(), plan.Conflicts[0].UniqueAwardKey)

	assert.ElementsMatch(t, []string{rows[2].UniqueKey(), rows[3].UniqueKey()}, plan.DeactivateKeys)
}

func TestClassify_RepublishSupersedes(t *testing.T) {
	row := fabsRow(1, "MINE-1", "")
	key := row.UniqueKey()
	active := map[string]bool{key: true}

	t.Run("OtherSubmissionConflicts", func(t *testing.T) {
		plan := classify([]models.FABSRow{row}, active, nil)
		assert.Len(t, plan.Conflicts, 1)
		assert.Empty(t, plan.Corrections)
	})

	t.Run("OwnPriorPublicationSupersedes", func(t *testing.T) {
		plan := classify([]models.FABSRow{row}, active, map[string]bool{key: true})
		assert.Empty(t, plan.Conflicts)
		require.Len(t, plan.Corrections, 1)
		assert.Equal(t, []string{key}, plan.DeactivateKeys)
	})
}

func TestClassify_IndicatorNormalization(t *testing.T) {
	// Lowercase and padded indicators still classify.
	correction := fabsRow(1, "PUB-1", " c ")
	deletion := fabsRow(2, "PUB-2", "d")
	active := map[string]bool{
		correction.UniqueKey(): true,
		deletion.UniqueKey():   true,
	}

	plan := classify([]models.FABSRow{correction, deletion}, active, nil)
	assert.Len(t, plan.Corrections, 1)
	assert.Len(t, plan.Deletes, 1)
	assert.Empty(t, plan.Conflicts)
}

func TestIndicator(t *testing.T) {
	assert.Equal(t, "", indicator(nil))
	assert.Equal(t, "C", indicator(str("c")))
	assert.Equal(t, "D", indicator(str(" D ")))
	assert.Equal(t, "X", indicator(str("x")))
}

func TestFABSUniqueKey_CaseInsensitive(t *testing.T) {
	a := models.FABSUniqueKey(str("1234"), str("FAIN-1"), nil, str("0"), str("10.001"))
	b := models.FABSUniqueKey(str(" 1234 "), str("fain-1"), nil, str("0"), str("10.001"))
	assert.Equal(t, a, b)

	c := models.FABSUniqueKey(str("1234"), str("FAIN-2"), nil, str("0"), str("10.001"))
	assert.NotEqual(t, a, c)
}
