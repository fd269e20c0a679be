package crossfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func num(f float64) *float64 { return &f }

func TestDeriveFundingTotal(t *testing.T) {
	d := &Deriver{}

	t.Run("BothAmounts", func(t *testing.T) {
		row := models.FABSRow{FederalActionObligation: num(100), NonFederalFundingAmount: num(25.5)}
		d.deriveFundingTotal(&row)
		require.NotNil(t, row.TotalFundingAmount)
		assert.Equal(t, 125.5, *row.TotalFundingAmount)
	})

	t.Run("OneSideNilCountsAsZero", func(t *testing.T) {
		row := models.FABSRow{FederalActionObligation: num(100)}
		d.deriveFundingTotal(&row)
		require.NotNil(t, row.TotalFundingAmount)
		assert.Equal(t, 100.0, *row.TotalFundingAmount)
	})

	t.Run("BothNilStaysNil", func(t *testing.T) {
		row := models.FABSRow{}
		d.deriveFundingTotal(&row)
		assert.Nil(t, row.TotalFundingAmount)
	})

	t.Run("NegativeObligation", func(t *testing.T) {
		// Deobligations carry negative amounts and still total.
		row := models.FABSRow{FederalActionObligation: num(-50), NonFederalFundingAmount: num(20)}
		d.deriveFundingTotal(&row)
		require.NotNil(t, row.TotalFundingAmount)
		assert.Equal(t, -30.0, *row.TotalFundingAmount)
	})
}
