package evaluator

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestRenderMessage(t *testing.T) {
	values := map[string]string{
		"tas":                   "012-3456",
		"obligation_amount_cpe": "100.50",
	}

	t.Run("SubstitutesPlaceholders", func(t *testing.T) {
		out := RenderMessage("TAS {tas} obligation {obligation_amount_cpe} does not balance", values)
		assert.Equal(t, "TAS 012-3456 obligation 100.50 does not balance", out)
	})

	t.Run("MissingColumnRendersEmpty", func(t *testing.T) {
		out := RenderMessage("value {not_a_column} missing", values)
		assert.Equal(t, "value  missing", out)
	})

	t.Run("NoPlaceholders", func(t *testing.T) {
		out := RenderMessage("gross outlay does not balance", values)
		assert.Equal(t, "gross outlay does not balance", out)
	})

	t.Run("UnclosedBraceLeftVerbatim", func(t *testing.T) {
		out := RenderMessage("TAS {tas and more", values)
		assert.Equal(t, "TAS {tas and more", out)
	})

	t.Run("AdjacentPlaceholders", func(t *testing.T) {
		out := RenderMessage("{tas}{obligation_amount_cpe}", values)
		assert.Equal(t, "012-3456100.50", out)
	})
}

func TestShapeViolation(t *testing.T) {
	e := &Evaluator{}
	r := models.Rule{
		RuleID:       "b9_object_class",
		Severity:     models.SeverityFatal,
		Message:      "Object class {object_class} is not valid for TAS {tas}",
		UniqueIDCols: pq.StringArray{"tas", "object_class"},
	}

	v := e.shapeViolation(r, map[string]any{
		"row_number":   int64(7),
		"tas":          "012-3456",
		"object_class": []byte("1110"),
	})

	assert.Equal(t, "b9_object_class", v.RuleID)
	assert.Equal(t, models.SeverityFatal, v.Severity)
	assert.Equal(t, 7, v.RowNumber)
	assert.Equal(t, "Object class 1110 is not valid for TAS 012-3456", v.Message)
	assert.Equal(t, "tas: 012-3456, object_class: 1110", v.UniqueID)

	// Field names sort alphabetically and row_number is excluded.
	assert.Equal(t, []string{"object_class", "tas"}, v.FieldNames)
	assert.Equal(t, []string{"1110", "012-3456"}, v.FieldValues)
}

func TestShapeViolation_NoRowNumber(t *testing.T) {
	e := &Evaluator{}
	v := e.shapeViolation(models.Rule{RuleID: "a33"}, map[string]any{"tas": "012"})
	assert.Equal(t, 0, v.RowNumber)
	assert.Equal(t, "", v.UniqueID)
}

func TestToString(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"Nil", nil, ""},
		{"Bytes", []byte("abc"), "abc"},
		{"String", "abc", "abc"},
		{"Time", time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC), "2024-03-31"},
		{"Float", float64(100.5), "100.5"},
		{"FloatWhole", float64(42), "42"},
		{"Int", int64(-3), "-3"},
		{"Bool", true, "true"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, toString(tc.in))
		})
	}
}

func TestToInt(t *testing.T) {
	assert.Equal(t, 5, toInt(int64(5)))
	assert.Equal(t, 5, toInt(int32(5)))
	assert.Equal(t, 5, toInt(5))
	assert.Equal(t, 5, toInt(float64(5)))
	assert.Equal(t, 5, toInt([]byte("5")))
	assert.Equal(t, 5, toInt("5"))
	assert.Equal(t, 0, toInt("not a number"))
	assert.Equal(t, 0, toInt(nil))
}
