package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestValidateHeaders(t *testing.T) {
	schema := fileSchema{
		required: []string{"display_tas", "object_class"},
		optional: []string{"piid"},
	}

	t.Run("AllPresent", func(t *testing.T) {
		positions, missing, duplicated := validateHeaders([]string{"display_tas", "object_class", "piid"}, schema)
		assert.Empty(t, missing)
		assert.Empty(t, duplicated)
		assert.Equal(t, map[string]int{"display_tas": 0, "object_class": 1, "piid": 2}, positions)
	})

	t.Run("CaseAndWhitespaceInsensitive", func(t *testing.T) {
		_, missing, duplicated := validateHeaders([]string{" Display_TAS ", "OBJECT_CLASS"}, schema)
		assert.Empty(t, missing)
		assert.Empty(t, duplicated)
	})

	t.Run("BOMStripped", func(t *testing.T) {
		_, missing, _ := validateHeaders([]string{"\ufeffdisplay_tas", "object_class"}, schema)
		assert.Empty(t, missing)
	})

	t.Run("MissingRequired", func(t *testing.T) {
		_, missing, _ := validateHeaders([]string{"display_tas"}, schema)
		assert.Equal(t, []string{"object_class"}, missing)
	})

	t.Run("MissingOptionalIsFine", func(t *testing.T) {
		_, missing, _ := validateHeaders([]string{"display_tas", "object_class"}, schema)
		assert.Empty(t, missing)
	})

	t.Run("DuplicatedHeader", func(t *testing.T) {
		positions, _, duplicated := validateHeaders([]string{"display_tas", "object_class", "display_tas"}, schema)
		assert.Equal(t, []string{"display_tas"}, duplicated)
		// First occurrence wins the position.
		assert.Equal(t, 0, positions["display_tas"])
	})

	t.Run("UnknownHeadersIgnored", func(t *testing.T) {
		positions, missing, duplicated := validateHeaders([]string{"display_tas", "mystery", "object_class", "mystery"}, schema)
		assert.Empty(t, missing)
		assert.Empty(t, duplicated)
		assert.NotContains(t, positions, "mystery")
	})
}

func TestResult_Invalid(t *testing.T) {
	assert.False(t, (&Result{}).Invalid())
	assert.True(t, (&Result{MissingHeaders: []string{"fain"}}).Invalid())
	assert.True(t, (&Result{DuplicatedHeaders: []string{"uri"}}).Invalid())
	assert.False(t, (&Result{MalformedRows: 3}).Invalid())
}

func TestNormalizeActionDate(t *testing.T) {
	str := func(s string) *string { return &s }

	cases := []struct {
		name string
		in   *string
		want *string
	}{
		{"Nil", nil, nil},
		{"Compact", str("20240315"), str("2024-03-15")},
		{"Slashes", str("3/5/2024"), str("2024-03-05")},
		{"SlashesPadded", str("03/15/2024"), str("2024-03-15")},
		{"AlreadyISO", str("2024-03-15"), str("2024-03-15")},
		{"Garbage", str("not a date"), str("not a date")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizeActionDate(tc.in)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tc.want, *got)
		})
	}
}

func TestRecordConversions(t *testing.T) {
	rec := record{
		"fain":                      "ABC123",
		"blank":                     "   ",
		"federal_action_obligation": "$1,234.50",
		"record_type":               "2",
		"bad_number":                "n/a",
	}

	t.Run("Str", func(t *testing.T) {
		require.NotNil(t, rec.str("fain"))
		assert.Equal(t, "ABC123", *rec.str("fain"))
		assert.Nil(t, rec.str("blank"))
		assert.Nil(t, rec.str("absent"))
	})

	t.Run("Num", func(t *testing.T) {
		require.NotNil(t, rec.num("federal_action_obligation"))
		assert.Equal(t, 1234.50, *rec.num("federal_action_obligation"))
		assert.Nil(t, rec.num("bad_number"))
		assert.Nil(t, rec.num("absent"))
	})

	t.Run("Int", func(t *testing.T) {
		require.NotNil(t, rec.intval("record_type"))
		assert.Equal(t, 2, *rec.intval("record_type"))
		assert.Nil(t, rec.intval("bad_number"))
	})
}

func TestBuildFABSRow_DefaultsAFAKey(t *testing.T) {
	rec := record{
		"awarding_sub_tier_agency_c": "1234",
		"fain":                       "FAIN1",
		"award_modification_amendme": "0",
		"cfda_number":                "10.001",
	}

	row := buildFABSRow(rec, "sub-1", "job-1", 1)
	require.NotNil(t, row.AFAGeneratedUnique)
	assert.Equal(t, row.UniqueKey(), *row.AFAGeneratedUnique)

	rec["afa_generated_unique"] = "EXPLICIT-KEY"
	row = buildFABSRow(rec, "sub-1", "job-1", 2)
	require.NotNil(t, row.AFAGeneratedUnique)
	assert.Equal(t, "EXPLICIT-KEY", *row.AFAGeneratedUnique)
}

func TestSchemasCoverParseableTypes(t *testing.T) {
	for _, ft := range []models.FileType{
		models.FileTypeAppropriations,
		models.FileTypeObjectClass,
		models.FileTypeAwardFinancial,
		models.FileTypeFABS,
	} {
		_, ok := schemas[ft]
		assert.True(t, ok, "missing schema for %s", ft)
	}

	// Generated and cross-file pseudo-types are never parsed.
	_, ok := schemas[models.FileTypeD1]
	assert.False(t, ok)
}
