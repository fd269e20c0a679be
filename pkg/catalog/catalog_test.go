package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func ftPtr(ft models.FileType) *models.FileType {
	return &ft
}

func testCatalog(rules ...models.Rule) *Catalog {
	c := &Catalog{rules: map[catalogKey]models.Rule{}}
	for _, r := range rules {
		c.rules[catalogKey{fileType: r.FileType, ruleID: r.RuleID}] = r
	}
	return c
}

func TestCatalog_RulesFor(t *testing.T) {
	c := testCatalog(
		models.Rule{RuleID: "a3", FileType: models.FileTypeAppropriations, PredicateSQL: "SELECT 1", Ordinal: 3, IsActive: true},
		models.Rule{RuleID: "a1", FileType: models.FileTypeAppropriations, PredicateSQL: "SELECT 1", Ordinal: 1, IsActive: true},
		models.Rule{RuleID: "a2", FileType: models.FileTypeAppropriations, PredicateSQL: "SELECT 1", Ordinal: 1, IsActive: true},
		models.Rule{RuleID: "b1", FileType: models.FileTypeObjectClass, PredicateSQL: "SELECT 1", Ordinal: 1, IsActive: true},
		models.Rule{RuleID: "a4", FileType: models.FileTypeAppropriations, PredicateSQL: "SELECT 1", Ordinal: 4, IsActive: false},
		models.Rule{RuleID: "a5", FileType: models.FileTypeAppropriations, PredicateSQL: "", Ordinal: 5, IsActive: true},
		models.Rule{RuleID: "x1", FileType: models.FileTypeAppropriations, TargetFileType: ftPtr(models.FileTypeObjectClass), PredicateSQL: "SELECT 1", Ordinal: 0, IsActive: true},
	)

	rules := c.RulesFor(models.FileTypeAppropriations)
	require.Len(t, rules, 3)

	// Ordinal first, rule id breaks ties. Inactive, predicate-less, and
	// cross-file entries are excluded.
	assert.Equal(t, "a1", rules[0].RuleID)
	assert.Equal(t, "a2", rules[1].RuleID)
	assert.Equal(t, "a3", rules[2].RuleID)
}

func TestCatalog_CrossFileRules(t *testing.T) {
	c := testCatalog(
		models.Rule{RuleID: "b9", FileType: models.FileTypeObjectClass, TargetFileType: ftPtr(models.FileTypeAwardFinancial), PredicateSQL: "SELECT 1", Ordinal: 2, IsActive: true},
		models.Rule{RuleID: "b8", FileType: models.FileTypeObjectClass, TargetFileType: ftPtr(models.FileTypeAwardFinancial), PredicateSQL: "SELECT 1", Ordinal: 1, IsActive: true},
		models.Rule{RuleID: "b7", FileType: models.FileTypeObjectClass, TargetFileType: ftPtr(models.FileTypeAwardFinancial), PredicateSQL: "SELECT 1", Ordinal: 3, IsActive: false},
		models.Rule{RuleID: "a7", FileType: models.FileTypeAppropriations, TargetFileType: ftPtr(models.FileTypeObjectClass), PredicateSQL: "SELECT 1", Ordinal: 1, IsActive: true},
		models.Rule{RuleID: "b1", FileType: models.FileTypeObjectClass, PredicateSQL: "SELECT 1", Ordinal: 1, IsActive: true},
	)

	pair := models.CrossFilePair{First: models.FileTypeObjectClass, Second: models.FileTypeAwardFinancial}
	rules := c.CrossFileRules(pair)
	require.Len(t, rules, 2)
	assert.Equal(t, "b8", rules[0].RuleID)
	assert.Equal(t, "b9", rules[1].RuleID)
}

func TestCatalog_Get(t *testing.T) {
	c := testCatalog(
		models.Rule{RuleID: "a1", FileType: models.FileTypeAppropriations, PredicateSQL: "SELECT 1", IsActive: true},
	)

	r, ok := c.Get(models.FileTypeAppropriations, "a1")
	require.True(t, ok)
	assert.Equal(t, "a1", r.RuleID)

	// Same rule id under a different file type is a different key.
	_, ok = c.Get(models.FileTypeObjectClass, "a1")
	assert.False(t, ok)

	assert.Equal(t, 1, c.Size())
}
