package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishStatus_IsPublished(t *testing.T) {
	assert.False(t, PublishStatusUnpublished.IsPublished())
	assert.False(t, PublishStatusPublishing.IsPublished())
	assert.True(t, PublishStatusPublished.IsPublished())

	// An updated submission still occupies its reporting window.
	assert.True(t, PublishStatusUpdated.IsPublished())
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.True(t, JobStatusFinished.IsTerminal())
	assert.True(t, JobStatusInvalid.IsTerminal())

	assert.False(t, JobStatusWaiting.IsTerminal())
	assert.False(t, JobStatusReady.IsTerminal())
	assert.False(t, JobStatusRunning.IsTerminal())
	assert.False(t, JobStatusFailed.IsTerminal())
}

func TestRule_HasPredicate(t *testing.T) {
	r := Rule{PredicateSQL: "SELECT row_number FROM fabs_staging"}
	assert.True(t, r.HasPredicate())

	placeholder := Rule{}
	assert.False(t, placeholder.HasPredicate())
}

func TestFABSRow_UniqueKey(t *testing.T) {
	sub := "1234"
	fain := "FAIN-1"
	mod := "0"
	cfda := "10.001"

	row := FABSRow{
		AwardingSubTierAgencyC:   &sub,
		FAIN:                     &fain,
		AwardModificationAmendme: &mod,
		CFDANumber:               &cfda,
	}
	assert.Equal(t, "1234_fain-1__0_10.001", row.UniqueKey())

	// Nil parts render empty, keeping the key shape stable.
	assert.Equal(t, "____", (&FABSRow{}).UniqueKey())
}
