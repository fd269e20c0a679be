package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestNewBaseEvent(t *testing.T) {
	evt := NewBaseEvent(EventTypeSubmissionCreated)

	assert.Equal(t, EventTypeSubmissionCreated, evt.EventType)
	assert.Equal(t, SchemaVersion, evt.SchemaVersion)
	assert.NotEmpty(t, evt.CorrelationID)
	assert.False(t, evt.Timestamp.IsZero())
}

func TestSubmissionLifecycleEventJSON(t *testing.T) {
	evt := SubmissionLifecycleEvent{
		BaseEvent:     NewBaseEvent(EventTypeSubmissionPublished),
		SubmissionID:  "sub-1",
		AgencyCode:    "012",
		FiscalYear:    2024,
		FiscalPeriod:  6,
		PublishStatus: models.PublishStatusPublished,
	}

	data, err := json.Marshal(evt)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "submission.published", decoded["event_type"])
	assert.Equal(t, "published", decoded["publish_status"])
	assert.Contains(t, decoded, "schema_version")

	// published_by omits when empty so consumers can distinguish system moves
	// from user publications.
	assert.NotContains(t, decoded, "published_by")
}

func TestJobLifecycleEventJSON(t *testing.T) {
	ft := models.FileTypeFABS
	evt := JobLifecycleEvent{
		BaseEvent:    NewBaseEvent(EventTypeJobInvalid),
		JobID:        "job-1",
		SubmissionID: "sub-1",
		JobType:      models.JobTypeRecordValidation,
		FileType:     &ft,
		Status:       models.JobStatusInvalid,
		Message:      "file rejected: missing headers [fain]",
	}

	data, err := json.Marshal(evt)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "job.invalid", decoded["event_type"])
	assert.Equal(t, "FABS", decoded["file_type"])
	assert.Equal(t, "invalid", decoded["status"])
}
