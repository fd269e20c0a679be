package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestParseUploadCompleted(t *testing.T) {
	msg := &IncomingMessage{
		Value: []byte(`{
			"type": "upload.completed",
			"submission_id": "sub-1",
			"file_type": "A",
			"filename": "appropriations.csv",
			"object_key": "uploads/sub-1/appropriations.csv",
			"size_bytes": 1024
		}`),
	}

	require.NoError(t, msg.ParseUploadCompleted())
	require.NotNil(t, msg.UploadCompleted)
	assert.Equal(t, "sub-1", msg.UploadCompleted.SubmissionID)
	assert.Equal(t, models.FileTypeAppropriations, msg.UploadCompleted.FileType)
	assert.Equal(t, "uploads/sub-1/appropriations.csv", msg.UploadCompleted.ObjectKey)
	assert.Equal(t, int64(1024), msg.UploadCompleted.SizeBytes)
}

func TestParseUploadCompleted_BadJSON(t *testing.T) {
	msg := &IncomingMessage{Value: []byte("not json")}
	assert.Error(t, msg.ParseUploadCompleted())
	assert.Nil(t, msg.UploadCompleted)
}

func TestIsUploadCompleted(t *testing.T) {
	t.Run("ByHeader", func(t *testing.T) {
		msg := &IncomingMessage{Headers: map[string]string{"type": "upload.completed"}}
		assert.True(t, msg.IsUploadCompleted())
	})

	t.Run("ByBody", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"type": "upload.completed"}`)}
		assert.True(t, msg.IsUploadCompleted())
	})

	t.Run("OtherType", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"type": "submission.created"}`)}
		assert.False(t, msg.IsUploadCompleted())
	})

	t.Run("Unparseable", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte("garbage")}
		assert.False(t, msg.IsUploadCompleted())
	})
}

func TestGetSubmissionID(t *testing.T) {
	t.Run("FromParsedBody", func(t *testing.T) {
		msg := &IncomingMessage{
			Key:             "key-id",
			Headers:         map[string]string{"submission_id": "header-id"},
			UploadCompleted: &UploadCompletedMessage{SubmissionID: "body-id"},
		}
		assert.Equal(t, "body-id", msg.GetSubmissionID())
	})

	t.Run("FallsBackToHeader", func(t *testing.T) {
		msg := &IncomingMessage{Key: "key-id", Headers: map[string]string{"submission_id": "header-id"}}
		assert.Equal(t, "header-id", msg.GetSubmissionID())
	})

	t.Run("FallsBackToKey", func(t *testing.T) {
		msg := &IncomingMessage{Key: "key-id"}
		assert.Equal(t, "key-id", msg.GetSubmissionID())
	})
}

func TestGetFileType(t *testing.T) {
	msg := &IncomingMessage{Headers: map[string]string{"file_type": "B"}}
	assert.Equal(t, models.FileTypeObjectClass, msg.GetFileType())

	msg.UploadCompleted = &UploadCompletedMessage{FileType: models.FileTypeFABS}
	assert.Equal(t, models.FileTypeFABS, msg.GetFileType())
}
