package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Trace context (extracted from Kafka headers)
	TraceParent string
	TraceState  string

	// Parsed content
	UploadCompleted *UploadCompletedMessage
}

// UploadCompletedMessage represents an upload.completed event from the file gateway.
// The gateway publishes one of these after it finishes writing a submitted file
// to object storage.
type UploadCompletedMessage struct {
	Type         string          `json:"type"` // "upload.completed"
	SubmissionID string          `json:"submission_id"`
	FileType     models.FileType `json:"file_type"`
	Filename     string          `json:"filename"`
	ObjectKey    string          `json:"object_key"`
	SizeBytes    int64           `json:"size_bytes"`
	UploadedBy   string          `json:"uploaded_by,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// ParseUploadCompleted parses the message value as an upload.completed event
func (m *IncomingMessage) ParseUploadCompleted() error {
	var msg UploadCompletedMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return err
	}
	m.UploadCompleted = &msg
	return nil
}

// IsUploadCompleted checks if the message is an upload.completed event
func (m *IncomingMessage) IsUploadCompleted() bool {
	// Check header first
	if msgType := m.Headers["type"]; msgType == "upload.completed" {
		return true
	}

	var evt UploadCompletedMessage
	if err := json.Unmarshal(m.Value, &evt); err == nil {
		return evt.Type == "upload.completed"
	}

	return false
}

// GetSubmissionID returns the submission ID for the message
func (m *IncomingMessage) GetSubmissionID() string {
	if m.UploadCompleted != nil {
		return m.UploadCompleted.SubmissionID
	}
	// Fallback to header, then key
	if id := m.Headers["submission_id"]; id != "" {
		return id
	}
	return m.Key
}

// GetFileType returns the file type for the message
func (m *IncomingMessage) GetFileType() models.FileType {
	if m.UploadCompleted != nil {
		return m.UploadCompleted.FileType
	}
	return models.FileType(m.Headers["file_type"])
}
