package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	requiredAcks := kafka.RequiredAcks(cfg.RequiredAcks)

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           requiredAcks,
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// SubmissionEvent represents an event about a submission
type SubmissionEvent struct {
	EventType    string    `json:"event_type"` // created, published, reverted, deleted
	SubmissionID string    `json:"submission_id"`
	AgencyCode   string    `json:"agency_code"`
	FiscalYear   int       `json:"fiscal_year"`
	FiscalPeriod int       `json:"fiscal_period"`
	IsFABS       bool      `json:"is_fabs"`
	Timestamp    time.Time `json:"timestamp"`
}

// JobEvent represents an event about a job
type JobEvent struct {
	EventType    string           `json:"event_type"` // started, finished, invalid, failed
	JobID        string           `json:"job_id"`
	SubmissionID string           `json:"submission_id"`
	JobType      models.JobType   `json:"job_type"`
	FileType     *models.FileType `json:"file_type,omitempty"`
	Errors       int              `json:"errors"`
	Warnings     int              `json:"warnings"`
	Message      string           `json:"message,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// PublishSubmissionEvent publishes a submission event to Kafka
func (p *Producer) PublishSubmissionEvent(ctx context.Context, event *SubmissionEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishSubmissionEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.SubmissionID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "agency_code", Value: []byte(event.AgencyCode)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish submission event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type":    event.EventType,
		"submission_id": event.SubmissionID,
		"agency_code":   event.AgencyCode,
	}).Debug("Published submission event")

	return nil
}

// PublishJobEvent publishes a job event to Kafka
func (p *Producer) PublishJobEvent(ctx context.Context, event *JobEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishJobEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	fileType := ""
	if event.FileType != nil {
		fileType = string(*event.FileType)
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.SubmissionID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "job_type", Value: []byte(event.JobType)},
			{Key: "file_type", Value: []byte(fileType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish job event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": event.EventType,
		"job_id":     event.JobID,
		"job_type":   event.JobType,
	}).Debug("Published job event")

	return nil
}

// PublishJobEvents publishes multiple job events in a batch
func (p *Producer) PublishJobEvents(ctx context.Context, events []*JobEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishJobEvents")
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	messages := make([]kafka.Message, len(events))
	for i, event := range events {
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}

		data, err := json.Marshal(event)
		if err != nil {
			return err
		}

		messages[i] = kafka.Message{
			Topic: p.topic,
			Key:   []byte(event.SubmissionID),
			Value: data,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
				{Key: "job_type", Value: []byte(event.JobType)},
				{Key: "schema_version", Value: []byte("1.0")},
			},
		}
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"batch_size": len(events),
		}).Error("Failed to publish job events batch")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"batch_size": len(events),
	}).Debug("Published job events batch")

	return nil
}
