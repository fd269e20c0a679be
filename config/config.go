package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"fern-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL (staging + job store)
	DatabaseDriver              string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                string        `env:"DB_HOST" env-default:""`
	DatabasePort                string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"fern"`
	DatabaseSSLMode             string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion    int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce      int           `env:"DB_MIGRATION_FORCE" env-default:"0"`

	// Redis (dispatcher lock)
	RedisAddr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// S3 (report artifacts + certified copies)
	S3Endpoint        string `env:"S3_ENDPOINT" env-default:""`
	S3Region          string `env:"S3_REGION" env-default:"us-gov-west-1"`
	S3AccessKey       string `env:"S3_ACCESS_KEY" env-default:""`
	S3SecretKey       string `env:"S3_SECRET_KEY" env-default:""`
	S3Bucket          string `env:"S3_BUCKET" env-default:"fern-submissions"`
	S3CertifiedBucket string `env:"S3_CERTIFIED_BUCKET" env-default:"fern-certified"`
	S3ForcePathStyle  bool   `env:"S3_FORCE_PATH_STYLE" env-default:"false"`

	// Kafka Consumer (object-store upload completions)
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaInputTopic      string   `env:"KAFKA_INPUT_TOPIC" env-default:"upload-completions"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" env-default:"fern-consumer"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`

	// Kafka Producer (submission + job lifecycle events)
	KafkaOutputTopic  string `env:"KAFKA_OUTPUT_TOPIC" env-default:"submission-events"`
	KafkaBatchSize    int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Job processing
	WorkerCount          int           `env:"WORKER_COUNT" env-default:"4"`
	DispatchPollInterval time.Duration `env:"DISPATCH_POLL_INTERVAL" env-default:"5s"`
	DispatchBatchSize    int           `env:"DISPATCH_BATCH_SIZE" env-default:"20"`
	JobTimeout           time.Duration `env:"JOB_TIMEOUT" env-default:"30m"`
	ParseBatchSize       int           `env:"PARSE_BATCH_SIZE" env-default:"500"`
	ErrorRowSampleSize   int           `env:"ERROR_ROW_SAMPLE_SIZE" env-default:"100"`

	// Rule evaluation
	FabsCorrectionCutoff      string `env:"FABS_CORRECTION_CUTOFF" env-default:"2017-01-01"`
	UnregisteredAgencyCutoff  string `env:"UNREGISTERED_AGENCY_CUTOFF" env-default:"2022-08-22"`
	ReportTimestampHeader     bool   `env:"REPORT_TIMESTAMP_HEADER" env-default:"true"`

	// External D-file generation service
	GenerationServiceURL string        `env:"GENERATION_SERVICE_URL" env-default:""`
	GenerationTimeout    time.Duration `env:"GENERATION_TIMEOUT" env-default:"5m"`
}
