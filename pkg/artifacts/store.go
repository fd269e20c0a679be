package artifacts

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const presignExpiry = 15 * time.Minute

// Store holds report artifacts and certified copies in object storage.
// Uploaded submission files land in the working bucket; publication copies
// the certified set into the certified bucket, which is write-once by policy.
type Store struct {
	client          *s3.S3
	bucket          string
	certifiedBucket string
	logger          ectologger.Logger
}

// NewStore creates an object store client from config
func NewStore(cfg *config.Config, logger ectologger.Logger) (*Store, error) {
	awsConfig := &aws.Config{
		Region:           aws.String(cfg.S3Region),
		S3ForcePathStyle: aws.Bool(cfg.S3ForcePathStyle),
	}
	if cfg.S3Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.S3Endpoint)
	}
	if cfg.S3AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.S3AccessKey, cfg.S3SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to create S3 session")
		return nil, err
	}

	return &Store{
		client:          s3.New(sess),
		bucket:          cfg.S3Bucket,
		certifiedBucket: cfg.S3CertifiedBucket,
		logger:          logger,
	}, nil
}

// Download streams an object from the working bucket
func (s *Store) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	ctx, span := tracing.StartSpan(ctx, "artifacts.Store.Download")
	defer span.End()

	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"key": key}).Error("Failed to download object")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to download %s", key)
	}
	return result.Body, nil
}

// Upload writes an object to the working bucket
func (s *Store) Upload(ctx context.Context, key string, data io.ReadSeeker) error {
	ctx, span := tracing.StartSpan(ctx, "artifacts.Store.Upload")
	defer span.End()

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   data,
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"key": key}).Error("Failed to upload object")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to upload %s", key)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{"key": key}).Debug("Uploaded object")
	return nil
}

// Exists reports whether an object exists in the working bucket
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "artifacts.Store.Exists")
	defer span.End()

	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, nil
	}
	return true, nil
}

// Certify copies the given keys from the working bucket into the certified
// bucket under the destination prefix. Certified copies are never rewritten:
// each publication uses a timestamped prefix.
func (s *Store) Certify(ctx context.Context, keys []string, destPrefix string) error {
	ctx, span := tracing.StartSpan(ctx, "artifacts.Store.Certify")
	defer span.End()

	for _, key := range keys {
		_, err := s.client.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(s.certifiedBucket),
			CopySource: aws.String(s.bucket + "/" + key),
			Key:        aws.String(destPrefix + "/" + key),
		})
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"key": key, "dest_prefix": destPrefix}).Error("Failed to certify object")
			return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to certify %s", key)
		}
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{"count": len(keys), "dest_prefix": destPrefix}).Info("Certified report artifacts")
	return nil
}

// PresignedURL returns a time-limited download URL for a working-bucket object
func (s *Store) PresignedURL(key string) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(presignExpiry)
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]any{"key": key}).Error("Failed to presign URL")
		return "", httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to presign %s", key)
	}
	return url, nil
}
