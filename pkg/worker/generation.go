package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// GenerationClient produces award files (D1/D2) from an external service
type GenerationClient interface {
	// Generate requests the file and returns a URL to the generated object
	Generate(ctx context.Context, job models.Job, sub models.Submission) (string, error)
}

// generationRequest is the payload sent to the generation service
type generationRequest struct {
	SubmissionID string           `json:"submission_id"`
	AgencyCode   string           `json:"agency_code"`
	FileType     models.FileType  `json:"file_type"`
	StartDate    *time.Time       `json:"start_date,omitempty"`
	EndDate      *time.Time       `json:"end_date,omitempty"`
}

// generationResponse is the payload returned by the generation service
type generationResponse struct {
	URL     string `json:"url"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HTTPGenerationClient calls the generation service over HTTP
type HTTPGenerationClient struct {
	logger  ectologger.Logger
	baseURL string
	client  *http.Client
}

// NewHTTPGenerationClient creates a new generation client
func NewHTTPGenerationClient(cfg *config.Config, logger ectologger.Logger) *HTTPGenerationClient {
	return &HTTPGenerationClient{
		logger:  logger,
		baseURL: cfg.GenerationServiceURL,
		client: &http.Client{
			Timeout: cfg.GenerationTimeout,
		},
	}
}

// Generate requests a D file synchronously. The service blocks until the
// file exists or generation fails.
func (c *HTTPGenerationClient) Generate(ctx context.Context, job models.Job, sub models.Submission) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "worker.HTTPGenerationClient.Generate")
	defer span.End()

	if c.baseURL == "" {
		return "", fmt.Errorf("generation service URL is not configured")
	}
	if job.FileType == nil {
		return "", fmt.Errorf("generation job %s has no file type", job.ID)
	}

	payload, err := json.Marshal(generationRequest{
		SubmissionID: sub.ID,
		AgencyCode:   sub.AgencyCode,
		FileType:     *job.FileType,
		StartDate:    job.StartDate,
		EndDate:      job.EndDate,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"job_id":    job.ID,
			"file_type": *job.FileType,
		}).Error("Generation request failed")
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation service returned %d: %s", resp.StatusCode, string(body))
	}

	var out generationResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to parse generation response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("generation service returned no URL: %s", out.Message)
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":    job.ID,
		"file_type": *job.FileType,
		"url":       out.URL,
	}).Info("Generated award file")
	return out.URL, nil
}
