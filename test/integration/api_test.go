package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fernctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/models"
)

func TestContextMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(middleware.Context())

	var gotAgency, gotUser, gotRequestID string
	e.GET("/probe", func(c echo.Context) error {
		ctx := c.Request().Context()
		gotAgency = fernctx.GetAgency(ctx)
		gotUser = fernctx.GetUserID(ctx)
		gotRequestID = fernctx.GetRequestID(ctx)
		return c.NoContent(http.StatusOK)
	})

	t.Run("HeadersPropagate", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set(middleware.HeaderAgencyCode, "012")
		req.Header.Set(middleware.HeaderUserID, "user-1")
		req.Header.Set(echo.HeaderXRequestID, "req-1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "012", gotAgency)
		assert.Equal(t, "user-1", gotUser)
		assert.Equal(t, "req-1", gotRequestID)
	})

	t.Run("RequestIDGenerated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.NotEmpty(t, gotRequestID)
		assert.Empty(t, gotAgency)
	})
}

func TestCreateSubmissionRequest_Binding(t *testing.T) {
	e := echo.New()

	var bound models.CreateSubmissionRequest
	e.POST("/submissions", func(c echo.Context) error {
		if err := c.Bind(&bound); err != nil {
			return err
		}
		return c.NoContent(http.StatusCreated)
	})

	body := `{
		"agency_code": "012",
		"reporting_period_start_date": "01/2024",
		"reporting_period_end_date": "03/2024",
		"is_quarter_format": true,
		"is_fabs": false
	}`
	req := httptest.NewRequest(http.MethodPost, "/submissions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "012", bound.AgencyCode)
	assert.Equal(t, "01/2024", bound.StartDate)
	assert.Equal(t, "03/2024", bound.EndDate)
	assert.True(t, bound.IsQuarterly)
	assert.False(t, bound.IsFABS)
	assert.Nil(t, bound.ExistingID)
}

func TestSubmissionJSONContract(t *testing.T) {
	sub := models.Submission{
		ID:            "sub-1",
		AgencyCode:    "012",
		FiscalYear:    2024,
		FiscalPeriod:  6,
		IsQuarterly:   true,
		PublishStatus: models.PublishStatusUnpublished,
		Publishable:   false,
	}

	data, err := json.Marshal(sub)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "unpublished", decoded["publish_status"])
	assert.Equal(t, float64(6), decoded["fiscal_period"])
	assert.NotContains(t, decoded, "certifying_user_id")
}

func TestJobStatusResponseJSON(t *testing.T) {
	ft := models.FileTypeAppropriations
	resp := models.JobStatusResponse{
		JobID:          "job-1",
		JobType:        models.JobTypeRecordValidation,
		FileType:       &ft,
		Status:         models.JobStatusFinished,
		NumberOfRows:   120,
		NumberOfErrors: 3,
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "A", decoded["file_type"])
	assert.Equal(t, "finished", decoded["status"])
}
