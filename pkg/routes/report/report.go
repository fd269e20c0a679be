package report

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/artifacts"
	"github.com/Ramsey-B/fern/pkg/materializer"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Register registers validation report routes
func Register(g *echo.Group) {
	g.GET("/:submission_id/:file_type/:severity", Download)
}

// DownloadResponse carries a short-lived URL to one severity report
type DownloadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Download returns a presigned URL for one report. A missing report means
// the validation run has not happened, not that the file was clean.
func Download(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "report_handler.Download")
	defer span.End()

	severity := models.RuleSeverity(c.Param("severity"))
	if severity != models.SeverityFatal && severity != models.SeverityWarning {
		return httperror.NewHTTPError(http.StatusBadRequest, "severity must be fatal or warning")
	}

	ctx, store, err := ectoinject.GetContext[*artifacts.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get artifact store")
	}

	key := materializer.ReportKey(c.Param("submission_id"), models.FileType(c.Param("file_type")), severity)
	exists, err := store.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return httperror.NewHTTPError(http.StatusNotFound, "report not found")
	}

	url, err := store.PresignedURL(key)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, DownloadResponse{Key: key, URL: url})
}
