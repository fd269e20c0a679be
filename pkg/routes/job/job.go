package job

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/internal/repositories/errormetadata"
	jobrepo "github.com/Ramsey-B/fern/internal/repositories/job"
	"github.com/Ramsey-B/fern/pkg/coordinator"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Register registers job routes
func Register(g *echo.Group) {
	g.GET("/:id", Status)
	g.GET("/submission/:submission_id", ListBySubmission)
	g.POST("/:id/restart", Restart)
}

// Status returns one job's validation status: counts, header rejections, and
// per-rule aggregates
func Status(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "job_handler.Status")
	defer span.End()

	ctx, jobs, err := ectoinject.GetContext[*jobrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	j, err := jobs.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	fileErrors, err := jobs.ListFileLevelErrors(ctx, j.ID)
	if err != nil {
		return err
	}

	ctx, metaRepo, err := ectoinject.GetContext[*errormetadata.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	metadata, err := metaRepo.ListByJob(ctx, j.ID)
	if err != nil {
		return err
	}

	resp := models.JobStatusResponse{
		JobID:             j.ID,
		JobType:           j.JobType,
		FileType:          j.FileType,
		Status:            j.Status,
		Filename:          j.OriginalFilename,
		NumberOfRows:      j.NumberOfRows,
		NumberOfErrors:    j.NumberOfErrors,
		MissingHeaders:    []string{},
		DuplicatedHeaders: []string{},
		ErrorMetadata:     metadata,
	}
	for _, fe := range fileErrors {
		switch fe.ErrorType {
		case models.FileErrorMissingHeaders:
			resp.MissingHeaders = append(resp.MissingHeaders, fe.Detail)
		case models.FileErrorDuplicatedHeaders:
			resp.DuplicatedHeaders = append(resp.DuplicatedHeaders, fe.Detail)
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// ListBySubmission returns every job of a submission
func ListBySubmission(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "job_handler.ListBySubmission")
	defer span.End()

	ctx, jobs, err := ectoinject.GetContext[*jobrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := jobs.ListBySubmission(ctx, c.Param("submission_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, items)
}

// Restart resets a job and its dependents to waiting
func Restart(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "job_handler.Restart")
	defer span.End()

	ctx, coord, err := ectoinject.GetContext[*coordinator.Coordinator](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get coordinator")
	}

	if err := coord.Restart(ctx, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusAccepted)
}
